package usecase

import (
	"context"
	"testing"

	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetAvailability_RendersPreview(t *testing.T) {
	gate := new(mockBookingGate)
	uc := NewAvailabilityUsecase(quietLogger(), gate)

	gate.On("GetAvailability", mock.Anything, doctorID, dispensaryID, sessionDate).Return(&entity.Availability{
		Available: true,
		Window: &entity.SessionWindow{
			StartTime:         entity.MustParseClockTime("09:00"),
			EndTime:           entity.MustParseClockTime("12:00"),
			MaxPatients:       12,
			MinutesPerPatient: 15,
		},
		CurrentNumber: 2,
		NextNumber:    3,
		Slots: []entity.SlotPreview{
			{AppointmentNumber: 3, EstimatedTime: entity.MustParseClockTime("09:30")},
			{AppointmentNumber: 4, EstimatedTime: entity.MustParseClockTime("09:45")},
		},
	}, nil)

	resp, err := uc.GetAvailability(context.Background(), &dto.AvailabilityRequest{
		DoctorID:     doctorID,
		DispensaryID: dispensaryID,
		Date:         "2024-05-06",
	})
	require.NoError(t, err)

	assert.True(t, resp.Available)
	assert.Equal(t, "2024-05-06", resp.Date)
	assert.Equal(t, "09:00", resp.SessionInfo.StartTime)
	assert.Equal(t, 3, resp.NextNumber)
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, "09:45", resp.Slots[1].EstimatedTime)
}

func TestGetAvailability_Unavailable(t *testing.T) {
	gate := new(mockBookingGate)
	uc := NewAvailabilityUsecase(quietLogger(), gate)

	gate.On("GetAvailability", mock.Anything, doctorID, dispensaryID, sessionDate).Return(&entity.Availability{
		Reason: entity.ReasonAbsent,
	}, nil)

	resp, err := uc.GetAvailability(context.Background(), &dto.AvailabilityRequest{
		DoctorID:     doctorID,
		DispensaryID: dispensaryID,
		Date:         "2024-05-06",
	})
	require.NoError(t, err)

	assert.False(t, resp.Available)
	assert.Equal(t, "absent", resp.Reason)
	assert.Nil(t, resp.SessionInfo)
	assert.NotNil(t, resp.Slots)
	assert.Empty(t, resp.Slots)
}

func TestGetAvailability_InvalidDate(t *testing.T) {
	uc := NewAvailabilityUsecase(quietLogger(), new(mockBookingGate))

	_, err := uc.GetAvailability(context.Background(), &dto.AvailabilityRequest{Date: "2024-13-01"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
