package usecase

import (
	"context"
	"errors"
	"time"

	"dispensary-queue/internal/converter"
	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
)

type AvailabilityUsecase interface {
	GetAvailability(ctx context.Context, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
}

type availabilityUsecase struct {
	log  *logrus.Logger
	gate BookingGate
}

func NewAvailabilityUsecase(log *logrus.Logger, gate BookingGate) AvailabilityUsecase {
	return &availabilityUsecase{
		log:  log,
		gate: gate,
	}
}

// GetAvailability previews a session as a patient would see it. Nothing is allocated.
func (u *availabilityUsecase) GetAvailability(ctx context.Context, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	date, err := time.Parse(entity.DateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	availability, err := u.gate.GetAvailability(ctx, req.DoctorID, req.DispensaryID, date)
	if err != nil {
		u.log.Warnf("Failed to get availability for doctor %s on %s: %+v", req.DoctorID, req.Date, err)
		return nil, err
	}

	key := entity.QueueKey{DispensaryID: req.DispensaryID, DoctorID: req.DoctorID, Date: date}
	return converter.AvailabilityToResponse(key, availability), nil
}
