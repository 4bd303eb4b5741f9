package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/service"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/response"
	"dispensary-queue/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBookingUsecase struct {
	mock.Mock
}

func (m *mockBookingUsecase) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingUsecase) CreateWalkInBooking(ctx context.Context, req *dto.CreateWalkInBookingRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingUsecase) GetMyBookings(ctx context.Context) (*dto.BookingListResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*dto.BookingListResponse)
	return resp, args.Error(1)
}

func (m *mockBookingUsecase) ListSessionBookings(ctx context.Context, req *dto.SessionBookingsRequest) (*dto.BookingListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.BookingListResponse)
	return resp, args.Error(1)
}

func (m *mockBookingUsecase) CancelMyBooking(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockBookingUsecase) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

const bookingBody = `{
	"doctor_id": "7b4c5a52-3f1e-4d8e-9a57-1c2b3d4e5f60",
	"dispensary_id": "0d9e8f7a-6b5c-4d3e-8f21-a0b1c2d3e4f5",
	"date": "2024-05-06",
	"correlation_id": "from-body"
}`

func postBooking(h *BookingHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateBooking_IdempotencyHeaderWins(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc, validator.NewValidator())

	uc.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req *dto.CreateBookingRequest) bool {
		return req.CorrelationID == "from-header"
	})).Return(&dto.BookingResponse{AppointmentNumber: 1, EstimatedTime: "09:00"}, nil)

	rec := postBooking(h, bookingBody, map[string]string{IdempotencyKeyHeader: "from-header"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	uc.AssertExpectations(t)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"no config", &service.AvailabilityError{Reason: entity.ReasonNoConfig}, http.StatusNotFound, "no_config"},
		{"absent", &service.AvailabilityError{Reason: entity.ReasonAbsent}, http.StatusConflict, "absent"},
		{"cutover passed", &service.AvailabilityError{Reason: entity.ReasonCutoverPassed}, http.StatusConflict, "cutover_passed"},
		{"fully booked", service.ErrFullyBooked, http.StatusConflict, "fully_booked"},
		{"key reused", usecase.ErrIdempotencyKeyReused, http.StatusConflict, ""},
		{"correlation conflict", service.ErrCorrelationConflict, http.StatusConflict, ""},
		{"transient", &service.TransientError{Op: "allocate", Err: errors.New("conn refused")}, http.StatusServiceUnavailable, ""},
		{"unknown outcome", &service.TransientError{Op: "allocate", Err: context.DeadlineExceeded, Unknown: true}, http.StatusGatewayTimeout, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockBookingUsecase)
			h := NewBookingHandler(uc, validator.NewValidator())
			uc.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := postBooking(h, bookingBody, nil)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, resp.Error)
			}
		})
	}
}

func TestCreateBooking_ValidationFailure(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc, validator.NewValidator())

	rec := postBooking(h, `{"doctor_id":"7b4c5a52-3f1e-4d8e-9a57-1c2b3d4e5f60","date":"06-05-2024"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	errs, ok := resp.Error.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "DispensaryID")
	assert.Contains(t, errs, "Date")
	uc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_MalformedBody(t *testing.T) {
	h := NewBookingHandler(new(mockBookingUsecase), validator.NewValidator())

	rec := postBooking(h, `{`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelMyBooking_ErrorMapping(t *testing.T) {
	bookingID := uuid.New()

	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{usecase.ErrBookingNotFound, http.StatusNotFound},
		{usecase.ErrBookingNotOwned, http.StatusForbidden},
		{usecase.ErrBookingAlreadyCancelled, http.StatusConflict},
	}

	for _, tt := range tests {
		uc := new(mockBookingUsecase)
		h := NewBookingHandler(uc, validator.NewValidator())
		uc.On("CancelMyBooking", mock.Anything, bookingID).Return(tt.err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/cancel", nil)
		req = mux.SetURLVars(req, map[string]string{"id": bookingID.String()})
		rec := httptest.NewRecorder()
		h.CancelMyBooking(rec, req)

		assert.Equal(t, tt.status, rec.Code, "%v", tt.err)
	}
}

func TestCancelMyBooking_InvalidID(t *testing.T) {
	h := NewBookingHandler(new(mockBookingUsecase), validator.NewValidator())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/nope/cancel", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	rec := httptest.NewRecorder()
	h.CancelMyBooking(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
