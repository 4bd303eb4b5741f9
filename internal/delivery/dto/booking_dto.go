package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateBookingRequest struct {
	DoctorID      uuid.UUID `json:"doctor_id" validate:"required"`
	DispensaryID  uuid.UUID `json:"dispensary_id" validate:"required"`
	Date          string    `json:"date" validate:"required,datetime=2006-01-02"`
	PatientName   string    `json:"patient_name" validate:"omitempty,max=255"`
	PatientPhone  string    `json:"patient_phone" validate:"omitempty,max=20"`
	CorrelationID string    `json:"correlation_id" validate:"omitempty,max=80"` // Overridden by the Idempotency-Key header
}

type CreateWalkInBookingRequest struct {
	DoctorID      uuid.UUID  `json:"doctor_id" validate:"required"`
	DispensaryID  uuid.UUID  `json:"dispensary_id" validate:"required"`
	Date          string     `json:"date" validate:"required,datetime=2006-01-02"`
	PatientID     *uuid.UUID `json:"patient_id" validate:"omitempty"`
	PatientName   string     `json:"patient_name" validate:"required,max=255"`
	PatientPhone  string     `json:"patient_phone" validate:"omitempty,max=20"`
	CorrelationID string     `json:"correlation_id" validate:"omitempty,max=80"`
}

type SessionBookingsRequest struct {
	DoctorID         uuid.UUID `validate:"required"`
	DispensaryID     uuid.UUID `validate:"required"`
	Date             string    `validate:"required,datetime=2006-01-02"`
	IncludeCancelled bool
}

// Response DTOs

type BookingResponse struct {
	ID                uuid.UUID  `json:"id"`
	BookingCode       string     `json:"booking_code"`
	PatientID         *uuid.UUID `json:"patient_id,omitempty"`
	PatientName       string     `json:"patient_name,omitempty"`
	PatientPhone      string     `json:"patient_phone,omitempty"`
	DoctorID          uuid.UUID  `json:"doctor_id"`
	DispensaryID      uuid.UUID  `json:"dispensary_id"`
	AppointmentDate   string     `json:"appointment_date"`
	AppointmentNumber int        `json:"appointment_number"`
	EstimatedTime     string     `json:"estimated_time"`
	TimeSlot          string     `json:"time_slot"`
	IsModified        bool       `json:"is_modified"`
	Overflow          bool       `json:"overflow"`
	Channel           string     `json:"channel"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}
