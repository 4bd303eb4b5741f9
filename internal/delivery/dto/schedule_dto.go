package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateWeeklyScheduleRequest struct {
	DoctorID              uuid.UUID `json:"doctor_id" validate:"required"`
	DispensaryID          uuid.UUID `json:"dispensary_id" validate:"required"`
	DayOfWeek             *int      `json:"day_of_week" validate:"required,min=0,max=6"` // 0 = Sunday
	StartTime             string    `json:"start_time" validate:"required,hhmm"`
	EndTime               string    `json:"end_time" validate:"required,hhmm"`
	MaxPatients           int       `json:"max_patients" validate:"required,gt=0"`
	MinutesPerPatient     int       `json:"minutes_per_patient" validate:"required,gt=0"`
	BookingCutoverMinutes int       `json:"booking_cutover_minutes" validate:"gte=0"`
	IsActive              *bool     `json:"is_active"`
}

type UpdateWeeklyScheduleRequest struct {
	StartTime             *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime               *string `json:"end_time" validate:"omitempty,hhmm"`
	MaxPatients           *int    `json:"max_patients" validate:"omitempty,gt=0"`
	MinutesPerPatient     *int    `json:"minutes_per_patient" validate:"omitempty,gt=0"`
	BookingCutoverMinutes *int    `json:"booking_cutover_minutes" validate:"omitempty,gte=0"`
	IsActive              *bool   `json:"is_active"`
}

type SaveOverrideRequest struct {
	DoctorID          uuid.UUID `json:"doctor_id" validate:"required"`
	DispensaryID      uuid.UUID `json:"dispensary_id" validate:"required"`
	Date              string    `json:"date" validate:"required,datetime=2006-01-02"`
	IsModifiedSession bool      `json:"is_modified_session"`
	StartTime         *string   `json:"start_time" validate:"omitempty,hhmm"`
	EndTime           *string   `json:"end_time" validate:"omitempty,hhmm"`
	MaxPatients       *int      `json:"max_patients" validate:"omitempty,gt=0"`
	MinutesPerPatient *int      `json:"minutes_per_patient" validate:"omitempty,gt=0"`
	Reason            string    `json:"reason" validate:"omitempty,max=500"`
}

type OverrideListRequest struct {
	DoctorID     uuid.UUID `validate:"required"`
	DispensaryID uuid.UUID
	From         string `validate:"omitempty,datetime=2006-01-02"`
	To           string `validate:"omitempty,datetime=2006-01-02"`
}

// Response DTOs

type WeeklyScheduleResponse struct {
	ID                    int       `json:"id"`
	DoctorID              uuid.UUID `json:"doctor_id"`
	DispensaryID          uuid.UUID `json:"dispensary_id"`
	DayOfWeek             int       `json:"day_of_week"`
	DayName               string    `json:"day_name"`
	StartTime             string    `json:"start_time"`
	EndTime               string    `json:"end_time"`
	MaxPatients           int       `json:"max_patients"`
	MinutesPerPatient     int       `json:"minutes_per_patient"`
	BookingCutoverMinutes int       `json:"booking_cutover_minutes"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type WeeklyScheduleListResponse struct {
	Schedules []WeeklyScheduleResponse `json:"schedules"`
	Total     int                      `json:"total"`
}

type OverrideResponse struct {
	ID                int       `json:"id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	DispensaryID      uuid.UUID `json:"dispensary_id"`
	Date              string    `json:"date"`
	IsModifiedSession bool      `json:"is_modified_session"`
	StartTime         string    `json:"start_time,omitempty"`
	EndTime           string    `json:"end_time,omitempty"`
	MaxPatients       *int      `json:"max_patients,omitempty"`
	MinutesPerPatient *int      `json:"minutes_per_patient,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type OverrideListResponse struct {
	Overrides []OverrideResponse `json:"overrides"`
	Total     int                `json:"total"`
}
