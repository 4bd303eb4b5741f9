package dto

import "github.com/google/uuid"

type AvailabilityRequest struct {
	DoctorID     uuid.UUID `validate:"required"`
	DispensaryID uuid.UUID `validate:"required"`
	Date         string    `validate:"required,datetime=2006-01-02"`
}

type SessionInfoResponse struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	MinutesPerPatient int    `json:"minutes_per_patient"`
	MaxPatients       int    `json:"max_patients"`
}

type SlotResponse struct {
	AppointmentNumber int    `json:"appointment_number"`
	EstimatedTime     string `json:"estimated_time"`
}

type AvailabilityResponse struct {
	DoctorID      uuid.UUID            `json:"doctor_id"`
	DispensaryID  uuid.UUID            `json:"dispensary_id"`
	Date          string               `json:"date"`
	Available     bool                 `json:"available"`
	Reason        string               `json:"reason,omitempty"`
	SessionInfo   *SessionInfoResponse `json:"session_info,omitempty"`
	IsModified    bool                 `json:"is_modified"`
	CurrentNumber int                  `json:"current_number"`
	NextNumber    int                  `json:"next_number,omitempty"`
	Slots         []SlotResponse       `json:"slots"`
}
