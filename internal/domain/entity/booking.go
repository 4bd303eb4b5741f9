package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Booking embeds a reservation made through the queue engine.
// The appointment number stays attached to the booking after cancellation and is never reissued.
type Booking struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID         *uuid.UUID    `gorm:"type:uuid;index" json:"patient_id,omitempty"`
	PatientName       string        `gorm:"type:varchar(255)" json:"patient_name,omitempty"`
	PatientPhone      string        `gorm:"type:varchar(20)" json:"patient_phone,omitempty"`
	DoctorID          uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_booking_number" json:"doctor_id"`
	DispensaryID      uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_booking_number" json:"dispensary_id"`
	AppointmentDate   time.Time     `gorm:"type:date;not null;uniqueIndex:uq_booking_number" json:"appointment_date"`
	AppointmentNumber int           `gorm:"not null;uniqueIndex:uq_booking_number" json:"appointment_number"`
	EstimatedTime     ClockTime     `gorm:"type:integer;not null" json:"estimated_time"`
	TimeSlot          string        `gorm:"type:varchar(20);not null" json:"time_slot"`
	IsModifiedSession bool          `gorm:"not null;default:false" json:"is_modified_session"`
	Overflow          bool          `gorm:"not null;default:false" json:"overflow"`
	Channel           Channel       `gorm:"type:varchar(20);not null" json:"channel"`
	CorrelationID     string        `gorm:"type:varchar(128);uniqueIndex;not null" json:"correlation_id"`
	BookingCode       string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"booking_code"`
	Status            BookingStatus `gorm:"type:booking_status;not null;default:'scheduled';index" json:"status"`
	CreatedBy         *uuid.UUID    `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Key returns the queue the booking's number was issued from.
func (b *Booking) Key() QueueKey {
	return QueueKey{DispensaryID: b.DispensaryID, DoctorID: b.DoctorID, Date: b.AppointmentDate}
}

// IsCancelled checks if booking is cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// IsOwnedBy reports whether the booking was made by the given patient.
func (b *Booking) IsOwnedBy(patientID uuid.UUID) bool {
	return b.PatientID != nil && *b.PatientID == patientID
}

// Cancel changes booking status to cancelled
func (b *Booking) Cancel() {
	b.Status = BookingStatusCancelled
}
