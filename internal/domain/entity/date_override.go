package entity

import (
	"time"

	"github.com/google/uuid"
)

// DateOverride replaces or cancels the weekly session for a single date.
// IsModifiedSession=false means the doctor is absent for the whole day.
type DateOverride struct {
	ID                int        `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_override_key" json:"doctor_id"`
	DispensaryID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_override_key" json:"dispensary_id"`
	OverrideDate      time.Time  `gorm:"type:date;not null;uniqueIndex:uq_override_key" json:"override_date"`
	IsModifiedSession bool       `gorm:"not null;default:false" json:"is_modified_session"`
	StartTime         *ClockTime `gorm:"type:smallint" json:"start_time,omitempty"`
	EndTime           *ClockTime `gorm:"type:smallint" json:"end_time,omitempty"`
	MaxPatients       *int       `json:"max_patients,omitempty"`
	MinutesPerPatient *int       `json:"minutes_per_patient,omitempty"`
	Reason            string     `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DateOverride) TableName() string {
	return "date_overrides"
}

// IsAbsence reports whether the override cancels the session outright.
func (o *DateOverride) IsAbsence() bool {
	return !o.IsModifiedSession
}
