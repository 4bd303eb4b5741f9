package entity

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyScheduleConfig is the recurring session a doctor runs at a dispensary on one weekday.
// At most one active config exists per (doctor, dispensary, day of week).
type WeeklyScheduleConfig struct {
	ID                    int          `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID              uuid.UUID    `gorm:"type:uuid;not null;index:idx_weekly_key" json:"doctor_id"`
	DispensaryID          uuid.UUID    `gorm:"type:uuid;not null;index:idx_weekly_key" json:"dispensary_id"`
	DayOfWeek             time.Weekday `gorm:"type:smallint;not null;index:idx_weekly_key" json:"day_of_week"`
	StartTime             ClockTime    `gorm:"type:smallint;not null" json:"start_time"`
	EndTime               ClockTime    `gorm:"type:smallint;not null" json:"end_time"`
	MaxPatients           int          `gorm:"not null" json:"max_patients"`
	MinutesPerPatient     int          `gorm:"not null" json:"minutes_per_patient"`
	BookingCutoverMinutes int          `gorm:"not null;default:0" json:"booking_cutover_minutes"`
	IsActive              bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WeeklyScheduleConfig) TableName() string {
	return "weekly_schedule_configs"
}

// Window converts the config into the concrete session for a date.
func (c *WeeklyScheduleConfig) Window() SessionWindow {
	return SessionWindow{
		StartTime:         c.StartTime,
		EndTime:           c.EndTime,
		MaxPatients:       c.MaxPatients,
		MinutesPerPatient: c.MinutesPerPatient,
		IsModified:        false,
	}
}
