package repository

import (
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WeeklyScheduleRepository interface {
	Create(db *gorm.DB, config *entity.WeeklyScheduleConfig) error
	FindByID(db *gorm.DB, id int) (*entity.WeeklyScheduleConfig, error)
	FindActive(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error)
	FindLatest(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklyScheduleConfig, error)
	Update(db *gorm.DB, config *entity.WeeklyScheduleConfig) error
	Deactivate(db *gorm.DB, id int) (int64, error)
}
