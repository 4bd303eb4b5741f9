package repository

import (
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DateOverrideRepository interface {
	Upsert(db *gorm.DB, override *entity.DateOverride) error
	FindByID(db *gorm.DB, id int) (*entity.DateOverride, error)
	FindByKey(db *gorm.DB, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error)
	FindAll(db *gorm.DB, filter *entity.OverrideFilter) ([]entity.DateOverride, error)
	Delete(db *gorm.DB, id int) (int64, error)
}
