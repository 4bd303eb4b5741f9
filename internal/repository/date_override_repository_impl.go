package repository

import (
	"errors"
	"time"

	"dispensary-queue/internal/domain/entity"
	domainRepo "dispensary-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dateOverrideRepository struct{}

func NewDateOverrideRepository() domainRepo.DateOverrideRepository {
	return &dateOverrideRepository{}
}

// Upsert stores the override, replacing any existing one for the same doctor, dispensary and date.
func (r *dateOverrideRepository) Upsert(db *gorm.DB, override *entity.DateOverride) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doctor_id"}, {Name: "dispensary_id"}, {Name: "override_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_modified_session", "start_time", "end_time", "max_patients",
			"minutes_per_patient", "reason", "updated_at",
		}),
	}).Create(override).Error
}

func (r *dateOverrideRepository) FindByID(db *gorm.DB, id int) (*entity.DateOverride, error) {
	var override entity.DateOverride
	err := db.Where("id = ?", id).First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *dateOverrideRepository) FindByKey(db *gorm.DB, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error) {
	var override entity.DateOverride
	err := db.Where("doctor_id = ? AND dispensary_id = ? AND override_date = ?", doctorID, dispensaryID, date.Format(entity.DateLayout)).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *dateOverrideRepository) FindAll(db *gorm.DB, filter *entity.OverrideFilter) ([]entity.DateOverride, error) {
	var overrides []entity.DateOverride
	query := db.Model(&entity.DateOverride{})

	if filter != nil {
		if filter.DoctorID != uuid.Nil {
			query = query.Where("doctor_id = ?", filter.DoctorID)
		}
		if filter.DispensaryID != uuid.Nil {
			query = query.Where("dispensary_id = ?", filter.DispensaryID)
		}
		if filter.From != "" {
			query = query.Where("override_date >= ?", filter.From)
		}
		if filter.To != "" {
			query = query.Where("override_date <= ?", filter.To)
		}
	}

	err := query.Order("override_date ASC").Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *dateOverrideRepository) Delete(db *gorm.DB, id int) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.DateOverride{})
	return result.RowsAffected, result.Error
}
