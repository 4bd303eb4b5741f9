package repository

import (
	"errors"
	"time"

	"dispensary-queue/internal/domain/entity"
	domainRepo "dispensary-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type weeklyScheduleRepository struct{}

func NewWeeklyScheduleRepository() domainRepo.WeeklyScheduleRepository {
	return &weeklyScheduleRepository{}
}

func (r *weeklyScheduleRepository) Create(db *gorm.DB, config *entity.WeeklyScheduleConfig) error {
	return db.Create(config).Error
}

func (r *weeklyScheduleRepository) FindByID(db *gorm.DB, id int) (*entity.WeeklyScheduleConfig, error) {
	var config entity.WeeklyScheduleConfig
	err := db.Where("id = ?", id).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *weeklyScheduleRepository) FindActive(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	var config entity.WeeklyScheduleConfig
	err := db.Where("doctor_id = ? AND dispensary_id = ? AND day_of_week = ? AND is_active = ?", doctorID, dispensaryID, int(day), true).
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// FindLatest returns the active config for the weekday if any, else the most recently
// updated inactive one. Used where only the cutover setting of the weekday matters.
func (r *weeklyScheduleRepository) FindLatest(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	var config entity.WeeklyScheduleConfig
	err := db.Where("doctor_id = ? AND dispensary_id = ? AND day_of_week = ?", doctorID, dispensaryID, int(day)).
		Order("is_active DESC, updated_at DESC").
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *weeklyScheduleRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklyScheduleConfig, error) {
	var configs []entity.WeeklyScheduleConfig
	err := db.Where("doctor_id = ?", doctorID).
		Order("dispensary_id ASC, day_of_week ASC, start_time ASC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *weeklyScheduleRepository) Update(db *gorm.DB, config *entity.WeeklyScheduleConfig) error {
	return db.Save(config).Error
}

func (r *weeklyScheduleRepository) Deactivate(db *gorm.DB, id int) (int64, error) {
	result := db.Model(&entity.WeeklyScheduleConfig{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
