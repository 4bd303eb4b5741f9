package service

import (
	"context"
	"time"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleSource is the read side of schedule administration used by the resolver.
// Both lookups return nil, nil when nothing is stored for the key.
type ScheduleSource interface {
	FindOverride(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error)
	FindWeeklyConfig(ctx context.Context, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error)
}

type dbScheduleSource struct {
	db           *gorm.DB
	weeklyRepo   repository.WeeklyScheduleRepository
	overrideRepo repository.DateOverrideRepository
}

func NewScheduleSource(
	db *gorm.DB,
	weeklyRepo repository.WeeklyScheduleRepository,
	overrideRepo repository.DateOverrideRepository,
) ScheduleSource {
	return &dbScheduleSource{
		db:           db,
		weeklyRepo:   weeklyRepo,
		overrideRepo: overrideRepo,
	}
}

func (s *dbScheduleSource) FindOverride(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error) {
	return s.overrideRepo.FindByKey(s.db.WithContext(ctx), doctorID, dispensaryID, date)
}

// FindWeeklyConfig returns the active config for the weekday, or the most recently edited
// inactive one so its pace and cutover can still back a modified override.
func (s *dbScheduleSource) FindWeeklyConfig(ctx context.Context, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	return s.weeklyRepo.FindLatest(s.db.WithContext(ctx), doctorID, dispensaryID, day)
}
