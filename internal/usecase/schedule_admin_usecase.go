package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"dispensary-queue/internal/converter"
	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/delivery/http/middleware"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"
	"dispensary-queue/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrWeeklyScheduleNotFound    = errors.New("weekly schedule not found")
	ErrOverrideNotFound          = errors.New("date override not found")
	ErrInvalidSessionWindow      = errors.New("start_time must be before end_time")
	ErrActiveScheduleExists      = errors.New("an active schedule already exists for this doctor, dispensary and weekday")
	ErrModifiedSessionIncomplete = errors.New("a modified session requires start_time, end_time and max_patients")
)

// ScheduleInvalidator drops cached schedule reads after an edit.
type ScheduleInvalidator interface {
	Invalidate()
}

type ScheduleAdminUsecase interface {
	CreateWeeklySchedule(ctx context.Context, req *dto.CreateWeeklyScheduleRequest) (*dto.WeeklyScheduleResponse, error)
	GetWeeklySchedule(ctx context.Context, id int) (*dto.WeeklyScheduleResponse, error)
	ListWeeklySchedules(ctx context.Context, doctorID uuid.UUID) (*dto.WeeklyScheduleListResponse, error)
	UpdateWeeklySchedule(ctx context.Context, id int, req *dto.UpdateWeeklyScheduleRequest) (*dto.WeeklyScheduleResponse, error)
	DeactivateWeeklySchedule(ctx context.Context, id int) error

	SaveOverride(ctx context.Context, req *dto.SaveOverrideRequest) (*dto.OverrideResponse, error)
	GetOverride(ctx context.Context, id int) (*dto.OverrideResponse, error)
	ListOverrides(ctx context.Context, req *dto.OverrideListRequest) (*dto.OverrideListResponse, error)
	DeleteOverride(ctx context.Context, id int) error
}

type scheduleAdminUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	weeklyRepo   repository.WeeklyScheduleRepository
	overrideRepo repository.DateOverrideRepository
	auditService service.AuditService
	cache        ScheduleInvalidator
}

func NewScheduleAdminUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	weeklyRepo repository.WeeklyScheduleRepository,
	overrideRepo repository.DateOverrideRepository,
	auditService service.AuditService,
	cache ScheduleInvalidator,
) ScheduleAdminUsecase {
	return &scheduleAdminUsecase{
		db:           db,
		log:          log,
		weeklyRepo:   weeklyRepo,
		overrideRepo: overrideRepo,
		auditService: auditService,
		cache:        cache,
	}
}

func (u *scheduleAdminUsecase) CreateWeeklySchedule(ctx context.Context, req *dto.CreateWeeklyScheduleRequest) (*dto.WeeklyScheduleResponse, error) {
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	config := &entity.WeeklyScheduleConfig{
		DoctorID:              req.DoctorID,
		DispensaryID:          req.DispensaryID,
		DayOfWeek:             time.Weekday(*req.DayOfWeek),
		StartTime:             start,
		EndTime:               end,
		MaxPatients:           req.MaxPatients,
		MinutesPerPatient:     req.MinutesPerPatient,
		BookingCutoverMinutes: req.BookingCutoverMinutes,
		IsActive:              isActive,
	}

	actorID := actorFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if config.IsActive {
			if err := u.ensureNoOtherActive(tx, config); err != nil {
				return err
			}
		}
		if err := u.weeklyRepo.Create(tx, config); err != nil {
			return err
		}
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  actorID,
			Action:   entity.AuditActionWeeklyCreate,
			Entity:   "weekly_schedule",
			EntityID: strconv.Itoa(config.ID),
			After:    converter.WeeklyScheduleToResponse(config),
		})
	})
	if err != nil {
		return nil, u.weeklyWriteError("create", err)
	}

	u.cache.Invalidate()
	u.log.Infof("Weekly schedule created: id=%d, doctor=%s, day=%s", config.ID, config.DoctorID, config.DayOfWeek)
	return converter.WeeklyScheduleToResponse(config), nil
}

func (u *scheduleAdminUsecase) GetWeeklySchedule(ctx context.Context, id int) (*dto.WeeklyScheduleResponse, error) {
	config, err := u.weeklyRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find weekly schedule %d: %+v", id, err)
		return nil, err
	}
	if config == nil {
		return nil, ErrWeeklyScheduleNotFound
	}
	return converter.WeeklyScheduleToResponse(config), nil
}

func (u *scheduleAdminUsecase) ListWeeklySchedules(ctx context.Context, doctorID uuid.UUID) (*dto.WeeklyScheduleListResponse, error) {
	configs, err := u.weeklyRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to list weekly schedules for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.WeeklyScheduleListResponse{
		Schedules: converter.WeeklySchedulesToResponses(configs),
		Total:     len(configs),
	}, nil
}

// UpdateWeeklySchedule applies the non-nil fields of req. Issued appointment numbers are not
// renumbered; a lower capacity only stops further allocations.
func (u *scheduleAdminUsecase) UpdateWeeklySchedule(ctx context.Context, id int, req *dto.UpdateWeeklyScheduleRequest) (*dto.WeeklyScheduleResponse, error) {
	actorID := actorFromContext(ctx)

	var updated *entity.WeeklyScheduleConfig
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		config, err := u.weeklyRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if config == nil {
			return ErrWeeklyScheduleNotFound
		}
		before := converter.WeeklyScheduleToResponse(config)

		if req.StartTime != nil {
			if config.StartTime, err = entity.ParseClockTime(*req.StartTime); err != nil {
				return err
			}
		}
		if req.EndTime != nil {
			if config.EndTime, err = entity.ParseClockTime(*req.EndTime); err != nil {
				return err
			}
		}
		if config.StartTime >= config.EndTime {
			return ErrInvalidSessionWindow
		}
		if req.MaxPatients != nil {
			config.MaxPatients = *req.MaxPatients
		}
		if req.MinutesPerPatient != nil {
			config.MinutesPerPatient = *req.MinutesPerPatient
		}
		if req.BookingCutoverMinutes != nil {
			config.BookingCutoverMinutes = *req.BookingCutoverMinutes
		}
		if req.IsActive != nil {
			if *req.IsActive && !config.IsActive {
				if err := u.ensureNoOtherActive(tx, config); err != nil {
					return err
				}
			}
			config.IsActive = *req.IsActive
		}

		if err := u.weeklyRepo.Update(tx, config); err != nil {
			return err
		}
		updated = config

		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  actorID,
			Action:   entity.AuditActionWeeklyUpdate,
			Entity:   "weekly_schedule",
			EntityID: strconv.Itoa(id),
			Before:   before,
			After:    converter.WeeklyScheduleToResponse(config),
		})
	})
	if err != nil {
		return nil, u.weeklyWriteError("update", err)
	}

	u.cache.Invalidate()
	u.log.Infof("Weekly schedule updated: id=%d", id)
	return converter.WeeklyScheduleToResponse(updated), nil
}

// DeactivateWeeklySchedule turns the weekday off. The row is kept so later overrides can still
// borrow its pace and cutover.
func (u *scheduleAdminUsecase) DeactivateWeeklySchedule(ctx context.Context, id int) error {
	actorID := actorFromContext(ctx)

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		config, err := u.weeklyRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if config == nil {
			return ErrWeeklyScheduleNotFound
		}

		rows, err := u.weeklyRepo.Deactivate(tx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Already inactive
			return nil
		}

		before := converter.WeeklyScheduleToResponse(config)
		config.IsActive = false
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  actorID,
			Action:   entity.AuditActionWeeklyDisable,
			Entity:   "weekly_schedule",
			EntityID: strconv.Itoa(id),
			Before:   before,
			After:    converter.WeeklyScheduleToResponse(config),
		})
	})
	if err != nil {
		return u.weeklyWriteError("deactivate", err)
	}

	u.cache.Invalidate()
	u.log.Infof("Weekly schedule deactivated: id=%d", id)
	return nil
}

// SaveOverride creates or replaces the override for (doctor, dispensary, date).
func (u *scheduleAdminUsecase) SaveOverride(ctx context.Context, req *dto.SaveOverrideRequest) (*dto.OverrideResponse, error) {
	date, err := time.Parse(entity.DateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	override := &entity.DateOverride{
		DoctorID:          req.DoctorID,
		DispensaryID:      req.DispensaryID,
		OverrideDate:      date,
		IsModifiedSession: req.IsModifiedSession,
		Reason:            req.Reason,
	}

	// An absence carries no session fields.
	if req.IsModifiedSession {
		if req.StartTime == nil || req.EndTime == nil || req.MaxPatients == nil {
			return nil, ErrModifiedSessionIncomplete
		}
		start, end, err := parseWindow(*req.StartTime, *req.EndTime)
		if err != nil {
			return nil, err
		}
		override.StartTime = &start
		override.EndTime = &end
		override.MaxPatients = req.MaxPatients
		override.MinutesPerPatient = req.MinutesPerPatient
	}

	actorID := actorFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := u.overrideRepo.FindByKey(tx, req.DoctorID, req.DispensaryID, date)
		if err != nil {
			return err
		}
		if err := u.overrideRepo.Upsert(tx, override); err != nil {
			return err
		}
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  actorID,
			Action:   entity.AuditActionOverrideSave,
			Entity:   "date_override",
			EntityID: strconv.Itoa(override.ID),
			Before:   converter.OverrideToResponse(previous),
			After:    converter.OverrideToResponse(override),
		})
	})
	if err != nil {
		u.log.Warnf("Failed to save date override for doctor %s on %s: %+v", req.DoctorID, req.Date, err)
		return nil, err
	}

	u.cache.Invalidate()
	u.log.Infof("Date override saved: id=%d, doctor=%s, date=%s, modified=%t",
		override.ID, override.DoctorID, req.Date, override.IsModifiedSession)
	return converter.OverrideToResponse(override), nil
}

func (u *scheduleAdminUsecase) GetOverride(ctx context.Context, id int) (*dto.OverrideResponse, error) {
	override, err := u.overrideRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find date override %d: %+v", id, err)
		return nil, err
	}
	if override == nil {
		return nil, ErrOverrideNotFound
	}
	return converter.OverrideToResponse(override), nil
}

func (u *scheduleAdminUsecase) ListOverrides(ctx context.Context, req *dto.OverrideListRequest) (*dto.OverrideListResponse, error) {
	overrides, err := u.overrideRepo.FindAll(u.db.WithContext(ctx), &entity.OverrideFilter{
		DoctorID:     req.DoctorID,
		DispensaryID: req.DispensaryID,
		From:         req.From,
		To:           req.To,
	})
	if err != nil {
		u.log.Warnf("Failed to list date overrides for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}

	return &dto.OverrideListResponse{
		Overrides: converter.OverridesToResponses(overrides),
		Total:     len(overrides),
	}, nil
}

func (u *scheduleAdminUsecase) DeleteOverride(ctx context.Context, id int) error {
	actorID := actorFromContext(ctx)

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		override, err := u.overrideRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if override == nil {
			return ErrOverrideNotFound
		}

		if _, err := u.overrideRepo.Delete(tx, id); err != nil {
			return err
		}
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  actorID,
			Action:   entity.AuditActionOverrideDelete,
			Entity:   "date_override",
			EntityID: strconv.Itoa(id),
			Before:   converter.OverrideToResponse(override),
		})
	})
	if err != nil {
		if !errors.Is(err, ErrOverrideNotFound) {
			u.log.Warnf("Failed to delete date override %d: %+v", id, err)
		}
		return err
	}

	u.cache.Invalidate()
	u.log.Infof("Date override deleted: id=%d", id)
	return nil
}

func (u *scheduleAdminUsecase) ensureNoOtherActive(tx *gorm.DB, config *entity.WeeklyScheduleConfig) error {
	active, err := u.weeklyRepo.FindActive(tx, config.DoctorID, config.DispensaryID, config.DayOfWeek)
	if err != nil {
		return err
	}
	if active != nil && active.ID != config.ID {
		return ErrActiveScheduleExists
	}
	return nil
}

// weeklyWriteError maps the partial unique index on active configs to ErrActiveScheduleExists.
func (u *scheduleAdminUsecase) weeklyWriteError(op string, err error) error {
	if isUniqueViolation(err, "weekly_active") {
		return ErrActiveScheduleExists
	}
	switch {
	case errors.Is(err, ErrWeeklyScheduleNotFound),
		errors.Is(err, ErrActiveScheduleExists),
		errors.Is(err, ErrInvalidSessionWindow),
		errors.Is(err, entity.ErrInvalidClockTime):
		return err
	}
	u.log.Warnf("Failed to %s weekly schedule: %+v", op, err)
	return err
}

func parseWindow(startStr, endStr string) (entity.ClockTime, entity.ClockTime, error) {
	start, err := entity.ParseClockTime(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := entity.ParseClockTime(endStr)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, ErrInvalidSessionWindow
	}
	return start, end, nil
}

func actorFromContext(ctx context.Context) *uuid.UUID {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &userID
}
