package service

import (
	"context"
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// AvailabilityResolver merges weekly configs and date overrides into the session in effect for a key.
type AvailabilityResolver struct {
	source         ScheduleSource
	loc            *time.Location
	defaultCutover int
	log            *logrus.Logger
}

func NewAvailabilityResolver(source ScheduleSource, loc *time.Location, defaultCutoverMinutes int, log *logrus.Logger) *AvailabilityResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityResolver{
		source:         source,
		loc:            loc,
		defaultCutover: defaultCutoverMinutes,
		log:            log,
	}
}

// Day places date's calendar day at midnight in the service timezone.
func (r *AvailabilityResolver) Day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}

// Resolve returns the session for (doctor, dispensary, date) as seen at now.
// Unavailability is reported through Resolution.Reason; the error is only set for store failures.
func (r *AvailabilityResolver) Resolve(
	ctx context.Context,
	doctorID, dispensaryID uuid.UUID,
	date, now time.Time,
	policy entity.ChannelPolicy,
) (entity.Resolution, error) {
	day := r.Day(date)

	var (
		override *entity.DateOverride
		weekly   *entity.WeeklyScheduleConfig
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		override, err = r.source.FindOverride(gctx, doctorID, dispensaryID, day)
		return err
	})
	g.Go(func() error {
		var err error
		weekly, err = r.source.FindWeeklyConfig(gctx, doctorID, dispensaryID, day.Weekday())
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.Resolution{}, &TransientError{Op: "resolve session", Err: err}
	}

	var res entity.Resolution
	switch {
	case override != nil && override.IsAbsence():
		return entity.Resolution{Source: entity.SourceAbsent, Reason: entity.ReasonAbsent}, nil

	case override != nil:
		window, ok := modifiedWindow(override, weekly)
		if !ok {
			r.log.Warnf("Date override %d for doctor %s on %s is missing session fields, treating as no schedule",
				override.ID, doctorID, day.Format(entity.DateLayout))
			return entity.Resolution{Source: entity.SourceNoConfig, Reason: entity.ReasonNoConfig}, nil
		}
		res = entity.Resolution{Source: entity.SourceModifiedOverride, Window: &window}

	case weekly == nil || !weekly.IsActive:
		return entity.Resolution{Source: entity.SourceNoConfig, Reason: entity.ReasonNoConfig}, nil

	default:
		window := weekly.Window()
		res = entity.Resolution{Source: entity.SourceWeeklyConfig, Window: &window}
	}

	cutover := r.defaultCutover
	if weekly != nil {
		cutover = weekly.BookingCutoverMinutes
	}
	res.CutoverAt = res.Window.StartTime.Add(-cutover).On(day)

	today := r.Day(now.In(r.loc))
	switch {
	case day.Before(today):
		res.Reason = entity.ReasonCutoverPassed
	case day.Equal(today) && !policy.BypassCutover && now.After(res.CutoverAt):
		res.Reason = entity.ReasonCutoverPassed
	}

	return res, nil
}

// modifiedWindow builds the session described by a modified override. minutesPerPatient falls
// back to the weekly config, then to the window length divided by capacity.
func modifiedWindow(o *entity.DateOverride, weekly *entity.WeeklyScheduleConfig) (entity.SessionWindow, bool) {
	if o.StartTime == nil || o.EndTime == nil || o.MaxPatients == nil {
		return entity.SessionWindow{}, false
	}
	if *o.StartTime >= *o.EndTime || *o.MaxPatients <= 0 {
		return entity.SessionWindow{}, false
	}

	window := entity.SessionWindow{
		StartTime:   *o.StartTime,
		EndTime:     *o.EndTime,
		MaxPatients: *o.MaxPatients,
		IsModified:  true,
	}

	switch {
	case o.MinutesPerPatient != nil && *o.MinutesPerPatient > 0:
		window.MinutesPerPatient = *o.MinutesPerPatient
	case weekly != nil && weekly.MinutesPerPatient > 0:
		window.MinutesPerPatient = weekly.MinutesPerPatient
	default:
		window.MinutesPerPatient = max(1, int(window.EndTime-window.StartTime)/window.MaxPatients)
	}

	return window, true
}
