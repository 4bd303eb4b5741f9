package service

import (
	"context"
	"errors"
	"time"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReserveRequest asks for the next appointment number of a session.
// CorrelationID makes retries safe; one is generated when empty.
type ReserveRequest struct {
	DoctorID      uuid.UUID
	DispensaryID  uuid.UUID
	Date          time.Time
	Policy        entity.ChannelPolicy
	CorrelationID string
}

// BookingGate performs the reserve-a-slot operation: resolve the session, allocate a number,
// estimate its time. Only the allocation step touches shared state.
type BookingGate struct {
	resolver *AvailabilityResolver
	counter  QueueCounter
	metrics  *metrics.Metrics
	timeout  time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

func NewBookingGate(
	resolver *AvailabilityResolver,
	counter QueueCounter,
	m *metrics.Metrics,
	timeout time.Duration,
	log *logrus.Logger,
) *BookingGate {
	return &BookingGate{
		resolver: resolver,
		counter:  counter,
		metrics:  m,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Reserve returns the reservation or one of: *AvailabilityError, ErrFullyBooked,
// ErrCorrelationConflict, *TransientError.
func (g *BookingGate) Reserve(ctx context.Context, req ReserveRequest) (*entity.ReservationResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	channel := string(req.Policy.Channel)

	res, err := g.resolver.Resolve(ctx, req.DoctorID, req.DispensaryID, req.Date, g.now(), req.Policy)
	if err != nil {
		g.log.Warnf("Failed to resolve session for doctor %s: %+v", req.DoctorID, err)
		g.metrics.RecordReservation(channel, "transient")
		return nil, err
	}

	key := entity.QueueKey{
		DispensaryID: req.DispensaryID,
		DoctorID:     req.DoctorID,
		Date:         g.resolver.Day(req.Date),
	}

	// A retry that already holds a number keeps it even once the session closed for new bookings.
	if res.Reason == entity.ReasonCutoverPassed && req.CorrelationID != "" {
		number, found, err := g.counter.Lookup(ctx, key, req.CorrelationID)
		if err != nil && !errors.Is(err, ErrCorrelationConflict) {
			g.log.Warnf("Lookup of correlation %s for %s failed: %+v", req.CorrelationID, key, err)
			g.metrics.RecordReservation(channel, "transient")
			return nil, &TransientError{Op: "look up appointment number", Err: err}
		}
		if found {
			g.log.Infof("Replayed appointment %d for %s after cutover (correlation %s)", number, key, req.CorrelationID)
			g.metrics.RecordReservation(channel, "replayed")
			return g.reservation(key, *res.Window, number, req.CorrelationID), nil
		}
	}

	if !res.Available() {
		g.metrics.RecordReservation(channel, string(res.Reason))
		return nil, &AvailabilityError{Reason: res.Reason}
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	window := *res.Window

	start := time.Now()
	number, err := g.counter.AllocateNext(ctx, key, window.MaxPatients, correlationID)
	g.metrics.ObserveAllocation(g.counter.Backend(), time.Since(start))

	if err != nil {
		switch {
		case errors.Is(err, ErrFullyBooked):
			g.metrics.RecordReservation(channel, "fully_booked")
			return nil, ErrFullyBooked
		case errors.Is(err, ErrCorrelationConflict):
			g.metrics.RecordReservation(channel, "conflict")
			return nil, ErrCorrelationConflict
		case ctx.Err() != nil:
			g.log.Warnf("Allocation for %s (correlation %s) timed out, outcome unknown: %+v", key, correlationID, err)
			g.metrics.RecordReservation(channel, "unknown")
			return nil, &TransientError{Op: "allocate appointment number", Err: err, Unknown: true}
		default:
			g.log.Warnf("Allocation for %s failed: %+v", key, err)
			g.metrics.RecordReservation(channel, "transient")
			return nil, &TransientError{Op: "allocate appointment number", Err: err}
		}
	}

	g.metrics.RecordReservation(channel, "reserved")
	return g.reservation(key, window, number, correlationID), nil
}

func (g *BookingGate) reservation(key entity.QueueKey, window entity.SessionWindow, number int, correlationID string) *entity.ReservationResult {
	estimated, overflow := Estimate(window, number)
	if overflow {
		g.log.Warnf("Appointment %d for %s is estimated at %s, after session end %s",
			number, key, estimated, window.EndTime)
	}

	return &entity.ReservationResult{
		Key:               key,
		AppointmentNumber: number,
		EstimatedTime:     estimated,
		TimeSlotLabel:     window.Label(),
		IsModified:        window.IsModified,
		Overflow:          overflow,
		CorrelationID:     correlationID,
	}
}

// GetAvailability previews a session without allocating. The next slot is currentNumber+1.
func (g *BookingGate) GetAvailability(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.Availability, error) {
	res, err := g.resolver.Resolve(ctx, doctorID, dispensaryID, date, g.now(), entity.PatientPolicy())
	if err != nil {
		return nil, err
	}

	if res.Window == nil {
		return &entity.Availability{
			Available: false,
			Reason:    res.Reason,
			Slots:     []entity.SlotPreview{},
		}, nil
	}

	key := entity.QueueKey{DispensaryID: dispensaryID, DoctorID: doctorID, Date: g.resolver.Day(date)}
	current, err := g.counter.Current(ctx, key)
	if err != nil {
		return nil, &TransientError{Op: "read queue counter", Err: err}
	}

	availability := &entity.Availability{
		Window:        res.Window,
		IsModified:    res.Window.IsModified,
		CurrentNumber: current,
		NextNumber:    current + 1,
		Slots:         []entity.SlotPreview{},
	}

	switch {
	case res.Reason != "":
		availability.Reason = res.Reason
	case current >= res.Window.MaxPatients:
		availability.Reason = entity.ReasonFullyBooked
	default:
		availability.Available = true
		availability.Slots = PreviewSlots(*res.Window, current)
	}

	return availability, nil
}
