package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispensary-queue/internal/converter"
	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/delivery/http/middleware"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"
	"dispensary-queue/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingNotOwned         = errors.New("booking does not belong to you")
	ErrIdempotencyKeyReused    = errors.New("idempotency key was already used for a different booking")
	ErrUserNotInContext        = errors.New("user not found in context")
)

// BookingGate is the queue engine as seen by the booking usecases.
type BookingGate interface {
	Reserve(ctx context.Context, req service.ReserveRequest) (*entity.ReservationResult, error)
	GetAvailability(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.Availability, error)
}

type BookingUsecase interface {
	CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	CreateWalkInBooking(ctx context.Context, req *dto.CreateWalkInBookingRequest) (*dto.BookingResponse, error)
	GetMyBookings(ctx context.Context) (*dto.BookingListResponse, error)
	ListSessionBookings(ctx context.Context, req *dto.SessionBookingsRequest) (*dto.BookingListResponse, error)
	CancelMyBooking(ctx context.Context, bookingID uuid.UUID) error
	CancelBooking(ctx context.Context, bookingID uuid.UUID) error
}

type bookingUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	bookingRepo  repository.BookingRepository
	gate         BookingGate
	auditService service.AuditService
	publisher    service.EventPublisher
	walkInBypass bool
	now          func() time.Time
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	bookingRepo repository.BookingRepository,
	gate BookingGate,
	auditService service.AuditService,
	publisher service.EventPublisher,
	walkInBypassCutover bool,
) BookingUsecase {
	return &bookingUsecase{
		db:           db,
		log:          log,
		bookingRepo:  bookingRepo,
		gate:         gate,
		auditService: auditService,
		publisher:    publisher,
		walkInBypass: walkInBypassCutover,
		now:          time.Now,
	}
}

// reservation carries what both booking channels need to reserve and persist a booking.
type reservation struct {
	doctorID      uuid.UUID
	dispensaryID  uuid.UUID
	date          string
	policy        entity.ChannelPolicy
	correlationID string
	patientID     *uuid.UUID
	patientName   string
	patientPhone  string
	actorID       uuid.UUID
	auditAction   string
}

// CreateBooking reserves the next number for the logged-in patient.
// The cutover rule always applies on this channel.
func (u *bookingUsecase) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUserNotInContext
	}

	return u.reserveAndPersist(ctx, reservation{
		doctorID:      req.DoctorID,
		dispensaryID:  req.DispensaryID,
		date:          req.Date,
		policy:        entity.PatientPolicy(),
		correlationID: req.CorrelationID,
		patientID:     &userID,
		patientName:   req.PatientName,
		patientPhone:  req.PatientPhone,
		actorID:       userID,
		auditAction:   entity.AuditActionBookingReserve,
	})
}

// CreateWalkInBooking reserves a number on behalf of a patient at the dispensary counter.
func (u *bookingUsecase) CreateWalkInBooking(ctx context.Context, req *dto.CreateWalkInBookingRequest) (*dto.BookingResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUserNotInContext
	}

	return u.reserveAndPersist(ctx, reservation{
		doctorID:      req.DoctorID,
		dispensaryID:  req.DispensaryID,
		date:          req.Date,
		policy:        entity.ChannelPolicy{Channel: entity.ChannelWalkIn, BypassCutover: u.walkInBypass},
		correlationID: req.CorrelationID,
		patientID:     req.PatientID,
		patientName:   req.PatientName,
		patientPhone:  req.PatientPhone,
		actorID:       userID,
		auditAction:   entity.AuditActionBookingWalkIn,
	})
}

// reserveAndPersist runs the reservation and stores the booking.
//
// Flow:
// 1. Replay: a booking already stored under the correlation id is returned as is
// 2. Reserve through the queue engine (the correlation id also guards the allocation)
// 3. Insert booking + audit log in one transaction
// 4. Publish booking.reserved
//
// If step 3 fails the issued number is not given back; a retry with the same
// correlation id receives the same number and completes the booking.
func (u *bookingUsecase) reserveAndPersist(ctx context.Context, r reservation) (*dto.BookingResponse, error) {
	date, err := time.Parse(entity.DateLayout, r.date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	correlationID := scopedCorrelationID(r.actorID, r.correlationID)

	// Step 1: Replay
	existing, err := u.bookingRepo.FindByCorrelationID(u.db.WithContext(ctx), correlationID)
	if err != nil {
		u.log.Warnf("Failed to look up booking by correlation id %s: %+v", correlationID, err)
		return nil, err
	}
	if existing != nil {
		return u.replay(existing, r, date)
	}

	// Step 2: Reserve
	result, err := u.gate.Reserve(ctx, service.ReserveRequest{
		DoctorID:      r.doctorID,
		DispensaryID:  r.dispensaryID,
		Date:          date,
		Policy:        r.policy,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}

	// Step 3: Persist
	booking := &entity.Booking{
		PatientID:         r.patientID,
		PatientName:       r.patientName,
		PatientPhone:      r.patientPhone,
		DoctorID:          r.doctorID,
		DispensaryID:      r.dispensaryID,
		AppointmentDate:   result.Key.Date,
		AppointmentNumber: result.AppointmentNumber,
		EstimatedTime:     result.EstimatedTime,
		TimeSlot:          result.TimeSlotLabel,
		IsModifiedSession: result.IsModified,
		Overflow:          result.Overflow,
		Channel:           r.policy.Channel,
		CorrelationID:     correlationID,
		BookingCode:       generateBookingCode(result.Key.Date),
		Status:            entity.BookingStatusScheduled,
		CreatedBy:         &r.actorID,
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.bookingRepo.Create(tx, booking); err != nil {
			return err
		}
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  &r.actorID,
			Action:   r.auditAction,
			Entity:   "booking",
			EntityID: booking.ID.String(),
			After:    converter.BookingToResponse(booking),
		})
	})
	if err != nil {
		if isUniqueViolation(err, "correlation_id") {
			// A concurrent retry with the same key stored the booking first.
			stored, findErr := u.bookingRepo.FindByCorrelationID(u.db.WithContext(ctx), correlationID)
			if findErr == nil && stored != nil {
				return u.replay(stored, r, date)
			}
		}
		u.log.Errorf("Appointment %d for %s was issued but the booking was not saved (correlation %s): %+v",
			result.AppointmentNumber, result.Key, correlationID, err)
		return nil, err
	}

	// Step 4: Publish
	u.publish(ctx, service.EventBookingReserved, booking)

	u.log.Infof("Booking created: id=%s, key=%s, number=%d, code=%s, channel=%s",
		booking.ID, result.Key, booking.AppointmentNumber, booking.BookingCode, booking.Channel)
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) replay(existing *entity.Booking, r reservation, date time.Time) (*dto.BookingResponse, error) {
	if existing.DoctorID != r.doctorID ||
		existing.DispensaryID != r.dispensaryID ||
		existing.AppointmentDate.Format(entity.DateLayout) != date.Format(entity.DateLayout) {
		return nil, ErrIdempotencyKeyReused
	}
	u.log.Infof("Replayed booking %s for correlation id %s", existing.ID, existing.CorrelationID)
	return converter.BookingToResponse(existing), nil
}

// GetMyBookings returns all bookings for the logged-in patient
func (u *bookingUsecase) GetMyBookings(ctx context.Context) (*dto.BookingListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUserNotInContext
	}

	bookings, err := u.bookingRepo.FindByPatientID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find bookings for patient %s: %+v", userID, err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

// ListSessionBookings returns the bookings of one session in appointment number order.
func (u *bookingUsecase) ListSessionBookings(ctx context.Context, req *dto.SessionBookingsRequest) (*dto.BookingListResponse, error) {
	if _, err := time.Parse(entity.DateLayout, req.Date); err != nil {
		return nil, ErrInvalidDate
	}

	bookings, err := u.bookingRepo.FindBySession(u.db.WithContext(ctx), &entity.SessionFilter{
		DoctorID:       req.DoctorID,
		DispensaryID:   req.DispensaryID,
		Date:           req.Date,
		IncludeCancels: req.IncludeCancelled,
	})
	if err != nil {
		u.log.Warnf("Failed to list bookings for doctor %s on %s: %+v", req.DoctorID, req.Date, err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

// CancelMyBooking cancels a booking owned by the logged-in patient.
func (u *bookingUsecase) CancelMyBooking(ctx context.Context, bookingID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUserNotInContext
	}
	return u.cancel(ctx, bookingID, userID, true)
}

// CancelBooking cancels any booking on behalf of dispensary staff.
func (u *bookingUsecase) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUserNotInContext
	}
	return u.cancel(ctx, bookingID, userID, false)
}

// cancel marks the booking cancelled. The queue counter is never touched:
// the appointment number stays spent and is not issued again.
func (u *bookingUsecase) cancel(ctx context.Context, bookingID, actorID uuid.UUID, requireOwner bool) error {
	booking, err := u.bookingRepo.FindByID(u.db.WithContext(ctx), bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return err
	}
	if booking == nil {
		return ErrBookingNotFound
	}
	if requireOwner && !booking.IsOwnedBy(actorID) {
		return ErrBookingNotOwned
	}
	if booking.IsCancelled() {
		return ErrBookingAlreadyCancelled
	}

	before := converter.BookingToResponse(booking)

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.bookingRepo.CancelBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrBookingAlreadyCancelled
		}

		booking.Cancel()
		return u.auditService.Record(tx, service.AuditEntry{
			ActorID:  &actorID,
			Action:   entity.AuditActionBookingCancel,
			Entity:   "booking",
			EntityID: bookingID.String(),
			Before:   before,
			After:    converter.BookingToResponse(booking),
		})
	})
	if err != nil {
		if !errors.Is(err, ErrBookingAlreadyCancelled) {
			u.log.Warnf("Failed to cancel booking %s: %+v", bookingID, err)
		}
		return err
	}

	u.publish(ctx, service.EventBookingCancelled, booking)

	u.log.Infof("Booking cancelled: id=%s, key=%s, number=%d", bookingID, booking.Key(), booking.AppointmentNumber)
	return nil
}

// publish is best effort: the booking is already committed.
func (u *bookingUsecase) publish(ctx context.Context, eventType string, booking *entity.Booking) {
	event := service.BookingEvent{
		Type:              eventType,
		BookingID:         booking.ID,
		BookingCode:       booking.BookingCode,
		DoctorID:          booking.DoctorID,
		DispensaryID:      booking.DispensaryID,
		AppointmentDate:   booking.AppointmentDate.Format(entity.DateLayout),
		AppointmentNumber: booking.AppointmentNumber,
		EstimatedTime:     booking.EstimatedTime.String(),
		Channel:           string(booking.Channel),
		OccurredAt:        u.now().UTC(),
	}
	if err := u.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		u.log.Warnf("Failed to publish %s for booking %s (non-fatal): %+v", eventType, booking.ID, err)
	}
}

// scopedCorrelationID namespaces a client idempotency key by the caller so two users
// cannot collide on the same key. Without a key every request is a new reservation.
func scopedCorrelationID(actorID uuid.UUID, key string) string {
	if key == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s:%s", actorID, key)
}

// generateBookingCode generates a unique booking code: BK-YYYYMMDD-XXXXXX
func generateBookingCode(date time.Time) string {
	dateStr := date.Format("20060102")
	randomBytes := make([]byte, 3)
	rand.Read(randomBytes)
	return fmt.Sprintf("BK-%s-%06X", dateStr, randomBytes)
}

// isUniqueViolation checks for PostgreSQL error code 23505 on a constraint
// whose name contains the given fragment.
func isUniqueViolation(err error, constraintFragment string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, constraintFragment)
	}
	return false
}
