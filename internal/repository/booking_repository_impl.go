package repository

import (
	"errors"

	"dispensary-queue/internal/domain/entity"
	domainRepo "dispensary-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	return db.Create(booking).Error
}

func (r *bookingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByCorrelationID(db *gorm.DB, correlationID string) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Where("correlation_id = ?", correlationID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Where("patient_id = ?", patientID).
		Order("appointment_date DESC, appointment_number ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindBySession(db *gorm.DB, filter *entity.SessionFilter) ([]entity.Booking, error) {
	var bookings []entity.Booking
	query := db.Where("doctor_id = ? AND dispensary_id = ? AND appointment_date = ?", filter.DoctorID, filter.DispensaryID, filter.Date)
	if !filter.IncludeCancels {
		query = query.Where("status != ?", entity.BookingStatusCancelled)
	}
	err := query.Order("appointment_number ASC").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking atomically cancels a booking ONLY if it's not already cancelled.
// Returns affected rows: 1 = success, 0 = already cancelled (prevents double-cancel race).
func (r *bookingRepository) CancelBooking(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Booking{}).
		Where("id = ? AND status != ?", id, entity.BookingStatusCancelled).
		Update("status", entity.BookingStatusCancelled)
	return result.RowsAffected, result.Error
}
