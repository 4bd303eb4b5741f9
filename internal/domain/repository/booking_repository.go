package repository

import (
	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(db *gorm.DB, booking *entity.Booking) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	FindByCorrelationID(db *gorm.DB, correlationID string) (*entity.Booking, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Booking, error)
	FindBySession(db *gorm.DB, filter *entity.SessionFilter) ([]entity.Booking, error)
	CancelBooking(db *gorm.DB, id uuid.UUID) (int64, error)
}
