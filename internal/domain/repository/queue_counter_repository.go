package repository

import (
	"time"

	"dispensary-queue/internal/domain/entity"

	"gorm.io/gorm"
)

type QueueCounterRepository interface {
	// IncrementIfBelow atomically bumps the key's counter when it is below capacity,
	// creating the row on first use. ok=false means the counter is already at capacity.
	IncrementIfBelow(db *gorm.DB, key entity.QueueKey, capacity int) (number int, ok bool, err error)
	// RaiseTo lifts the counter to at least number, never lowering it.
	RaiseTo(db *gorm.DB, key entity.QueueKey, number int) error
	Current(db *gorm.DB, key entity.QueueKey) (int, error)
	// HighWaterMark is the highest number known to be issued for key, from the counter or from bookings.
	HighWaterMark(db *gorm.DB, key entity.QueueKey) (int, error)
	FindFrom(db *gorm.DB, from time.Time, limit, offset int) ([]entity.QueueCounter, error)

	FindAllocation(db *gorm.DB, correlationID string) (*entity.QueueAllocation, error)
	CreateAllocation(db *gorm.DB, allocation *entity.QueueAllocation) error
}
