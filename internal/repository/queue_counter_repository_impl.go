package repository

import (
	"time"

	"dispensary-queue/internal/domain/entity"
	domainRepo "dispensary-queue/internal/domain/repository"

	"gorm.io/gorm"
)

// incrementIfBelowSQL is the compare-and-increment primitive: the row lock taken by
// ON CONFLICT serializes callers on one key, and the WHERE guard makes a full session
// return no row instead of exceeding capacity.
const incrementIfBelowSQL = `
INSERT INTO queue_counters (dispensary_id, doctor_id, queue_date, current_number, last_updated)
SELECT ?::uuid, ?::uuid, ?::date, 1, NOW()
WHERE ?::int > 0
ON CONFLICT (dispensary_id, doctor_id, queue_date)
DO UPDATE SET current_number = queue_counters.current_number + 1, last_updated = NOW()
WHERE queue_counters.current_number < ?::int
RETURNING current_number`

const raiseToSQL = `
INSERT INTO queue_counters (dispensary_id, doctor_id, queue_date, current_number, last_updated)
VALUES (?::uuid, ?::uuid, ?::date, ?::int, NOW())
ON CONFLICT (dispensary_id, doctor_id, queue_date)
DO UPDATE SET current_number = GREATEST(queue_counters.current_number, EXCLUDED.current_number), last_updated = NOW()`

const currentNumberSQL = `
SELECT current_number FROM queue_counters
WHERE dispensary_id = ?::uuid AND doctor_id = ?::uuid AND queue_date = ?::date`

// highWaterMarkSQL also looks at persisted bookings so a counter that lagged behind a
// mirrored allocation is never seeded below a number already handed out.
const highWaterMarkSQL = `
SELECT GREATEST(
	COALESCE((SELECT current_number FROM queue_counters
		WHERE dispensary_id = ?::uuid AND doctor_id = ?::uuid AND queue_date = ?::date), 0),
	COALESCE((SELECT MAX(appointment_number) FROM bookings
		WHERE dispensary_id = ?::uuid AND doctor_id = ?::uuid AND appointment_date = ?::date), 0)
) AS current_number`

const findAllocationSQL = `
SELECT correlation_id, dispensary_id, doctor_id, queue_date, appointment_number, created_at
FROM queue_allocations WHERE correlation_id = ?`

const createAllocationSQL = `
INSERT INTO queue_allocations (correlation_id, dispensary_id, doctor_id, queue_date, appointment_number, created_at)
VALUES (?, ?::uuid, ?::uuid, ?::date, ?::int, NOW())`

type queueCounterRepository struct{}

func NewQueueCounterRepository() domainRepo.QueueCounterRepository {
	return &queueCounterRepository{}
}

func (r *queueCounterRepository) IncrementIfBelow(db *gorm.DB, key entity.QueueKey, capacity int) (int, bool, error) {
	var row struct {
		CurrentNumber int
	}
	result := db.Raw(incrementIfBelowSQL, key.DispensaryID, key.DoctorID, key.DateString(), capacity, capacity).Scan(&row)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return row.CurrentNumber, true, nil
}

func (r *queueCounterRepository) RaiseTo(db *gorm.DB, key entity.QueueKey, number int) error {
	return db.Exec(raiseToSQL, key.DispensaryID, key.DoctorID, key.DateString(), number).Error
}

func (r *queueCounterRepository) Current(db *gorm.DB, key entity.QueueKey) (int, error) {
	var row struct {
		CurrentNumber int
	}
	result := db.Raw(currentNumberSQL, key.DispensaryID, key.DoctorID, key.DateString()).Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	return row.CurrentNumber, nil
}

func (r *queueCounterRepository) HighWaterMark(db *gorm.DB, key entity.QueueKey) (int, error) {
	var row struct {
		CurrentNumber int
	}
	date := key.DateString()
	err := db.Raw(highWaterMarkSQL,
		key.DispensaryID, key.DoctorID, date,
		key.DispensaryID, key.DoctorID, date,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.CurrentNumber, nil
}

func (r *queueCounterRepository) FindFrom(db *gorm.DB, from time.Time, limit, offset int) ([]entity.QueueCounter, error) {
	var counters []entity.QueueCounter
	err := db.Where("queue_date >= ?", from.Format(entity.DateLayout)).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&counters).Error
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (r *queueCounterRepository) FindAllocation(db *gorm.DB, correlationID string) (*entity.QueueAllocation, error) {
	var allocation entity.QueueAllocation
	result := db.Raw(findAllocationSQL, correlationID).Scan(&allocation)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &allocation, nil
}

func (r *queueCounterRepository) CreateAllocation(db *gorm.DB, allocation *entity.QueueAllocation) error {
	return db.Exec(createAllocationSQL,
		allocation.CorrelationID,
		allocation.DispensaryID,
		allocation.DoctorID,
		allocation.QueueDate.Format(entity.DateLayout),
		allocation.AppointmentNumber,
	).Error
}
