package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// QueueKey identifies one session's queue: a dispensary, a doctor and a calendar date.
type QueueKey struct {
	DispensaryID uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
}

// DateString renders the key's date as YYYY-MM-DD.
func (k QueueKey) DateString() string {
	return k.Date.Format(DateLayout)
}

func (k QueueKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.DispensaryID, k.DoctorID, k.DateString())
}

// QueueCounter tracks how many appointment numbers were issued for a key.
// CurrentNumber only ever grows; cancellations do not give numbers back.
type QueueCounter struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DispensaryID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_queue_counter_key" json:"dispensary_id"`
	DoctorID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_queue_counter_key" json:"doctor_id"`
	QueueDate     time.Time `gorm:"type:date;not null;uniqueIndex:uq_queue_counter_key" json:"queue_date"`
	CurrentNumber int       `gorm:"not null;default:0" json:"current_number"`
	LastUpdated   time.Time `gorm:"not null" json:"last_updated"`
}

func (QueueCounter) TableName() string {
	return "queue_counters"
}

// Key returns the counter's queue key.
func (c *QueueCounter) Key() QueueKey {
	return QueueKey{DispensaryID: c.DispensaryID, DoctorID: c.DoctorID, Date: c.QueueDate}
}

// QueueAllocation remembers which number a correlation id received, so retries replay it.
type QueueAllocation struct {
	CorrelationID     string    `gorm:"primaryKey;type:varchar(128)" json:"correlation_id"`
	DispensaryID      uuid.UUID `gorm:"type:uuid;not null" json:"dispensary_id"`
	DoctorID          uuid.UUID `gorm:"type:uuid;not null" json:"doctor_id"`
	QueueDate         time.Time `gorm:"type:date;not null" json:"queue_date"`
	AppointmentNumber int       `gorm:"not null" json:"appointment_number"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (QueueAllocation) TableName() string {
	return "queue_allocations"
}
