package service

import (
	"context"
	"errors"
	"fmt"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PostgresQueueCounter relies on a conditional upsert for atomicity; the row lock taken by
// ON CONFLICT serializes concurrent callers on the same key across every instance.
type PostgresQueueCounter struct {
	db   *gorm.DB
	repo repository.QueueCounterRepository
	log  *logrus.Logger
}

func NewPostgresQueueCounter(db *gorm.DB, repo repository.QueueCounterRepository, log *logrus.Logger) *PostgresQueueCounter {
	return &PostgresQueueCounter{db: db, repo: repo, log: log}
}

func (c *PostgresQueueCounter) Backend() string {
	return "postgres"
}

func (c *PostgresQueueCounter) AllocateNext(ctx context.Context, key entity.QueueKey, capacity int, correlationID string) (int, error) {
	db := c.db.WithContext(ctx)

	if correlationID != "" {
		if n, found, err := c.replay(db, key, correlationID); err != nil || found {
			return n, err
		}
	}

	var number int
	err := db.Transaction(func(tx *gorm.DB) error {
		n, ok, err := c.repo.IncrementIfBelow(tx, key, capacity)
		if err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}
		if !ok {
			return ErrFullyBooked
		}

		if correlationID != "" {
			allocation := &entity.QueueAllocation{
				CorrelationID:     correlationID,
				DispensaryID:      key.DispensaryID,
				DoctorID:          key.DoctorID,
				QueueDate:         key.Date,
				AppointmentNumber: n,
			}
			if err := c.repo.CreateAllocation(tx, allocation); err != nil {
				return err
			}
		}

		number = n
		return nil
	})

	if err != nil {
		// A concurrent retry with the same correlation id committed first. It either took the last
		// number (we saw a full session) or collided on the allocation row; our increment rolled back.
		if correlationID != "" && (errors.Is(err, ErrFullyBooked) || isUniqueViolation(err)) {
			n, found, replayErr := c.replay(db, key, correlationID)
			if replayErr != nil {
				return 0, replayErr
			}
			if found {
				return n, nil
			}
		}
		if errors.Is(err, ErrFullyBooked) {
			return 0, ErrFullyBooked
		}
		return 0, err
	}

	c.log.Debugf("Allocated number %d for %s", number, key)
	return number, nil
}

func (c *PostgresQueueCounter) Lookup(ctx context.Context, key entity.QueueKey, correlationID string) (int, bool, error) {
	if correlationID == "" {
		return 0, false, nil
	}
	return c.replay(c.db.WithContext(ctx), key, correlationID)
}

func (c *PostgresQueueCounter) Current(ctx context.Context, key entity.QueueKey) (int, error) {
	return c.repo.Current(c.db.WithContext(ctx), key)
}

func (c *PostgresQueueCounter) replay(db *gorm.DB, key entity.QueueKey, correlationID string) (int, bool, error) {
	existing, err := c.repo.FindAllocation(db, correlationID)
	if err != nil {
		return 0, false, fmt.Errorf("find allocation: %w", err)
	}
	if existing == nil {
		return 0, false, nil
	}
	if !sameKey(existing, key) {
		return 0, false, ErrCorrelationConflict
	}
	c.log.Debugf("Replayed allocation %d for correlation id %s", existing.AppointmentNumber, correlationID)
	return existing.AppointmentNumber, true, nil
}
