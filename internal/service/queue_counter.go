package service

import (
	"context"
	"errors"

	"dispensary-queue/internal/domain/entity"

	"github.com/jackc/pgx/v5/pgconn"
)

// QueueCounter issues appointment numbers for a queue key.
//
// AllocateNext is one atomic conditional increment: the counter moves from n to n+1 only when
// n < capacity, otherwise ErrFullyBooked is returned and nothing changes. A correlation id that
// already produced a number for the key gets that number back without a new increment.
// Correlation ids share one space across all keys: reusing an id on another key fails with
// ErrCorrelationConflict.
//
// Lookup reports the number a correlation id already holds for key without allocating.
type QueueCounter interface {
	AllocateNext(ctx context.Context, key entity.QueueKey, capacity int, correlationID string) (int, error)
	Lookup(ctx context.Context, key entity.QueueKey, correlationID string) (int, bool, error)
	Current(ctx context.Context, key entity.QueueKey) (int, error)
	Backend() string
}

// PostgreSQL error code 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sameKey(a *entity.QueueAllocation, key entity.QueueKey) bool {
	return a.DispensaryID == key.DispensaryID &&
		a.DoctorID == key.DoctorID &&
		a.QueueDate.Format(entity.DateLayout) == key.DateString()
}
