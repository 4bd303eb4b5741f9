package service

import (
	"context"
	"sync"
	"time"

	"dispensary-queue/internal/domain/entity"
)

type memoryQueueState struct {
	date    time.Time
	current int
}

type memoryAllocation struct {
	key    string
	date   time.Time
	number int
}

// MemoryQueueCounter keeps counters in process, serialized per key through a KeyedMutex.
// Counts do not survive a restart, so it only suits single-instance deployments and tests.
type MemoryQueueCounter struct {
	locks        *KeyedMutex
	states       sync.Map // map[string]*memoryQueueState
	correlations sync.Map // map[string]memoryAllocation, shared by every key
}

func NewMemoryQueueCounter(locks *KeyedMutex) *MemoryQueueCounter {
	return &MemoryQueueCounter{locks: locks}
}

func (c *MemoryQueueCounter) Backend() string {
	return "memory"
}

func (c *MemoryQueueCounter) AllocateNext(ctx context.Context, key entity.QueueKey, capacity int, correlationID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id := key.String()

	// Correlation lock first, key lock second. Nothing takes them in the other order.
	if correlationID != "" {
		unlockCorrelation := c.locks.Lock(correlationLockKey(correlationID))
		defer unlockCorrelation()

		if n, found, err := c.lookup(id, correlationID); err != nil || found {
			return n, err
		}
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	v, _ := c.states.LoadOrStore(id, &memoryQueueState{date: key.Date})
	state := v.(*memoryQueueState)

	if state.current >= capacity {
		return 0, ErrFullyBooked
	}

	state.current++
	if correlationID != "" {
		c.correlations.Store(correlationID, memoryAllocation{key: id, date: key.Date, number: state.current})
	}
	return state.current, nil
}

func (c *MemoryQueueCounter) Lookup(ctx context.Context, key entity.QueueKey, correlationID string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if correlationID == "" {
		return 0, false, nil
	}
	return c.lookup(key.String(), correlationID)
}

func (c *MemoryQueueCounter) lookup(id, correlationID string) (int, bool, error) {
	v, ok := c.correlations.Load(correlationID)
	if !ok {
		return 0, false, nil
	}
	allocation := v.(memoryAllocation)
	if allocation.key != id {
		return 0, false, ErrCorrelationConflict
	}
	return allocation.number, true, nil
}

func (c *MemoryQueueCounter) Current(ctx context.Context, key entity.QueueKey) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id := key.String()
	unlock := c.locks.Lock(id)
	defer unlock()

	v, ok := c.states.Load(id)
	if !ok {
		return 0, nil
	}
	return v.(*memoryQueueState).current, nil
}

// Prune forgets counters and correlation ids for dates before cutoff and returns how many
// counters were dropped.
func (c *MemoryQueueCounter) Prune(cutoff time.Time) int {
	var pruned int
	c.states.Range(func(key, value any) bool {
		id := key.(string)
		unlock := c.locks.Lock(id)
		if value.(*memoryQueueState).date.Before(cutoff) {
			c.states.Delete(id)
			pruned++
		}
		unlock()
		return true
	})
	c.correlations.Range(func(key, value any) bool {
		if value.(memoryAllocation).date.Before(cutoff) {
			c.correlations.Delete(key)
		}
		return true
	})
	return pruned
}

func correlationLockKey(correlationID string) string {
	return "correlation/" + correlationID
}
