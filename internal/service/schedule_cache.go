package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// ScheduleCache is a short-TTL read-through cache in front of a ScheduleSource.
// Concurrent misses for the same key share one store round trip. Admin writes call Invalidate;
// a refill that started before an invalidation is returned to its callers but not stored.
// Expired entries are swept at most once per ttl, on the next refill.
type ScheduleCache struct {
	source ScheduleSource
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time

	mu         sync.RWMutex
	entries    map[string]cacheEntry
	generation uint64
	nextSweep  time.Time

	group singleflight.Group
}

// NewScheduleCache wraps source. A non-positive ttl disables caching.
func NewScheduleCache(source ScheduleSource, ttl time.Duration, log *logrus.Logger) *ScheduleCache {
	return &ScheduleCache{
		source:  source,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *ScheduleCache) FindOverride(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error) {
	key := fmt.Sprintf("override:%s:%s:%s", doctorID, dispensaryID, date.Format(entity.DateLayout))
	v, err := c.load(ctx, key, func(ctx context.Context) (any, error) {
		return c.source.FindOverride(ctx, doctorID, dispensaryID, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.DateOverride), nil
}

func (c *ScheduleCache) FindWeeklyConfig(ctx context.Context, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	key := fmt.Sprintf("weekly:%s:%s:%d", doctorID, dispensaryID, day)
	v, err := c.load(ctx, key, func(ctx context.Context) (any, error) {
		return c.source.FindWeeklyConfig(ctx, doctorID, dispensaryID, day)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.WeeklyScheduleConfig), nil
}

// Invalidate drops every cached entry.
func (c *ScheduleCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.generation++
	c.mu.Unlock()
	c.log.Debug("Schedule cache invalidated")
}

func (c *ScheduleCache) load(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	if c.ttl <= 0 {
		return fetch(ctx)
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	generation := c.generation
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()

		now := c.now()
		c.sweepLocked(now)
		if err != nil {
			// A failed refill must not leave the expired entry behind.
			if stale, ok := c.entries[key]; ok && !now.Before(stale.expiresAt) {
				delete(c.entries, key)
			}
			return nil, err
		}
		if c.generation == generation {
			c.entries[key] = cacheEntry{value: value, expiresAt: now.Add(c.ttl)}
		}
		return value, nil
	})
	return v, err
}

func (c *ScheduleCache) sweepLocked(now time.Time) {
	if now.Before(c.nextSweep) {
		return
	}
	c.nextSweep = now.Add(c.ttl)

	var swept int
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			swept++
		}
	}
	if swept > 0 {
		c.log.Debugf("Schedule cache swept %d expired entries", swept)
	}
}

// Len reports how many entries are held, expired ones included.
func (c *ScheduleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
