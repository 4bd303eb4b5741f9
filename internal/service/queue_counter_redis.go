package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// allocateScript is a package-level Lua script.
// Redis Go client automatically uses EVALSHA after the first call instead of sending the script text.
//
// KEYS[1] counter, KEYS[2] allocation record of the correlation id;
// ARGV[1] capacity, ARGV[2] correlation id, ARGV[3] ttl seconds, ARGV[4] queue key.
// The allocation record is "<queue key>|<number>" and is global to the correlation id.
// Returns the issued number, -1 when the session is full, -2 when the counter is not seeded yet,
// -3 when the correlation id already holds a number on another queue key.
var allocateScript = redis.NewScript(`
	if ARGV[2] ~= '' then
		local issued = redis.call('GET', KEYS[2])
		if issued then
			local sep = string.find(issued, '|', 1, true)
			if string.sub(issued, 1, sep - 1) ~= ARGV[4] then
				return -3
			end
			return tonumber(string.sub(issued, sep + 1))
		end
	end
	local current = redis.call('GET', KEYS[1])
	if not current then
		return -2
	end
	if tonumber(current) >= tonumber(ARGV[1]) then
		return -1
	end
	local n = redis.call('INCR', KEYS[1])
	if ARGV[2] ~= '' then
		redis.call('SET', KEYS[2], ARGV[4] .. '|' .. n, 'EX', ARGV[3])
	end
	return n
`)

// seedScript raises the counter to ARGV[1] and never lowers it.
var seedScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or '-1')
	if tonumber(ARGV[1]) > current then
		redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
		return 1
	end
	return 0
`)

const (
	// Redis key prefixes for the queue counter
	RedisCounterKeyPrefix    = "queue:counter:"
	RedisAllocationKeyPrefix = "queue:alloc:"

	// Timeout for writing an allocation back to PostgreSQL
	mirrorTimeout = 5 * time.Second

	// Batch size for startup sync - process 500 records at a time
	syncBatchSize = 500
)

// RedisQueueCounter allocates numbers with a Lua script so the compare-and-increment runs
// atomically inside Redis. PostgreSQL stays the durable record:
//   - keys are seeded from PostgreSQL at startup and lazily on a miss, under a per-key mutex
//   - every allocation is mirrored back with GREATEST so the durable counter never lags
type RedisQueueCounter struct {
	db          *gorm.DB
	repo        repository.QueueCounterRepository
	redisClient *redis.Client
	locks       *KeyedMutex
	log         *logrus.Logger
}

func NewRedisQueueCounter(
	db *gorm.DB,
	repo repository.QueueCounterRepository,
	redisClient *redis.Client,
	locks *KeyedMutex,
	log *logrus.Logger,
) *RedisQueueCounter {
	return &RedisQueueCounter{
		db:          db,
		repo:        repo,
		redisClient: redisClient,
		locks:       locks,
		log:         log,
	}
}

func (c *RedisQueueCounter) Backend() string {
	return "redis"
}

// AllocateNext runs the allocation script, seeding the key once if Redis has never seen it.
// No mutex is taken on the hot path: the script itself is atomic.
func (c *RedisQueueCounter) AllocateNext(ctx context.Context, key entity.QueueKey, capacity int, correlationID string) (int, error) {
	keys := []string{counterKey(key), allocationKey(correlationID)}
	ttl := int(calculateTTL(key.Date).Seconds())

	for attempt := 0; attempt < 2; attempt++ {
		result, err := allocateScript.Run(ctx, c.redisClient, keys, capacity, correlationID, ttl, key.String()).Int()
		if err != nil {
			c.log.Warnf("Failed Lua script allocate for %s: %+v", key, err)
			return 0, fmt.Errorf("lua allocate for %s: %w", key, err)
		}

		switch {
		case result == -1:
			return 0, ErrFullyBooked
		case result == -3:
			return 0, ErrCorrelationConflict
		case result == -2:
			if n, found, err := c.seed(ctx, key, correlationID); err != nil || found {
				return n, err
			}
			continue
		}

		c.mirror(ctx, key, result, correlationID)
		c.log.Debugf("Allocated number %d for %s", result, key)
		return result, nil
	}

	return 0, fmt.Errorf("counter for %s was not seeded", key)
}

// Lookup reads the correlation id's allocation record, falling back to PostgreSQL when Redis
// no longer holds it.
func (c *RedisQueueCounter) Lookup(ctx context.Context, key entity.QueueKey, correlationID string) (int, bool, error) {
	if correlationID == "" {
		return 0, false, nil
	}

	record, err := c.redisClient.Get(ctx, allocationKey(correlationID)).Result()
	switch {
	case err == nil:
		owner, number, ok := strings.Cut(record, "|")
		n, convErr := strconv.Atoi(number)
		if !ok || convErr != nil {
			return 0, false, fmt.Errorf("malformed allocation record %q for %s", record, correlationID)
		}
		if owner != key.String() {
			return 0, false, ErrCorrelationConflict
		}
		return n, true, nil
	case !errors.Is(err, redis.Nil):
		return 0, false, fmt.Errorf("get allocation %s: %w", correlationID, err)
	}

	existing, err := c.repo.FindAllocation(c.db.WithContext(ctx), correlationID)
	if err != nil {
		return 0, false, fmt.Errorf("find allocation: %w", err)
	}
	if existing == nil {
		return 0, false, nil
	}
	if !sameKey(existing, key) {
		return 0, false, ErrCorrelationConflict
	}
	return existing.AppointmentNumber, true, nil
}

// Current reads the Redis counter, falling back to PostgreSQL for keys not seeded yet.
func (c *RedisQueueCounter) Current(ctx context.Context, key entity.QueueKey) (int, error) {
	n, err := c.redisClient.Get(ctx, counterKey(key)).Int()
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get counter for %s: %w", key, err)
	}
	return c.repo.HighWaterMark(c.db.WithContext(ctx), key)
}

// SyncOnStartup copies every counter from today onwards from PostgreSQL to Redis.
// Values are only ever raised, so a sync racing live traffic cannot hand out a number twice.
//
// Should be called BEFORE accepting traffic (during startup/disaster recovery).
func (c *RedisQueueCounter) SyncOnStartup(ctx context.Context, today time.Time) error {
	c.log.Info("Starting Redis re-sync from database...")
	startTime := time.Now()

	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.log.Warnf("Redis is not available, skipping sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	offset := 0
	totalSynced := 0

	for {
		counters, err := c.repo.FindFrom(c.db.WithContext(ctx), today, syncBatchSize, offset)
		if err != nil {
			c.log.Errorf("Failed to query counters at offset %d: %+v", offset, err)
			return fmt.Errorf("query counters at offset %d: %w", offset, err)
		}

		if len(counters) == 0 {
			if offset == 0 {
				c.log.Info("No active counters found for sync")
			}
			break
		}

		// New pipeline per batch so memory does not accumulate across batches
		pipe := c.redisClient.TxPipeline()
		for _, counter := range counters {
			key := counter.Key()
			ttl := int(calculateTTL(key.Date).Seconds())
			seedScript.Eval(ctx, pipe, []string{counterKey(key)}, counter.CurrentNumber, ttl)
		}

		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Errorf("Failed to execute pipeline for batch at offset %d: %+v", offset, err)
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(counters)
		c.log.Debugf("Synced batch: %d counters", len(counters))

		if len(counters) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	c.log.Infof("Redis re-sync completed: %d counters synced in %v", totalSynced, time.Since(startTime))
	return nil
}

// seed loads the key's high-water mark into Redis. When the correlation id already has a durable
// allocation for this key (Redis lost it), that number is returned with found=true.
func (c *RedisQueueCounter) seed(ctx context.Context, key entity.QueueKey, correlationID string) (int, bool, error) {
	unlock := c.locks.Lock(key.String())
	defer unlock()

	db := c.db.WithContext(ctx)

	if correlationID != "" {
		existing, err := c.repo.FindAllocation(db, correlationID)
		if err != nil {
			return 0, false, fmt.Errorf("find allocation: %w", err)
		}
		if existing != nil {
			if !sameKey(existing, key) {
				return 0, false, ErrCorrelationConflict
			}
			return existing.AppointmentNumber, true, nil
		}
	}

	mark, err := c.repo.HighWaterMark(db, key)
	if err != nil {
		c.log.Warnf("Failed to load high-water mark for %s: %+v", key, err)
		return 0, false, fmt.Errorf("load high-water mark for %s: %w", key, err)
	}

	ttl := int(calculateTTL(key.Date).Seconds())
	if err := seedScript.Run(ctx, c.redisClient, []string{counterKey(key)}, mark, ttl).Err(); err != nil {
		return 0, false, fmt.Errorf("seed counter for %s: %w", key, err)
	}

	c.log.Debugf("Seeded counter %s at %d", key, mark)
	return 0, false, nil
}

// mirror writes the allocation through to PostgreSQL. Failures are logged, not returned:
// the number is already issued and the high-water mark also reads persisted bookings.
func (c *RedisQueueCounter) mirror(ctx context.Context, key entity.QueueKey, number int, correlationID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()

	db := c.db.WithContext(ctx)
	if err := c.repo.RaiseTo(db, key, number); err != nil {
		c.log.Warnf("Failed to mirror counter %s=%d to database: %+v", key, number, err)
	}

	if correlationID == "" {
		return
	}
	allocation := &entity.QueueAllocation{
		CorrelationID:     correlationID,
		DispensaryID:      key.DispensaryID,
		DoctorID:          key.DoctorID,
		QueueDate:         key.Date,
		AppointmentNumber: number,
	}
	if err := c.repo.CreateAllocation(db, allocation); err != nil && !isUniqueViolation(err) {
		c.log.Warnf("Failed to mirror allocation %s to database: %+v", correlationID, err)
	}
}

func counterKey(key entity.QueueKey) string {
	return RedisCounterKeyPrefix + key.String()
}

func allocationKey(correlationID string) string {
	return RedisAllocationKeyPrefix + correlationID
}

// calculateTTL returns TTL: 24 hours after the session date
func calculateTTL(date time.Time) time.Duration {
	expireAt := date.AddDate(0, 0, 1)
	ttl := time.Until(expireAt)

	if ttl <= time.Minute {
		// Past date - short TTL for cleanup
		return time.Minute
	}

	return ttl
}
