package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// KeyedMutex is a lock table sharded by key: callers on the same key are serialized,
// callers on different keys never wait on each other.
//
// Idle entries are removed by a background goroutine. Call Stop() during graceful shutdown.
type KeyedMutex struct {
	locks sync.Map // map[string]*mutexWithTimestamp
	log   *logrus.Logger

	staleThreshold time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
	retired  bool         // guarded by mu
}

// NewKeyedMutex creates a lock table and starts its cleanup goroutine.
// A non-positive interval disables background cleanup.
func NewKeyedMutex(log *logrus.Logger, cleanupInterval, staleThreshold time.Duration) *KeyedMutex {
	km := &KeyedMutex{
		log:            log,
		staleThreshold: staleThreshold,
		stopChan:       make(chan struct{}),
	}

	if cleanupInterval > 0 {
		km.wg.Add(1)
		go km.cleanupLoop(cleanupInterval)
	}

	return km
}

// NewDefaultKeyedMutex creates a lock table with the standard cleanup cadence.
func NewDefaultKeyedMutex(log *logrus.Logger) *KeyedMutex {
	return NewKeyedMutex(log, mutexCleanupInterval, mutexStaleThreshold)
}

// Lock blocks until the key's mutex is held and returns the function that releases it.
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	for {
		v, _ := km.locks.LoadOrStore(key, &mutexWithTimestamp{})
		mt := v.(*mutexWithTimestamp)
		mt.mu.Lock()

		// Cleanup may have retired this entry between LoadOrStore and Lock.
		// A fresh entry is stored for the key in that case, so go around again.
		if mt.retired {
			mt.mu.Unlock()
			continue
		}

		mt.lastUsed.Store(time.Now().Unix())
		return mt.mu.Unlock
	}
}

// Len returns the number of keys currently tracked.
func (km *KeyedMutex) Len() int {
	n := 0
	km.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (km *KeyedMutex) Stop() {
	if km.stopped.CompareAndSwap(false, true) {
		close(km.stopChan)
		km.wg.Wait()
	}
}

func (km *KeyedMutex) cleanupLoop(interval time.Duration) {
	defer km.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-km.stopChan:
			km.log.Debug("Keyed mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			km.cleanupStale(time.Now().Add(-km.staleThreshold))
		}
	}
}

// cleanupStale removes entries unused since cutoff. TryLock skips entries that are in use,
// and lastUsed is checked while holding the lock so a concurrent Lock cannot slip in between.
func (km *KeyedMutex) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	km.locks.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				mt.retired = true
				km.locks.CompareAndDelete(key, mt)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		km.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
