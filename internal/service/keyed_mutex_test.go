package service

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex(quietLogger(), 0, time.Minute)
	defer km.Stop()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex(quietLogger(), 0, time.Minute)
	defer km.Stop()

	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on key b waited for key a")
	}
}

func TestKeyedMutex_CleanupSkipsHeldAndRemovesIdle(t *testing.T) {
	km := NewKeyedMutex(quietLogger(), 0, time.Minute)
	defer km.Stop()

	km.Lock("idle")()
	unlockBusy := km.Lock("busy")

	cleaned := km.cleanupStale(time.Now().Add(time.Hour))
	assert.Equal(t, 1, cleaned)
	assert.Equal(t, 1, km.Len())

	unlockBusy()

	// A retired entry is replaced transparently.
	unlock := km.Lock("idle")
	unlock()
	require.Equal(t, 2, km.Len())
}
