package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	gate    *BookingGate
	source  *fakeScheduleSource
	counter QueueCounter
	metrics *metrics.Metrics
}

func newGateFixture(t *testing.T, counter QueueCounter) *gateFixture {
	t.Helper()

	source := newFakeScheduleSource()
	if counter == nil {
		counter = newTestMemoryCounter(t)
	}
	m := metrics.New(prometheus.NewRegistry())

	gate := NewBookingGate(newTestResolver(source), counter, m, time.Second, quietLogger())
	gate.now = func() time.Time { return beforeMonth }

	return &gateFixture{gate: gate, source: source, counter: counter, metrics: m}
}

func (f *gateFixture) reserve(t *testing.T, d time.Time, correlationID string) (*entity.ReservationResult, error) {
	t.Helper()
	return f.gate.Reserve(context.Background(), ReserveRequest{
		DoctorID:      testDoctorID,
		DispensaryID:  testDispensaryID,
		Date:          d,
		Policy:        entity.PatientPolicy(),
		CorrelationID: correlationID,
	})
}

func TestReserve_SixthMondayPatient(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())

	for i := 0; i < 5; i++ {
		_, err := f.reserve(t, monday, "")
		require.NoError(t, err)
	}

	res, err := f.reserve(t, monday, "")
	require.NoError(t, err)

	assert.Equal(t, 6, res.AppointmentNumber)
	assert.Equal(t, "10:15", res.EstimatedTime.String())
	assert.Equal(t, "09:00-12:00", res.TimeSlotLabel)
	assert.False(t, res.IsModified)
	assert.False(t, res.Overflow)
	assert.NotEmpty(t, res.CorrelationID)
	assert.Equal(t, monday.Format(entity.DateLayout), res.Key.DateString())
}

func TestGetAvailability_AbsentOverride(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addOverride(&entity.DateOverride{
		DoctorID:          testDoctorID,
		DispensaryID:      testDispensaryID,
		OverrideDate:      date("2024-05-01"),
		IsModifiedSession: false,
	})
	f.gate.now = func() time.Time { return time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC) }

	availability, err := f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, date("2024-05-01"))
	require.NoError(t, err)

	assert.False(t, availability.Available)
	assert.Equal(t, entity.ReasonAbsent, availability.Reason)
	assert.Nil(t, availability.Window)
	assert.Empty(t, availability.Slots)
}

func TestReserve_ModifiedSessionFillsUp(t *testing.T) {
	f := newGateFixture(t, nil)
	sessionDate := date("2024-05-02")
	f.source.addOverride(&entity.DateOverride{
		DoctorID:          testDoctorID,
		DispensaryID:      testDispensaryID,
		OverrideDate:      sessionDate,
		IsModifiedSession: true,
		StartTime:         clockPtr("14:00"),
		EndTime:           clockPtr("16:00"),
		MaxPatients:       intPtr(4),
		MinutesPerPatient: intPtr(30),
	})

	for i := 1; i <= 4; i++ {
		res, err := f.reserve(t, sessionDate, "")
		require.NoError(t, err)
		assert.Equal(t, i, res.AppointmentNumber)
		assert.True(t, res.IsModified)
	}

	_, err := f.reserve(t, sessionDate, "")
	assert.ErrorIs(t, err, ErrFullyBooked)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsTotal().WithLabelValues("patient", "fully_booked")))
}

func TestReserve_ConcurrentCallsAgainstSmallSession(t *testing.T) {
	f := newGateFixture(t, nil)
	cfg := mondayConfig()
	cfg.MaxPatients = 10
	f.source.addWeekly(cfg)

	var (
		mu      sync.Mutex
		numbers []int
		full    int
	)

	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			res, err := f.reserve(t, monday, "")
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrFullyBooked) {
				full++
				return
			}
			if assert.NoError(t, err) {
				numbers = append(numbers, res.AppointmentNumber)
			}
		})
	}
	wg.Wait()

	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, numbers)
	assert.Equal(t, 10, full)
}

func TestReserve_UnavailableIsTyped(t *testing.T) {
	f := newGateFixture(t, nil)

	_, err := f.reserve(t, monday, "")
	reason, ok := UnavailableReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, entity.ReasonNoConfig, reason)
	assert.EqualError(t, err, "no schedule available")

	current, err := f.counter.Current(context.Background(), testKey(monday))
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestReserve_CorrelationIDReplaysNumber(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())

	first, err := f.reserve(t, monday, "retry-me")
	require.NoError(t, err)
	second, err := f.reserve(t, monday, "retry-me")
	require.NoError(t, err)

	assert.Equal(t, first.AppointmentNumber, second.AppointmentNumber)
	assert.Equal(t, "retry-me", second.CorrelationID)

	next, err := f.reserve(t, monday, "")
	require.NoError(t, err)
	assert.Equal(t, 2, next.AppointmentNumber)
}

func TestReserve_RetryAfterCutoverKeepsNumber(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())

	_, err := f.reserve(t, monday, "")
	require.NoError(t, err)
	first, err := f.reserve(t, monday, "late-1")
	require.NoError(t, err)

	f.gate.now = func() time.Time { return entity.MustParseClockTime("09:30").On(monday) }

	again, err := f.reserve(t, monday, "late-1")
	require.NoError(t, err)
	assert.Equal(t, first.AppointmentNumber, again.AppointmentNumber)
	assert.Equal(t, first.EstimatedTime, again.EstimatedTime)

	_, err = f.reserve(t, monday, "late-2")
	reason, ok := UnavailableReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, entity.ReasonCutoverPassed, reason)

	current, err := f.counter.Current(context.Background(), testKey(monday))
	require.NoError(t, err)
	assert.Equal(t, 2, current)
}

func TestReserve_LookupFailureAfterCutoverIsTransient(t *testing.T) {
	f := newGateFixture(t, failingCounter{err: errors.New("connection reset")})
	f.source.addWeekly(mondayConfig())
	f.gate.now = func() time.Time { return entity.MustParseClockTime("09:30").On(monday) }

	_, err := f.reserve(t, monday, "late-3")
	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.False(t, transient.Unknown)
}

func TestReserve_IssuedNumbersAreNeverReissued(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())

	seen := make(map[int]bool)
	for i := 0; i < 12; i++ {
		res, err := f.reserve(t, monday, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, seen[res.AppointmentNumber], "number %d issued twice", res.AppointmentNumber)
		seen[res.AppointmentNumber] = true
	}

	_, err := f.reserve(t, monday, uuid.NewString())
	assert.ErrorIs(t, err, ErrFullyBooked)
}

// blockingCounter never answers before the context expires.
type blockingCounter struct{}

func (blockingCounter) AllocateNext(ctx context.Context, _ entity.QueueKey, _ int, _ string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (blockingCounter) Lookup(context.Context, entity.QueueKey, string) (int, bool, error) {
	return 0, false, nil
}

func (blockingCounter) Current(context.Context, entity.QueueKey) (int, error) { return 0, nil }

func (blockingCounter) Backend() string { return "blocking" }

type failingCounter struct{ err error }

func (c failingCounter) AllocateNext(context.Context, entity.QueueKey, int, string) (int, error) {
	return 0, c.err
}

func (c failingCounter) Lookup(context.Context, entity.QueueKey, string) (int, bool, error) {
	return 0, false, c.err
}

func (c failingCounter) Current(context.Context, entity.QueueKey) (int, error) { return 0, c.err }

func (failingCounter) Backend() string { return "failing" }

func TestReserve_TimeoutIsUnknownOutcome(t *testing.T) {
	f := newGateFixture(t, blockingCounter{})
	f.gate.timeout = 20 * time.Millisecond
	f.source.addWeekly(mondayConfig())

	_, err := f.reserve(t, monday, "slow")
	require.Error(t, err)
	assert.True(t, IsUnknownOutcome(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReserve_StoreFailureIsTransient(t *testing.T) {
	f := newGateFixture(t, failingCounter{err: errors.New("connection reset")})
	f.source.addWeekly(mondayConfig())

	_, err := f.reserve(t, monday, "")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsUnknownOutcome(err))

	_, err = f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, monday)
	assert.True(t, IsTransient(err))
}

func TestReserve_OverflowDoesNotBlock(t *testing.T) {
	f := newGateFixture(t, nil)
	cfg := mondayConfig()
	cfg.EndTime = entity.MustParseClockTime("09:30")
	cfg.MaxPatients = 4
	f.source.addWeekly(cfg)

	var last *entity.ReservationResult
	for i := 0; i < 4; i++ {
		res, err := f.reserve(t, monday, "")
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, "09:45", last.EstimatedTime.String())
	assert.True(t, last.Overflow)
}

func TestGetAvailability_PreviewDoesNotAllocate(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())

	for i := 0; i < 10; i++ {
		_, err := f.reserve(t, monday, "")
		require.NoError(t, err)
	}

	first, err := f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, monday)
	require.NoError(t, err)
	second, err := f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, monday)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Available)
	assert.Equal(t, 10, first.CurrentNumber)
	assert.Equal(t, 11, first.NextNumber)
	assert.Equal(t, []entity.SlotPreview{
		{AppointmentNumber: 11, EstimatedTime: entity.MustParseClockTime("11:30")},
		{AppointmentNumber: 12, EstimatedTime: entity.MustParseClockTime("11:45")},
	}, first.Slots)

	res, err := f.reserve(t, monday, "")
	require.NoError(t, err)
	assert.Equal(t, first.NextNumber, res.AppointmentNumber)
}

func TestGetAvailability_FullyBooked(t *testing.T) {
	f := newGateFixture(t, nil)
	cfg := mondayConfig()
	cfg.MaxPatients = 1
	f.source.addWeekly(cfg)

	_, err := f.reserve(t, monday, "")
	require.NoError(t, err)

	availability, err := f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, monday)
	require.NoError(t, err)
	assert.False(t, availability.Available)
	assert.Equal(t, entity.ReasonFullyBooked, availability.Reason)
	assert.NotNil(t, availability.Window)
	assert.Empty(t, availability.Slots)
}

func TestGetAvailability_CutoverPassedKeepsSessionInfo(t *testing.T) {
	f := newGateFixture(t, nil)
	f.source.addWeekly(mondayConfig())
	f.gate.now = func() time.Time { return entity.MustParseClockTime("09:30").On(monday) }

	availability, err := f.gate.GetAvailability(context.Background(), testDoctorID, testDispensaryID, monday)
	require.NoError(t, err)
	assert.False(t, availability.Available)
	assert.Equal(t, entity.ReasonCutoverPassed, availability.Reason)
	require.NotNil(t, availability.Window)
	assert.Equal(t, 12, availability.Window.MaxPatients)
}
