package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDoctorID     = uuid.MustParse("6f1c2f4e-7b0a-4f57-9a53-1d2a8c9f0a01")
	testDispensaryID = uuid.MustParse("0b7e3d5a-2c41-4e8b-8f6d-5a4b3c2d1e02")
)

// date parses a YYYY-MM-DD literal in UTC.
func date(s string) time.Time {
	d, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(v int) *int { return &v }

func clockPtr(s string) *entity.ClockTime {
	c := entity.MustParseClockTime(s)
	return &c
}

type fakeScheduleSource struct {
	mu        sync.Mutex
	overrides map[string]*entity.DateOverride
	weekly    map[string]*entity.WeeklyScheduleConfig
	err       error
	calls     atomic.Int32
}

func newFakeScheduleSource() *fakeScheduleSource {
	return &fakeScheduleSource{
		overrides: make(map[string]*entity.DateOverride),
		weekly:    make(map[string]*entity.WeeklyScheduleConfig),
	}
}

func (f *fakeScheduleSource) addWeekly(c *entity.WeeklyScheduleConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weekly[fmt.Sprintf("%s:%s:%d", c.DoctorID, c.DispensaryID, c.DayOfWeek)] = c
}

func (f *fakeScheduleSource) addOverride(o *entity.DateOverride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[fmt.Sprintf("%s:%s:%s", o.DoctorID, o.DispensaryID, o.OverrideDate.Format(entity.DateLayout))] = o
}

func (f *fakeScheduleSource) FindOverride(_ context.Context, doctorID, dispensaryID uuid.UUID, d time.Time) (*entity.DateOverride, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.overrides[fmt.Sprintf("%s:%s:%s", doctorID, dispensaryID, d.Format(entity.DateLayout))], nil
}

func (f *fakeScheduleSource) FindWeeklyConfig(_ context.Context, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.weekly[fmt.Sprintf("%s:%s:%d", doctorID, dispensaryID, day)], nil
}

// mondayConfig is a 09:00-12:00 Monday session for 12 patients at 15 minutes each.
func mondayConfig() *entity.WeeklyScheduleConfig {
	return &entity.WeeklyScheduleConfig{
		ID:                1,
		DoctorID:          testDoctorID,
		DispensaryID:      testDispensaryID,
		DayOfWeek:         time.Monday,
		StartTime:         entity.MustParseClockTime("09:00"),
		EndTime:           entity.MustParseClockTime("12:00"),
		MaxPatients:       12,
		MinutesPerPatient: 15,
		IsActive:          true,
	}
}

// fakeCounterRepository is an in-memory QueueCounterRepository; it ignores the db handle.
type fakeCounterRepository struct {
	mu          sync.Mutex
	keys        map[string]entity.QueueKey
	counters    map[string]int
	bookingMax  map[string]int
	allocations map[string]*entity.QueueAllocation
	err         error
}

func newFakeCounterRepository() *fakeCounterRepository {
	return &fakeCounterRepository{
		keys:        make(map[string]entity.QueueKey),
		counters:    make(map[string]int),
		bookingMax:  make(map[string]int),
		allocations: make(map[string]*entity.QueueAllocation),
	}
}

func (f *fakeCounterRepository) IncrementIfBelow(_ *gorm.DB, key entity.QueueKey, capacity int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	if f.counters[key.String()] >= capacity {
		return 0, false, nil
	}
	f.keys[key.String()] = key
	f.counters[key.String()]++
	return f.counters[key.String()], true, nil
}

func (f *fakeCounterRepository) RaiseTo(_ *gorm.DB, key entity.QueueKey, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if number > f.counters[key.String()] {
		f.keys[key.String()] = key
		f.counters[key.String()] = number
	}
	return nil
}

func (f *fakeCounterRepository) Current(_ *gorm.DB, key entity.QueueKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[key.String()], f.err
}

func (f *fakeCounterRepository) HighWaterMark(_ *gorm.DB, key entity.QueueKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return max(f.counters[key.String()], f.bookingMax[key.String()]), nil
}

func (f *fakeCounterRepository) FindFrom(_ *gorm.DB, from time.Time, limit, offset int) ([]entity.QueueCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	ids := make([]string, 0, len(f.keys))
	for id, key := range f.keys {
		if !key.Date.Before(from) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := []entity.QueueCounter{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		key := f.keys[ids[i]]
		out = append(out, entity.QueueCounter{
			DispensaryID:  key.DispensaryID,
			DoctorID:      key.DoctorID,
			QueueDate:     key.Date,
			CurrentNumber: max(f.counters[ids[i]], f.bookingMax[ids[i]]),
		})
	}
	return out, nil
}

// seed sets the durable counter for key as if earlier allocations had happened.
func (f *fakeCounterRepository) seed(key entity.QueueKey, counter, bookingMax int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key.String()] = key
	f.counters[key.String()] = counter
	f.bookingMax[key.String()] = bookingMax
}

func (f *fakeCounterRepository) counter(key entity.QueueKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[key.String()]
}

func (f *fakeCounterRepository) FindAllocation(_ *gorm.DB, correlationID string) (*entity.QueueAllocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocations[correlationID], f.err
}

func (f *fakeCounterRepository) CreateAllocation(_ *gorm.DB, allocation *entity.QueueAllocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.allocations[allocation.CorrelationID] = allocation
	return nil
}

// newMockGormDB opens gorm on top of sqlmock so repository SQL can be asserted without a server.
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}
