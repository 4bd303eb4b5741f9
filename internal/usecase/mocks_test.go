package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"dispensary-queue/internal/delivery/http/middleware"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, sqlMock
}

func withUser(userID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), middleware.Identity{
		UserID: userID,
		RoleID: entity.RoleIDPatient,
		Role:   entity.RolePatient,
	})
}

// Booking repository

type mockBookingRepository struct {
	mock.Mock
}

func (m *mockBookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	args := m.Called(db, booking)
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockBookingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	args := m.Called(db, id)
	booking, _ := args.Get(0).(*entity.Booking)
	return booking, args.Error(1)
}

func (m *mockBookingRepository) FindByCorrelationID(db *gorm.DB, correlationID string) (*entity.Booking, error) {
	args := m.Called(db, correlationID)
	booking, _ := args.Get(0).(*entity.Booking)
	return booking, args.Error(1)
}

func (m *mockBookingRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Booking, error) {
	args := m.Called(db, patientID)
	bookings, _ := args.Get(0).([]entity.Booking)
	return bookings, args.Error(1)
}

func (m *mockBookingRepository) FindBySession(db *gorm.DB, filter *entity.SessionFilter) ([]entity.Booking, error) {
	args := m.Called(db, filter)
	bookings, _ := args.Get(0).([]entity.Booking)
	return bookings, args.Error(1)
}

func (m *mockBookingRepository) CancelBooking(db *gorm.DB, id uuid.UUID) (int64, error) {
	args := m.Called(db, id)
	return args.Get(0).(int64), args.Error(1)
}

// Weekly schedule repository

type mockWeeklyRepository struct {
	mock.Mock
}

func (m *mockWeeklyRepository) Create(db *gorm.DB, config *entity.WeeklyScheduleConfig) error {
	args := m.Called(db, config)
	if config.ID == 0 {
		config.ID = 1
	}
	return args.Error(0)
}

func (m *mockWeeklyRepository) FindByID(db *gorm.DB, id int) (*entity.WeeklyScheduleConfig, error) {
	args := m.Called(db, id)
	config, _ := args.Get(0).(*entity.WeeklyScheduleConfig)
	return config, args.Error(1)
}

func (m *mockWeeklyRepository) FindActive(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	args := m.Called(db, doctorID, dispensaryID, day)
	config, _ := args.Get(0).(*entity.WeeklyScheduleConfig)
	return config, args.Error(1)
}

func (m *mockWeeklyRepository) FindLatest(db *gorm.DB, doctorID, dispensaryID uuid.UUID, day time.Weekday) (*entity.WeeklyScheduleConfig, error) {
	args := m.Called(db, doctorID, dispensaryID, day)
	config, _ := args.Get(0).(*entity.WeeklyScheduleConfig)
	return config, args.Error(1)
}

func (m *mockWeeklyRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklyScheduleConfig, error) {
	args := m.Called(db, doctorID)
	configs, _ := args.Get(0).([]entity.WeeklyScheduleConfig)
	return configs, args.Error(1)
}

func (m *mockWeeklyRepository) Update(db *gorm.DB, config *entity.WeeklyScheduleConfig) error {
	return m.Called(db, config).Error(0)
}

func (m *mockWeeklyRepository) Deactivate(db *gorm.DB, id int) (int64, error) {
	args := m.Called(db, id)
	return args.Get(0).(int64), args.Error(1)
}

// Date override repository

type mockOverrideRepository struct {
	mock.Mock
}

func (m *mockOverrideRepository) Upsert(db *gorm.DB, override *entity.DateOverride) error {
	args := m.Called(db, override)
	if override.ID == 0 {
		override.ID = 7
	}
	return args.Error(0)
}

func (m *mockOverrideRepository) FindByID(db *gorm.DB, id int) (*entity.DateOverride, error) {
	args := m.Called(db, id)
	override, _ := args.Get(0).(*entity.DateOverride)
	return override, args.Error(1)
}

func (m *mockOverrideRepository) FindByKey(db *gorm.DB, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.DateOverride, error) {
	args := m.Called(db, doctorID, dispensaryID, date)
	override, _ := args.Get(0).(*entity.DateOverride)
	return override, args.Error(1)
}

func (m *mockOverrideRepository) FindAll(db *gorm.DB, filter *entity.OverrideFilter) ([]entity.DateOverride, error) {
	args := m.Called(db, filter)
	overrides, _ := args.Get(0).([]entity.DateOverride)
	return overrides, args.Error(1)
}

func (m *mockOverrideRepository) Delete(db *gorm.DB, id int) (int64, error) {
	args := m.Called(db, id)
	return args.Get(0).(int64), args.Error(1)
}

// Audit log repository

type mockAuditLogRepository struct {
	mock.Mock
}

func (m *mockAuditLogRepository) Create(db *gorm.DB, log *entity.AuditLog) error {
	return m.Called(db, log).Error(0)
}

func (m *mockAuditLogRepository) FindAll(db *gorm.DB, filter *entity.AuditLogFilter) ([]entity.AuditLog, int64, error) {
	args := m.Called(db, filter)
	logs, _ := args.Get(0).([]entity.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *mockAuditLogRepository) FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error) {
	args := m.Called(db, id)
	log, _ := args.Get(0).(*entity.AuditLog)
	return log, args.Error(1)
}

// Services

type mockBookingGate struct {
	mock.Mock
}

func (m *mockBookingGate) Reserve(ctx context.Context, req service.ReserveRequest) (*entity.ReservationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*entity.ReservationResult)
	return result, args.Error(1)
}

func (m *mockBookingGate) GetAvailability(ctx context.Context, doctorID, dispensaryID uuid.UUID, date time.Time) (*entity.Availability, error) {
	args := m.Called(ctx, doctorID, dispensaryID, date)
	availability, _ := args.Get(0).(*entity.Availability)
	return availability, args.Error(1)
}

type mockAuditService struct {
	mock.Mock
}

func (m *mockAuditService) Record(tx *gorm.DB, entry service.AuditEntry) error {
	return m.Called(tx, entry).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event service.BookingEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate() {
	m.Called()
}
