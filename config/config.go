package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Counter backends accepted by BOOKING_COUNTER_BACKEND.
const (
	CounterBackendPostgres = "postgres"
	CounterBackendRedis    = "redis"
	CounterBackendMemory   = "memory"
)

type Config struct {
	App      AppConfig
	Log      LogConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	RabbitMQ RabbitMQConfig
	Booking  BookingConfig
}

type AppConfig struct {
	Port     string `validate:"required"`
	Env      string
	Timezone string `validate:"required"`
}

type LogConfig struct {
	Level string
}

type DBConfig struct {
	Host        string `validate:"required"`
	Port        string `validate:"required"`
	User        string `validate:"required"`
	Password    string
	Name        string `validate:"required"`
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string `validate:"required"`
	AccessExpiry time.Duration
}

// RabbitMQConfig leaves event publishing disabled when URL is empty.
type RabbitMQConfig struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
}

type BookingConfig struct {
	CounterBackend        string        `validate:"oneof=postgres redis memory"`
	ReserveTimeout        time.Duration `validate:"gt=0"`
	ScheduleCacheTTL      time.Duration `validate:"gte=0"`
	DefaultCutoverMinutes int           `validate:"gte=0"`
	WalkInBypassCutover   bool
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "Asia/Colombo")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("RABBITMQ_EXCHANGE", "booking.events")
	viper.SetDefault("RABBITMQ_PUBLISH_TIMEOUT", "5s")
	viper.SetDefault("BOOKING_COUNTER_BACKEND", CounterBackendPostgres)
	viper.SetDefault("BOOKING_RESERVE_TIMEOUT", "5s")
	viper.SetDefault("BOOKING_SCHEDULE_CACHE_TTL", "30s")
	viper.SetDefault("BOOKING_DEFAULT_CUTOVER_MINUTES", 0)
	viper.SetDefault("BOOKING_WALKIN_BYPASS_CUTOVER", true)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	setDefaults()

	// A missing .env is fine in containers where everything comes from the environment.
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port:     viper.GetString("APP_PORT"),
			Env:      viper.GetString("APP_ENV"),
			Timezone: viper.GetString("APP_TIMEZONE"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASSWORD"),
			Name:        viper.GetString("DB_NAME"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		RabbitMQ: RabbitMQConfig{
			URL:            viper.GetString("RABBITMQ_URL"),
			Exchange:       viper.GetString("RABBITMQ_EXCHANGE"),
			PublishTimeout: viper.GetDuration("RABBITMQ_PUBLISH_TIMEOUT"),
		},
		Booking: BookingConfig{
			CounterBackend:        viper.GetString("BOOKING_COUNTER_BACKEND"),
			ReserveTimeout:        viper.GetDuration("BOOKING_RESERVE_TIMEOUT"),
			ScheduleCacheTTL:      viper.GetDuration("BOOKING_SCHEDULE_CACHE_TTL"),
			DefaultCutoverMinutes: viper.GetInt("BOOKING_DEFAULT_CUTOVER_MINUTES"),
			WalkInBypassCutover:   viper.GetBool("BOOKING_WALKIN_BYPASS_CUTOVER"),
		},
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Location resolves the service timezone used to decide what "today" means.
func (c AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
