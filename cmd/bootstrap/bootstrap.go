package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dispensary-queue/config"
	deliveryHttp "dispensary-queue/internal/delivery/http"
	"dispensary-queue/internal/delivery/http/handler"
	"dispensary-queue/internal/delivery/http/middleware"
	domainRepo "dispensary-queue/internal/domain/repository"
	"dispensary-queue/internal/infrastructure/cache"
	"dispensary-queue/internal/infrastructure/database"
	"dispensary-queue/internal/infrastructure/messaging"
	"dispensary-queue/internal/infrastructure/metrics"
	"dispensary-queue/internal/repository"
	"dispensary-queue/internal/service"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/jwt"
	"dispensary-queue/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"gorm.io/gorm"
)

const (
	// How often the in-memory counter drops sessions from past dates
	memoryPruneInterval = time.Hour

	startupSyncTimeout = 30 * time.Second
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	Location    *time.Location
	DB          *gorm.DB
	RedisClient *redis.Client
	RabbitMQ    *messaging.RabbitMQ
	Server      *http.Server

	locks      *service.KeyedMutex
	background conc.WaitGroup
	stop       chan struct{}
	closeOnce  sync.Once
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{stop: make(chan struct{})}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	app.Log = setupLogger(cfg.Log)
	app.Log.Info("Configuration loaded successfully")

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}
	app.Location = loc

	// Initialize database
	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(cfg.DB, cfg.App, app.Log); err != nil {
			return nil, err
		}
	}
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	app.Log.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	app.Log.Info("Redis connected successfully")

	// Initialize RabbitMQ (optional)
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := messaging.NewRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.RabbitMQ = rabbit
	}

	// Initialize all layers
	server, err := app.initializeServer()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() (*http.Server, error) {
	cfg, db, log := app.Config, app.DB, app.Log

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	weeklyRepo := repository.NewWeeklyScheduleRepository()
	overrideRepo := repository.NewDateOverrideRepository()
	queueCounterRepo := repository.NewQueueCounterRepository()
	bookingRepo := repository.NewBookingRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Queue engine
	app.locks = service.NewDefaultKeyedMutex(log)
	counter, err := app.newQueueCounter(queueCounterRepo)
	if err != nil {
		return nil, err
	}

	scheduleCache := service.NewScheduleCache(
		service.NewScheduleSource(db, weeklyRepo, overrideRepo),
		cfg.Booking.ScheduleCacheTTL,
		log,
	)
	resolver := service.NewAvailabilityResolver(scheduleCache, app.Location, cfg.Booking.DefaultCutoverMinutes, log)
	gate := service.NewBookingGate(resolver, counter, appMetrics, cfg.Booking.ReserveTimeout, log)

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	publisher := service.NewNoopEventPublisher(log)
	if app.RabbitMQ != nil {
		publisher = service.NewAMQPEventPublisher(app.RabbitMQ.Channel, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.PublishTimeout, log)
	}

	// Initialize usecases
	bookingUsecase := usecase.NewBookingUsecase(db, log, bookingRepo, gate, auditService, publisher, cfg.Booking.WalkInBypassCutover)
	availabilityUsecase := usecase.NewAvailabilityUsecase(log, gate)
	scheduleUsecase := usecase.NewScheduleAdminUsecase(db, log, weeklyRepo, overrideRepo, auditService, scheduleCache)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, customValidator)
	bookingHandler := handler.NewBookingHandler(bookingUsecase, customValidator)
	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware()
	metricsMiddleware := middleware.NewMetricsMiddleware(appMetrics, log)

	// Initialize router
	router := deliveryHttp.NewRouter(
		availabilityHandler,
		bookingHandler,
		scheduleHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		metricsMiddleware,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// newQueueCounter builds the configured counter backend.
func (app *App) newQueueCounter(repo domainRepo.QueueCounterRepository) (service.QueueCounter, error) {
	cfg, log := app.Config.Booking, app.Log

	switch cfg.CounterBackend {
	case config.CounterBackendRedis:
		counter := service.NewRedisQueueCounter(app.DB, repo, app.RedisClient, app.locks, log)

		ctx, cancel := context.WithTimeout(context.Background(), startupSyncTimeout)
		defer cancel()
		if err := counter.SyncOnStartup(ctx, app.today()); err != nil {
			return nil, fmt.Errorf("failed to sync queue counters to Redis: %w", err)
		}
		return counter, nil

	case config.CounterBackendMemory:
		log.Warn("Using in-memory queue counter: numbers are not shared between instances or restarts")
		counter := service.NewMemoryQueueCounter(app.locks)
		app.background.Go(func() {
			app.pruneLoop(counter)
		})
		return counter, nil

	default:
		return service.NewPostgresQueueCounter(app.DB, repo, log), nil
	}
}

// pruneLoop drops in-memory counters for past dates until shutdown.
func (app *App) pruneLoop(counter *service.MemoryQueueCounter) {
	ticker := time.NewTicker(memoryPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pruned := counter.Prune(app.today()); pruned > 0 {
				app.Log.Debugf("Pruned %d in-memory queue counters", pruned)
			}
		case <-app.stop:
			return
		}
	}
}

// today is midnight of the current date in the service timezone.
func (app *App) today() time.Time {
	y, m, d := time.Now().In(app.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, app.Location)
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s, counter backend: %s", app.Config.App.Env, app.Config.Booking.CounterBackend)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close stops background work and closes all connections (database, redis, rabbitmq)
func (app *App) Close() {
	app.closeOnce.Do(app.close)
}

func (app *App) close() {
	close(app.stop)
	app.background.Wait()

	if app.locks != nil {
		app.locks.Stop()
	}

	if app.RabbitMQ != nil {
		app.RabbitMQ.Close()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
