package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"medical-office-api/config"
	deliveryHttp "medical-office-api/internal/delivery/http"
	"medical-office-api/internal/delivery/http/handler"
	"medical-office-api/internal/delivery/http/middleware"
	domainRepo "medical-office-api/internal/domain/repository"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/internal/infrastructure/database"
	"medical-office-api/internal/infrastructure/mail"
	"medical-office-api/internal/repository"
	"medical-office-api/internal/service"
	"medical-office-api/internal/usecase"
	"medical-office-api/pkg/jwt"
	"medical-office-api/pkg/metrics"
	"medical-office-api/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config        *config.Config
	Log           *logrus.Logger
	DB            *gorm.DB
	RedisClient   *redis.Client
	Metrics       *metrics.Collector
	Notifications *service.NotificationService
	Server        *http.Server

	Seeder    *service.Seeder
	Reminders usecase.ReminderUsecase
}

// NewLogger configures a JSON logrus logger at the given level.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, falling back to info", level)
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config) (*App, error) {
	log := NewLogger(cfg.App.LogLevel)
	app := &App{Config: cfg, Log: log}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	if err := app.initialize(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func newNotifier(cfg config.MailConfig, log *logrus.Logger) (service.Notifier, error) {
	if !cfg.Enabled {
		log.Info("Mail delivery disabled, notifications are written to the log")
		return mail.NewLogNotifier(log), nil
	}
	return mail.NewSMTPNotifier(cfg)
}

func (app *App) initialize() error {
	cfg, log := app.Config, app.Log

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	app.Metrics = metrics.NewCollector(cfg.App.Name, nil)

	// Repositories
	tx := repository.NewTransactor(app.DB)
	appointmentRepo := repository.NewAppointmentRepository()
	userRepo := repository.NewUserRepository()
	roleRepo := repository.NewRoleRepository()
	patientRepo := repository.NewPatientProfileRepository()
	practitionerRepo := repository.NewPractitionerProfileRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Redis-backed coordination
	slotLocker := cache.NewRedisSlotLocker(app.RedisClient, cfg.Scheduling.SlotLockTTL)
	tokenStore := cache.NewRedisTokenStore(app.RedisClient)
	reminderMarker := cache.NewRedisReminderMarker(app.RedisClient, cfg.Reminder.DedupTTL)

	// Services
	notifier, err := newNotifier(cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("failed to configure mail: %w", err)
	}
	notifications, err := service.NewNotificationService(notifier, log, app.Metrics, cfg.Notification)
	if err != nil {
		return fmt.Errorf("failed to start notifications: %w", err)
	}
	app.Notifications = notifications
	auditService := service.NewAuditService(log, auditLogRepo)
	app.Seeder = service.NewSeeder(tx, log, userRepo, roleRepo, patientRepo, practitionerRepo)

	// Usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(
		tx, log, appointmentRepo, patientRepo, practitionerRepo,
		auditService, slotLocker, notifications, app.Metrics, cfg.Scheduling,
	)
	authUsecase := usecase.NewAuthUsecase(tx, log, userRepo, auditService, jwtService, tokenStore)
	auditLogUsecase := usecase.NewAuditLogUsecase(tx, log, auditLogRepo)
	app.Reminders = usecase.NewReminderUsecase(
		tx, log, appointmentRepo, reminderMarker, notifications, app.Metrics, cfg.Reminder.LeadDays,
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)
	reminderHandler := handler.NewReminderHandler(app.Reminders)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": handler.PingFunc(databasePing(tx)),
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return app.RedisClient.Ping(ctx).Err()
		}),
	})

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore, log)
	corsMiddleware := middleware.NewCORSMiddleware()
	observabilityMiddleware := middleware.NewObservabilityMiddleware(log, app.Metrics)

	router := deliveryHttp.NewRouter(
		authHandler, appointmentHandler, auditLogHandler, reminderHandler, healthHandler,
		app.Metrics.Handler(), authMiddleware, corsMiddleware, observabilityMiddleware,
	)

	app.Server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.App.Port),
		Handler: router.Setup(),
	}
	return nil
}

func databasePing(tx domainRepo.Transactor) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := tx.Conn(ctx).DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.App.ShutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Drain(ctx)
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Drain waits for queued notifications to be delivered.
func (app *App) Drain(ctx context.Context) {
	if app.Notifications == nil {
		return
	}
	if err := app.Notifications.Shutdown(ctx); err != nil {
		app.Log.Warnf("Failed to drain notifications: %+v", err)
	}
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
