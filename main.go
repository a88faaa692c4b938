package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"comparador/internal/config"
	"comparador/internal/database"
	"comparador/internal/handlers"
	"comparador/internal/logging"
	"comparador/internal/middleware"
	"comparador/internal/repositories"
	"comparador/internal/security"
	"comparador/internal/services"
	"comparador/internal/sessions"
	"comparador/pkg/rabbitmq"
)

// maxSessionSweepInterval bounds how long expired in-memory sessions linger.
const maxSessionSweepInterval = 5 * time.Minute

// App is the wired service with the resources it owns.
type App struct {
	Fiber  *fiber.App
	DB     *gorm.DB
	Tokens *services.TokenService

	cfg   *config.Config
	log   *slog.Logger
	redis *redis.Client
	mq    *rabbitmq.Client

	memSessions *sessions.MemoryStore
}

// NewApp opens every backend named by cfg and mounts the routes.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	// --- Database ---
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, err
	}

	// --- Session backend ---
	var state sessions.Store
	var sessionStorage fiber.Storage
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = a.redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		state = sessions.NewRedisStore(a.redis, cfg.SessionTTL)
		sessionStorage = sessions.NewFiberStorage(a.redis)
	default:
		a.memSessions = sessions.NewMemoryStore(cfg.SessionTTL)
		state = a.memSessions
	}

	// --- Account events ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Warn("account events disabled", "error", err)
		} else {
			a.mq = mq
			events = mq
		}
	}

	// --- Repositories ---
	store := repositories.NewGORMStore(db)
	productRepo := repositories.NewGORMProductRepository(db)
	chatRepo := repositories.NewGORMChatRepository(db)

	// --- Services ---
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	authz := services.NewAuthorizer(cfg.AdminUsername)
	authService := services.NewAuthService(store, hasher, authz, events, log)
	sessionService := services.NewSessionService(state, authService)
	a.Tokens = services.NewTokenService(store, hasher, cfg.ResetTokenTTL, events, log)

	snapshotPath := ""
	if cfg.DBDriver == config.DriverSQLite {
		snapshotPath = cfg.DatabasePath
	}

	// --- Handlers ---
	h := handlers.Handlers{
		Auth: handlers.NewAuthHandler(authService, sessionService, a.Tokens,
			security.NewRememberMe(cfg.SecretKey, cfg.RememberMeTTL), cfg.ExposeResetTokens, log),
		Cart:    handlers.NewCartHandler(services.NewCartService(state, productRepo)),
		Product: handlers.NewProductHandler(services.NewProductService(productRepo)),
		Chat:    handlers.NewChatHandler(services.NewChatService(chatRepo), cfg.DisplayLocation),
		Admin:   handlers.NewAdminHandler(services.NewSnapshotService(db, snapshotPath, authz)),
	}

	// --- Fiber ---
	a.Fiber = fiber.New(fiber.Config{
		BodyLimit:    cfg.SnapshotMaxBytes,
		ErrorHandler: handlers.ErrorHandler(log),
	})
	a.Fiber.Use(logger.New())
	handlers.SetupRoutes(a.Fiber, middleware.NewSessionStore(cfg.SessionTTL, sessionStorage), sessionService, h)

	return a, nil
}

// Start launches the background workers. They stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	if a.cfg.TokenSweepInterval > 0 {
		go a.Tokens.RunSweeper(ctx, a.cfg.TokenSweepInterval)
	}

	// Redis expires its own keys; the in-process store has to be swept.
	if a.memSessions != nil {
		interval := a.cfg.SessionTTL
		if interval <= 0 || interval > maxSessionSweepInterval {
			interval = maxSessionSweepInterval
		}
		go a.memSessions.RunSweeper(ctx, interval)
	}

	if a.mq != nil {
		err := a.mq.ConsumeAccountEvents(func(routingKey string, body []byte) error {
			a.log.Info("account event received", "routing_key", routingKey, "bytes", len(body))
			return nil
		})
		if err != nil {
			a.log.Warn("failed to start account event consumer", "error", err)
		}
	}
}

// Close releases every backend connection.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	app.Start(ctx)

	go func() {
		log.Info("starting server", "addr", cfg.AppPort, "db_driver", cfg.DBDriver, "session_backend", cfg.SessionBackend)
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during fiber shutdown", "error", err)
	}
	if err := app.Close(); err != nil {
		log.Error("error closing resources", "error", err)
	}
	log.Info("server gracefully stopped")
}
