// Package main is the entry point for the HabitForge API server.
//
// The server exposes the habit completion and gamification engine over HTTP:
// habit CRUD, the completion pipeline (streaks, XP, achievements, feed), undo,
// and the progress/feed read models.
//
// Architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries/Event Handlers)
// - Infrastructure: repository implementations, Redis, push providers
// - Interface: HTTP handlers and middleware
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/habitforge/habitforge/config"

	// Application layer
	"github.com/habitforge/habitforge/internal/application/command"
	"github.com/habitforge/habitforge/internal/application/eventhandler"
	"github.com/habitforge/habitforge/internal/application/query"

	// Domain layer
	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	notifdomain "github.com/habitforge/habitforge/internal/domain/notification"

	// Infrastructure layer
	"github.com/habitforge/habitforge/internal/infrastructure/messaging"
	"github.com/habitforge/habitforge/internal/infrastructure/notification"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/memory"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/postgres"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/redis"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/sqlite"

	// Interface layer
	httpserver "github.com/habitforge/habitforge/internal/interface/http"
	"github.com/habitforge/habitforge/internal/interface/http/handlers"

	// Packages
	"github.com/habitforge/habitforge/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// A missing .env file is fine; in production everything comes from the
	// real environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting HabitForge API server",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("storage", cfg.Database.Storage),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)

	var (
		habits        habit.Repository
		completions   habit.CompletionRepository
		ledger        gamification.LedgerRepository
		unlocks       gamification.UnlockRepository
		streakHistory gamification.StreakHistoryRepository
		feedRepo      feed.Repository
	)

	switch cfg.Database.Storage {
	case config.StoragePostgres:
		log.Info("connecting to database...")
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			conn.Close()
		}()

		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")

		habits = postgres.NewHabitRepository(conn)
		completions = postgres.NewCompletionRepository(conn)
		ledger = postgres.NewLedgerRepository(conn)
		unlocks = postgres.NewUnlockRepository(conn)
		streakHistory = postgres.NewStreakHistoryRepository(conn)
		feedRepo = postgres.NewFeedRepository(conn)

		healthChecker.AddCheck("postgres", conn.Ping)

	case config.StorageSQLite:
		log.Info("opening sqlite database...", logger.String("path", cfg.Database.SQLitePath))
		store, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		defer func() {
			log.Info("closing sqlite database...")
			_ = store.Close()
		}()

		habits = store.Habits()
		completions = store.Completions()
		ledger = store.Ledger()
		unlocks = store.Unlocks()
		streakHistory = store.StreakHistory()
		feedRepo = store.Feed()

		healthChecker.AddCheck("sqlite", store.Ping)

	case config.StorageMemory:
		log.Warn("using in-memory storage, all data is lost on restart")
		store := memory.NewStore()

		habits = store.Habits()
		completions = store.Completions()
		ledger = store.Ledger()
		unlocks = store.Unlocks()
		streakHistory = store.StreakHistory()
		feedRepo = store.Feed()

	default:
		return fmt.Errorf("unknown storage backend: %s", cfg.Database.Storage)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache and distributed locks",
				logger.Err(err))
			cache = nil
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = cache.Close()
			}()
			healthChecker.AddCheck("redis", cache.Ping)
			log.Info("Redis connection established")
		}
	}

	if cache != nil && cfg.Features.IsEnabled(config.FeatureEngineXPCache, nil) {
		ledger = redis.NewCachedLedgerRepository(ledger, cache, log)
		log.Info("XP totals cache enabled")
	}

	// Day locks serialize completions per (user, day). With Redis they hold
	// across replicas; without it an in-process mutex covers the single-node
	// case.
	var locker command.DayLocker
	if cfg.Features.IsEnabled(config.FeatureEngineDayLocks, nil) {
		if cache != nil {
			locker = redis.NewDayLocker(cache, log)
		} else {
			locker = redis.NewInProcessDayLocker()
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true

	var eventBus messaging.Bus
	if cache != nil && cfg.Redis.EventBus {
		// Pub/Sub fan-out so notification handlers fire on every replica.
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(cache.Client()),
			LocalBusConfig: eventBusConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		log.Info("event bus backed by redis pub/sub")
	} else {
		eventBus = messaging.NewInMemoryEventBus(eventBusConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. NOTIFICATIONS
	// ─────────────────────────────────────────────────────────────────────────
	var sender notifdomain.Sender
	switch cfg.Notifications.Provider {
	case "http":
		sender = notification.NewHTTPPushSender(cfg.Notifications.Endpoint, cfg.Notifications.APIKey)
	default:
		sender = notification.NewLogSender(log)
	}
	notifier := notification.NewService(sender, log)
	log.Info("push notifications configured", logger.String("provider", cfg.Notifications.Provider))

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	if cfg.Features.IsEnabled(config.FeatureNotifyLevelUp, nil) {
		levelUpHandler := eventhandler.NewOnLevelUpHandler(notifier, log)
		if err := levelUpHandler.Subscribe(eventBus); err != nil {
			return fmt.Errorf("failed to subscribe level-up handler: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyAchievement, nil) {
		achievementHandler := eventhandler.NewOnAchievementUnlockedHandler(notifier, log)
		if err := achievementHandler.Subscribe(eventBus); err != nil {
			return fmt.Errorf("failed to subscribe achievement handler: %w", err)
		}
	}

	// Per-completion summaries are noisy, so the flag defaults off.
	if cfg.Features.IsEnabled(config.FeatureNotifyCompletionSummary, nil) {
		summaryHandler := eventhandler.NewOnHabitCompletedHandler(notifier, log)
		if err := summaryHandler.Subscribe(eventBus); err != nil {
			return fmt.Errorf("failed to subscribe completion summary handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	ids := command.UUIDGenerator{}
	loc := cfg.App.Location

	streakCalc := gamification.NewStreakCalculator(completions, loc)
	evaluator := gamification.NewEvaluator(unlocks, ledger, ids, log)

	opts := command.Options{
		DisableAchievements:    !cfg.Features.IsEnabled(config.FeatureGamificationAchievements, nil),
		DisableFeed:            !cfg.Features.IsEnabled(config.FeatureFeedEvents, nil),
		DisablePerfectDayBonus: !cfg.Features.IsEnabled(config.FeatureGamificationPerfectDay, nil),
	}

	completeHabitCmd := command.NewCompleteHabitHandler(
		habits, completions, ledger, streakHistory, feedRepo,
		streakCalc, evaluator, locker, eventBus, ids, loc, opts, log,
	)
	undoCompletionCmd := command.NewUndoCompletionHandler(completions, eventBus, log)
	createHabitCmd := command.NewCreateHabitHandler(habits, eventBus, log)
	archiveHabitCmd := command.NewArchiveHabitHandler(habits, log)
	renameHabitCmd := command.NewRenameHabitHandler(habits)

	dailyProgressQuery := query.NewDailyProgressQuery(habits, completions, streakHistory, loc)
	userProgressQuery := query.NewUserProgressQuery(ledger, completions, unlocks)
	feedQuery := query.NewFeedQuery(feedRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. AUTH
	// ─────────────────────────────────────────────────────────────────────────
	var auth *handlers.TokenAuth
	if cfg.Auth.Enabled && len(cfg.Auth.Credentials) > 0 {
		auth = handlers.NewTokenAuth(cfg.Auth.Credentials)
		log.Info("bearer token auth enabled", logger.Int("users", len(cfg.Auth.Credentials)))
	} else {
		log.Warn("auth disabled, user identity comes from the X-User-ID header")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	httpDeps := httpserver.Dependencies{
		CompleteHabit:  completeHabitCmd,
		UndoCompletion: undoCompletionCmd,
		CreateHabit:    createHabitCmd,
		ArchiveHabit:   archiveHabitCmd,
		RenameHabit:    renameHabitCmd,
		DailyProgress:  dailyProgressQuery,
		UserProgress:   userProgressQuery,
		Feed:           feedQuery,
		ListHabits:     habits,
		Auth:           auth,
		Logger:         log,
		HealthChecker:  healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", logger.String("address", httpServer.Address()))
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("HabitForge API server is running",
		logger.String("address", httpServer.Address()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown...",
		logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	// Event bus, Redis and storage close via defer, in reverse order.

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger builds the structured logger from observability settings.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
