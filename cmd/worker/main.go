// Package main is the entry point for the HabitForge background worker.
//
// The worker runs the periodic engagement jobs:
// - Streak-at-risk reminders for habits not yet completed today
// - Morning digests summarizing yesterday's progress
//
// It shares storage with the API server but carries no HTTP surface; each job
// reads the repositories directly and pushes notices through the configured
// provider.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/habitforge/habitforge/config"

	// Domain layer
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	notifdomain "github.com/habitforge/habitforge/internal/domain/notification"

	// Infrastructure layer
	"github.com/habitforge/habitforge/internal/infrastructure/notification"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/memory"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/postgres"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/sqlite"
	"github.com/habitforge/habitforge/internal/infrastructure/scheduler"
	"github.com/habitforge/habitforge/internal/infrastructure/scheduler/jobs"

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
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting HabitForge worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("storage", cfg.Database.Storage),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	// Jobs scan across users, so they need the concrete repositories and
	// their ListAllActive method rather than the per-user domain interface.
	var (
		habitLister   jobs.HabitLister
		completions   habit.CompletionRepository
		ledger        gamification.LedgerRepository
		streakHistory gamification.StreakHistoryRepository
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

		// The worker also keeps the schema current so it can start before
		// the API server on a fresh database.
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")

		habitLister = postgres.NewHabitRepository(conn)
		completions = postgres.NewCompletionRepository(conn)
		ledger = postgres.NewLedgerRepository(conn)
		streakHistory = postgres.NewStreakHistoryRepository(conn)

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

		habitLister = store.Habits()
		completions = store.Completions()
		ledger = store.Ledger()
		streakHistory = store.StreakHistory()

	case config.StorageMemory:
		// Useless in practice (the worker would only see its own writes)
		// but handy for smoke-testing job wiring.
		log.Warn("using in-memory storage, jobs will see no data")
		store := memory.NewStore()

		habitLister = store.Habits()
		completions = store.Completions()
		ledger = store.Ledger()
		streakHistory = store.StreakHistory()

	default:
		return fmt.Errorf("unknown storage backend: %s", cfg.Database.Storage)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. NOTIFICATIONS
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
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")

	loc := cfg.App.Location

	schedConfig := scheduler.DefaultConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = loc
	sched := scheduler.New(schedConfig)

	if cfg.Features.IsEnabled(config.FeatureNotifyStreakReminder, nil) {
		reminderJob := jobs.NewStreakReminderJob(habitLister, completions, streakHistory, notifier, loc, log)
		if err := sched.Register(reminderJob, scheduler.Every(cfg.Scheduler.StreakReminderInterval)); err != nil {
			return fmt.Errorf("failed to register streak reminder job: %w", err)
		}
		log.Info("registered streak reminder job",
			logger.String("interval", cfg.Scheduler.StreakReminderInterval.String()))
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyDailyDigest, nil) {
		digestJob := jobs.NewDailyDigestJob(habitLister, completions, ledger, notifier, loc, log)
		digestAt := scheduler.DailyAt(cfg.Scheduler.DailyDigestHour, cfg.Scheduler.DailyDigestMinute)
		if err := sched.Register(digestJob, digestAt); err != nil {
			return fmt.Errorf("failed to register daily digest job: %w", err)
		}
		log.Info("registered daily digest job", logger.String("at", digestAt.String()))
	}

	if len(sched.ListJobs()) == 0 {
		log.Warn("all jobs are disabled by feature flags, nothing to do")
		return nil
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("HabitForge worker is running", logger.Int("jobs", len(sched.ListJobs())))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	log.Info("stopping scheduler...")
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", logger.Err(err))
		return err
	}

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
