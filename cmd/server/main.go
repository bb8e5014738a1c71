package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"intakeguard/internal/directory"
	"intakeguard/internal/enforcement"
	"intakeguard/internal/enforcement/metrics"
	"intakeguard/internal/intake"
	"intakeguard/internal/notification"
	"intakeguard/internal/platform/config"
	"intakeguard/internal/platform/httpserver"
	"intakeguard/internal/platform/logger"
	"intakeguard/internal/platform/postgres"
	platformredis "intakeguard/internal/platform/redis"
	"intakeguard/internal/platform/runlock"
	"intakeguard/internal/tombstone"
	httpapi "intakeguard/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		intakes    intake.Store
		ledger     notification.Ledger
		tombstones tombstone.Store
		contacts   notification.Directory
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		intakes = intake.NewPostgresStore(db)
		ledger = notification.NewPostgresLedger(db)
		tombstones = tombstone.NewPostgresStore(db)
		contacts = directory.NewPostgresDirectory(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		intakes = intake.NewInMemoryStore()
		ledger = notification.NewInMemoryLedger()
		tombstones = tombstone.NewInMemoryStore()
		contacts = directory.NewInMemoryDirectory()
	}

	var mailer notification.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = notification.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		log.Warn("RESEND_API_KEY not set, notifications degrade to log-only")
	}
	dispatcher := notification.NewDispatcher(contacts, mailer, log)

	engineOpts := []enforcement.Option{
		enforcement.WithMetrics(metrics.New()),
		enforcement.WithThresholds(cfg.ReminderThresholds),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without the invocation lease", "error", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		engineOpts = append(engineOpts,
			enforcement.WithLock(runlock.New(redisClient.Client, "intakeguard:enforcement:lease", 4*time.Minute)))
	}

	engine := enforcement.NewEngine(intakes, ledger, tombstones, dispatcher, log, engineOpts...)

	handler := httpapi.New(intakes, engine, log, cfg.CronSecret, cfg.ConfirmWindow)
	srv := httpserver.New(cfg.Addr, handler.Router())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting intakeguard", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.EnforceInterval > 0 {
		worker := enforcement.NewWorker(engine, cfg.EnforceInterval, log)
		g.Go(func() error {
			log.Info("starting enforcement worker", "interval", cfg.EnforceInterval.String())
			err := worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
	}
}
