// Command server runs the elderly-care HTTP API together with the reminder
// worker that fires scheduled medication notifications.
//
// @title       Elderly Care API
// @version     1.0
// @description Medication reminders, appointment notes and patient vitals.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/elderly-care-backend/internal/config"
	httpapi "github.com/tbourn/elderly-care-backend/internal/http"
	"github.com/tbourn/elderly-care-backend/internal/live"
	"github.com/tbourn/elderly-care-backend/internal/observability"
	"github.com/tbourn/elderly-care-backend/internal/reminder"
	"github.com/tbourn/elderly-care-backend/internal/repo"
	"github.com/tbourn/elderly-care-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version string

const idempotencyPurgeEvery = time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	cfg := config.MustLoad()

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	logger := sysutil.SetupLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: ver,
	})

	if err := run(cfg, ver, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, ver string, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Stores.
	tracker := live.NewTracker()
	store := repo.NewAccessor(cfg.DBPath, repo.NewMigrator(logger.With().Str("component", "migrator").Logger()), logger, tracker)
	defer func() { _ = store.Close() }()
	db, err := store.Get(ctx)
	if err != nil {
		return err
	}

	jobsDB, err := repo.OpenSQLite(cfg.JobsDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close(jobsDB) }()
	if err := repo.AutoMigrateJobs(jobsDB); err != nil {
		return err
	}

	// Reminders.
	notifiers := reminder.Fanout{reminder.LogNotifier{Log: logger.With().Str("component", "notifier").Logger()}}
	if cfg.Notify.MailEnabled() {
		n := cfg.Notify
		notifiers = append(notifiers, reminder.NewMailNotifier(n.SMTPHost, n.SMTPPort, n.SMTPUser, n.SMTPPassword, n.From, n.To))
	}
	workerLog := logger.With().Str("component", "worker").Logger()
	worker := reminder.NewWorker(jobsDB, reminder.Config{
		BatchSize: cfg.Worker.BatchSize,
		Interval:  cfg.Worker.Interval,
	}, workerLog)
	worker.Handle(reminder.KindMedication, reminder.MedicationHandler(notifiers))
	sched := reminder.NewScheduler(jobsDB, logger.With().Str("component", "scheduler").Logger())

	// HTTP.
	gin.SetMode(cfg.GinMode)
	app := httpapi.NewApp(db, tracker, sched, logger)
	defer app.Close()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, app, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Open event streams end when their feeds close.
		app.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		t := time.NewTicker(idempotencyPurgeEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case now := <-t.C:
				n, err := repo.PurgeIdempotency(gctx, db, now.UTC())
				if err != nil {
					logger.Warn().Err(err).Msg("purge idempotency")
					continue
				}
				if n > 0 {
					logger.Debug().Int64("rows", n).Msg("expired idempotency records purged")
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
