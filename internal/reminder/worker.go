package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/repo"
)

// Handler executes one claimed job. A non-nil error marks the job failed.
type Handler func(ctx context.Context, j domain.DeferredJob) error

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize int           // due jobs fetched per pass
	Interval  time.Duration // poll interval
}

// Worker polls the job store and runs due jobs once each. Jobs are never
// retried: a failing handler leaves the job failed.
type Worker struct {
	db       *gorm.DB
	log      zerolog.Logger
	cfg      Config
	handlers map[string]Handler
	now      func() time.Time
}

// NewWorker constructs a Worker over the job store db.
func NewWorker(db *gorm.DB, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Worker{
		db:       db,
		log:      log,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		now:      time.Now,
	}
}

// Handle registers h for jobs of kind. Register handlers before Run.
func (w *Worker) Handle(kind string, h Handler) {
	w.handlers[kind] = h
}

// Run polls until ctx is cancelled. Jobs left running by a previous process
// are failed first, then one pass runs immediately.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("reminder worker starting")

	if n, err := repo.FailInterruptedJobs(ctx, w.db); err != nil {
		w.log.Error().Err(err).Msg("fail interrupted jobs")
	} else if n > 0 {
		w.log.Warn().Int64("jobs", n).Msg("interrupted jobs marked failed")
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("reminder worker pass")
		}
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reminder worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce runs every job due now and returns how many it ran.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	due, err := repo.DueJobs(ctx, w.db, w.now(), w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due jobs: %w", err)
	}

	ran := 0
	for _, j := range due {
		ok, err := repo.ClaimJob(ctx, w.db, j.ID)
		if err != nil {
			return ran, fmt.Errorf("claim %s: %w", j.ID, err)
		}
		if !ok {
			// Cancelled between load and claim.
			continue
		}
		ran++

		errMsg := ""
		if err := w.run(ctx, j); err != nil {
			errMsg = err.Error()
			w.log.Error().Err(err).Str("job_id", j.ID).Str("kind", j.Kind).Msg("job failed")
		} else {
			w.log.Debug().Str("job_id", j.ID).Str("kind", j.Kind).Msg("job done")
		}
		if err := repo.FinishJob(ctx, w.db, j.ID, errMsg); err != nil {
			w.log.Error().Err(err).Str("job_id", j.ID).Msg("finish job")
		}
	}
	return ran, nil
}

func (w *Worker) run(ctx context.Context, j domain.DeferredJob) (err error) {
	h, ok := w.handlers[j.Kind]
	if !ok {
		return fmt.Errorf("unknown job kind: %s", j.Kind)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, j)
}

// MedicationHandler decodes a reminder payload and hands the rendered
// notification to n.
func MedicationHandler(n Notifier) Handler {
	return func(ctx context.Context, j domain.DeferredJob) error {
		var p Payload
		if err := json.Unmarshal([]byte(j.Payload), &p); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		return n.Notify(ctx, Compose(p))
	}
}
