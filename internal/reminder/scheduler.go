package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/repo"
	"github.com/tbourn/elderly-care-backend/internal/validate"
)

// KindMedication is the job kind of a medication reminder.
const KindMedication = "medication_reminder"

// Payload is the input data carried by a medication reminder job.
// MedicationTime is optional; reminders queued by Scheduler omit it.
type Payload struct {
	MedicationName string `json:"medicationName"`
	MedicationTime string `json:"medicationTime,omitempty"`
}

// Scheduler enqueues and cancels medication reminders in the job store.
type Scheduler struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// NewScheduler returns a Scheduler writing to the job store db.
func NewScheduler(db *gorm.DB, log zerolog.Logger) *Scheduler {
	return &Scheduler{db: db, log: log, now: time.Now}
}

// Schedule queues a reminder for name at the next occurrence of tod and
// returns the job id, which is also the tag used to cancel it.
func (s *Scheduler) Schedule(ctx context.Context, name string, tod validate.TimeOfDay) (string, error) {
	now := s.now()
	delay := NextDelay(now, tod)

	raw, err := json.Marshal(Payload{MedicationName: name})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	j := &domain.DeferredJob{
		ID:      uuid.NewString(),
		Kind:    KindMedication,
		Payload: string(raw),
		RunAt:   now.Add(delay),
	}
	if err := repo.EnqueueJob(ctx, s.db, j); err != nil {
		return "", fmt.Errorf("enqueue reminder: %w", err)
	}

	s.log.Info().
		Str("job_id", j.ID).
		Str("at", tod.String()).
		Dur("delay", delay).
		Msg("reminder scheduled")
	return j.ID, nil
}

// Cancel stops the pending reminder id. It reports false when the job is
// unknown or no longer pending.
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	ok, err := repo.CancelJob(ctx, s.db, id)
	if err != nil {
		return false, fmt.Errorf("cancel reminder %s: %w", id, err)
	}
	s.log.Info().Str("job_id", id).Bool("cancelled", ok).Msg("reminder cancel")
	return ok, nil
}
