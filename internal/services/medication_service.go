// Package services – MedicationService
//
// MedicationService backs the medication screen. Each accepted entry is
// turned into a one-shot reminder job; the list of scheduled entries lives
// only in memory, so a restart forgets the list while already queued jobs
// still fire.
package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/validate"
)

// ReminderScheduler queues and cancels reminder jobs.
type ReminderScheduler interface {
	Schedule(ctx context.Context, name string, tod validate.TimeOfDay) (string, error)
	Cancel(ctx context.Context, jobID string) (bool, error)
}

// MedicationService is the view-state holder for scheduled medications.
type MedicationService struct {
	sched ReminderScheduler
	log   zerolog.Logger

	mu    sync.Mutex
	items []domain.MedSchedule
}

// NewMedicationService returns an empty MedicationService.
func NewMedicationService(s ReminderScheduler, log zerolog.Logger) *MedicationService {
	return &MedicationService{sched: s, log: log}
}

// Schedule validates timeText and queues a reminder for name. The entry is
// listed only once the job has been queued.
func (s *MedicationService) Schedule(ctx context.Context, name, timeText string) (*domain.MedSchedule, error) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Schedule")
	defer span.End()

	tod, res := validate.MedicationTime(timeText)
	if !res.Valid() {
		return nil, invalid(res)
	}

	id, err := s.sched.Schedule(ctx, name, tod)
	if err != nil {
		s.log.Error().Err(err).Msg("schedule reminder")
		return nil, err
	}
	span.SetAttributes(attribute.String("job.id", id))

	entry := domain.MedSchedule{Name: name, Time: tod.String(), JobID: id}
	s.mu.Lock()
	s.items = append(s.items, entry)
	s.mu.Unlock()
	return &entry, nil
}

// Delete removes the entry for jobID and cancels its reminder. Concurrent
// deletes of the same entry cancel it once. The cancellation outcome is
// logged, not returned.
func (s *MedicationService) Delete(ctx context.Context, jobID string) error {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("job.id", jobID)),
	)
	defer span.End()

	s.mu.Lock()
	idx := -1
	for i, e := range s.items {
		if e.JobID == jobID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrScheduleNotFound
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	s.mu.Unlock()

	ok, err := s.sched.Cancel(ctx, jobID)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("cancel reminder")
	case !ok:
		s.log.Info().Str("job_id", jobID).Msg("reminder already fired or gone")
	}
	return nil
}

// Get returns the entry for jobID.
func (s *MedicationService) Get(jobID string) (domain.MedSchedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.JobID == jobID {
			return e, true
		}
	}
	return domain.MedSchedule{}, false
}

// List returns the scheduled entries in the order they were added.
func (s *MedicationService) List() []domain.MedSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MedSchedule, len(s.items))
	copy(out, s.items)
	return out
}
