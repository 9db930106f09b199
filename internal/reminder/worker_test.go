package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/repo"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
	err error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func enqueueAt(t *testing.T, w *Worker, id, kind, payload string, runAt time.Time) {
	t.Helper()
	j := &domain.DeferredJob{ID: id, Kind: kind, Payload: payload, RunAt: runAt}
	if err := repo.EnqueueJob(context.Background(), w.db, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
}

func status(t *testing.T, w *Worker, id string) domain.JobStatus {
	t.Helper()
	j, err := repo.GetJob(context.Background(), w.db, id)
	if err != nil {
		t.Fatalf("GetJob %s: %v", id, err)
	}
	return j.Status
}

func TestWorker_RunsDueJobsOnce(t *testing.T) {
	w := NewWorker(newJobDB(t), Config{}, zerolog.Nop())
	rec := &recordingNotifier{}
	w.Handle(KindMedication, MedicationHandler(rec))

	now := time.Now().UTC()
	enqueueAt(t, w, "due", KindMedication, `{"medicationName":"Aspirin"}`, now.Add(-time.Minute))
	enqueueAt(t, w, "later", KindMedication, `{"medicationName":"B"}`, now.Add(time.Hour))

	n, err := w.ProcessOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ProcessOnce = (%d, %v), want 1", n, err)
	}
	if rec.count() != 1 || rec.got[0].Title != "Medication Reminder: Aspirin" {
		t.Fatalf("notifications = %+v", rec.got)
	}
	if s := status(t, w, "due"); s != domain.JobDone {
		t.Fatalf("due status = %s", s)
	}
	if s := status(t, w, "later"); s != domain.JobPending {
		t.Fatalf("later status = %s", s)
	}

	// Nothing fires twice.
	if n, _ := w.ProcessOnce(context.Background()); n != 0 {
		t.Fatalf("second pass ran %d", n)
	}
}

func TestWorker_CancelledJobNeverFires(t *testing.T) {
	w := NewWorker(newJobDB(t), Config{}, zerolog.Nop())
	rec := &recordingNotifier{}
	w.Handle(KindMedication, MedicationHandler(rec))

	enqueueAt(t, w, "j1", KindMedication, `{}`, time.Now().Add(-time.Minute))
	if ok, _ := repo.CancelJob(context.Background(), w.db, "j1"); !ok {
		t.Fatal("cancel failed")
	}
	if n, _ := w.ProcessOnce(context.Background()); n != 0 || rec.count() != 0 {
		t.Fatalf("cancelled job ran: n=%d notes=%d", n, rec.count())
	}
}

func TestWorker_FailuresAreRecorded(t *testing.T) {
	w := NewWorker(newJobDB(t), Config{}, zerolog.Nop())
	w.Handle(KindMedication, MedicationHandler(&recordingNotifier{err: errors.New("offline")}))
	w.Handle("boom", func(context.Context, domain.DeferredJob) error { panic("kaboom") })

	past := time.Now().Add(-time.Minute)
	enqueueAt(t, w, "notify", KindMedication, `{}`, past)
	enqueueAt(t, w, "badjson", KindMedication, `not json`, past)
	enqueueAt(t, w, "unknown", "mystery", `{}`, past)
	enqueueAt(t, w, "panics", "boom", `{}`, past)

	if n, err := w.ProcessOnce(context.Background()); err != nil || n != 4 {
		t.Fatalf("ProcessOnce = (%d, %v), want 4", n, err)
	}
	for _, id := range []string{"notify", "badjson", "unknown", "panics"} {
		j, _ := repo.GetJob(context.Background(), w.db, id)
		if j.Status != domain.JobFailed || j.LastError == "" {
			t.Fatalf("%s = %+v, want failed with error", id, j)
		}
	}
}

func TestWorker_RunPollsImmediatelyAndStops(t *testing.T) {
	w := NewWorker(newJobDB(t), Config{Interval: time.Hour}, zerolog.Nop())
	rec := &recordingNotifier{}
	w.Handle(KindMedication, MedicationHandler(rec))

	enqueueAt(t, w, "stale", KindMedication, `{}`, time.Now().Add(-time.Hour))
	_, _ = repo.ClaimJob(context.Background(), w.db, "stale")
	enqueueAt(t, w, "due", KindMedication, `{}`, time.Now().Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for rec.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not run the first pass")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	if s := status(t, w, "stale"); s != domain.JobFailed {
		t.Fatalf("interrupted job = %s, want failed", s)
	}
	if rec.count() != 1 {
		t.Fatalf("notifications = %d, want 1", rec.count())
	}
}
