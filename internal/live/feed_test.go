package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// counterSource is a thread-safe stand-in for a table.
type counterSource struct {
	mu    sync.Mutex
	rows  []int
	loads atomic.Int32
	err   error
}

func (s *counterSource) add(v int) {
	s.mu.Lock()
	s.rows = append(s.rows, v)
	s.mu.Unlock()
}

func (s *counterSource) load(context.Context) ([]int, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]int(nil), s.rows...), nil
}

func recv(t *testing.T, ch <-chan Snapshot[int]) Snapshot[int] {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot[int]{}
}

func TestFeed_InitialSnapshotThenUpdates(t *testing.T) {
	src := &counterSource{rows: []int{1}}
	f := NewFeed(src.load, zerolog.Nop())
	defer f.Close()

	ch, err := f.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	first := recv(t, ch)
	if len(first.Items) != 1 || first.Items[0] != 1 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	src.add(2)
	f.Notify()
	next := recv(t, ch)
	if next.Version <= first.Version {
		t.Fatalf("version did not increase: %d -> %d", first.Version, next.Version)
	}
	if len(next.Items) != 2 {
		t.Fatalf("expected 2 items after change, got %+v", next.Items)
	}
}

func TestFeed_SlowSubscriberSeesMonotonicVersions(t *testing.T) {
	src := &counterSource{}
	f := NewFeed(src.load, zerolog.Nop())
	defer f.Close()

	ch, err := f.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 50; i++ {
		src.add(i)
		f.Notify()
	}

	var last uint64
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Version <= last {
				t.Fatalf("out of order: %d after %d", s.Version, last)
			}
			last = s.Version
			if len(s.Items) == 50 {
				return
			}
		case <-deadline:
			t.Fatalf("never observed final state (last version %d)", last)
		}
	}
}

func TestFeed_UnsubscribeOnContextCancel(t *testing.T) {
	src := &counterSource{}
	f := NewFeed(src.load, zerolog.Nop())
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// a pending snapshot may still drain; the close must follow
			if _, ok := <-ch; ok {
				t.Fatalf("expected channel to close after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestFeed_CloseClosesSubscribersAndRejectsNew(t *testing.T) {
	src := &counterSource{}
	f := NewFeed(src.load, zerolog.Nop())

	ch, err := f.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	recv(t, ch)
	f.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed")
	}
	if _, err := f.Subscribe(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFeed_InitialLoadErrorIsReturned(t *testing.T) {
	src := &counterSource{err: errors.New("boom")}
	f := NewFeed(src.load, zerolog.Nop())
	defer f.Close()

	if _, err := f.Subscribe(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestFeed_CurrentDoesNotLeakSubscribers(t *testing.T) {
	src := &counterSource{rows: []int{7}}
	f := NewFeed(src.load, zerolog.Nop())
	defer f.Close()

	for i := 0; i < 3; i++ {
		snap, err := f.Current(context.Background())
		if err != nil {
			t.Fatalf("Current: %v", err)
		}
		if len(snap.Items) != 1 || snap.Items[0] != 7 {
			t.Fatalf("Current = %+v", snap)
		}
	}
	// only the first call needs a load
	if n := src.loads.Load(); n != 1 {
		t.Fatalf("expected 1 load, got %d", n)
	}
}

func TestTracker_ChangedCallsWatchers(t *testing.T) {
	tr := NewTracker()
	var notes, other int
	tr.Watch("notes", func() { notes++ })
	tr.Watch("patient_info", func() { other++ })

	tr.Changed("notes")
	tr.Changed("notes")
	if notes != 2 || other != 0 {
		t.Fatalf("notes=%d other=%d", notes, other)
	}
}
