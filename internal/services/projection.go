package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/elderly-care-backend/internal/live"
)

// projection keeps the latest snapshot of a live feed in memory. Readers get
// an eventually-consistent copy; the feed goroutine is the only writer.
type projection[T any] struct {
	feed   *live.Feed[T]
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.RWMutex
	snap live.Snapshot[T]
}

// newProjection starts a feed over load, refreshed whenever table changes.
func newProjection[T any](tracker *live.Tracker, table string, load live.Loader[T], log zerolog.Logger) *projection[T] {
	feed := live.NewFeed(load, log)
	if tracker != nil {
		tracker.Watch(table, feed.Notify)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &projection[T]{feed: feed, cancel: cancel, done: make(chan struct{})}

	ch, err := feed.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("projection subscribe")
		close(p.done)
		return p
	}
	go func() {
		defer close(p.done)
		for snap := range ch {
			p.mu.Lock()
			p.snap = snap
			p.mu.Unlock()
		}
	}()
	return p
}

// items returns a copy of the current projection and its version.
func (p *projection[T]) items() ([]T, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]T, len(p.snap.Items))
	copy(out, p.snap.Items)
	return out, p.snap.Version
}

func (p *projection[T]) subscribe(ctx context.Context) (<-chan live.Snapshot[T], error) {
	return p.feed.Subscribe(ctx)
}

func (p *projection[T]) close() {
	p.cancel()
	p.feed.Close()
	<-p.done
}
