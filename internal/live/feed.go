package live

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Subscribe after the feed has been closed.
var ErrClosed = errors.New("live: feed closed")

// Loader runs the query behind a feed and returns the full, ordered result.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Snapshot is one delivery of a feed. Versions increase by one per reload.
type Snapshot[T any] struct {
	Version uint64
	Items   []T
}

type subscriber[T any] struct {
	id uint64
	ch chan Snapshot[T]
}

type subscribeReq[T any] struct {
	sub   *subscriber[T]
	reply chan error
}

// Feed is a live query. All loading and delivery happens on one goroutine,
// which gives every subscriber snapshots in strictly increasing version
// order. Each subscriber holds at most one undelivered snapshot: when a newer
// one arrives first, the older is replaced, so a slow reader skips
// intermediate states but never sees them out of order.
type Feed[T any] struct {
	load Loader[T]
	log  zerolog.Logger

	dirty chan struct{}
	subs  chan subscribeReq[T]
	unsub chan uint64
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	nextID uint64

	// owned by run()
	members map[uint64]*subscriber[T]
	last    Snapshot[T]
	loaded  bool
}

// NewFeed starts a feed over load. Close must be called to stop it.
func NewFeed[T any](load Loader[T], log zerolog.Logger) *Feed[T] {
	f := &Feed[T]{
		load:    load,
		log:     log,
		dirty:   make(chan struct{}, 1),
		subs:    make(chan subscribeReq[T]),
		unsub:   make(chan uint64),
		done:    make(chan struct{}),
		members: make(map[uint64]*subscriber[T]),
	}
	go f.run()
	return f
}

// Notify marks the result set stale. It never blocks; notifications that
// arrive while a reload is already pending are merged into it.
func (f *Feed[T]) Notify() {
	select {
	case f.dirty <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel that first yields the current result set and
// then a fresh one after every change. The channel is closed when ctx ends or
// the feed is closed.
func (f *Feed[T]) Subscribe(ctx context.Context) (<-chan Snapshot[T], error) {
	f.mu.Lock()
	f.nextID++
	sub := &subscriber[T]{id: f.nextID, ch: make(chan Snapshot[T], 1)}
	f.mu.Unlock()

	req := subscribeReq[T]{sub: sub, reply: make(chan error, 1)}
	select {
	case f.subs <- req:
	case <-f.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := <-req.reply; err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			select {
			case f.unsub <- sub.id:
			case <-f.done:
			}
		case <-f.done:
		}
	}()
	return sub.ch, nil
}

// Current returns the latest result set, loading it if nothing was loaded yet.
func (f *Feed[T]) Current(ctx context.Context) (Snapshot[T], error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := f.Subscribe(cctx)
	if err != nil {
		return Snapshot[T]{}, err
	}
	snap, ok := <-ch
	if !ok {
		return Snapshot[T]{}, ErrClosed
	}
	return snap, nil
}

// Close stops the feed and closes every subscriber channel.
func (f *Feed[T]) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *Feed[T]) run() {
	for {
		select {
		case <-f.done:
			for id, s := range f.members {
				close(s.ch)
				delete(f.members, id)
			}
			return

		case req := <-f.subs:
			if !f.loaded {
				if err := f.reload(); err != nil {
					req.reply <- err
					continue
				}
			}
			f.members[req.sub.id] = req.sub
			offer(req.sub, f.last)
			req.reply <- nil

		case id := <-f.unsub:
			if s, ok := f.members[id]; ok {
				close(s.ch)
				delete(f.members, id)
			}

		case <-f.dirty:
			if err := f.reload(); err != nil {
				f.log.Error().Err(err).Msg("live query reload failed")
				continue
			}
			for _, s := range f.members {
				offer(s, f.last)
			}
		}
	}
}

func (f *Feed[T]) reload() error {
	items, err := f.load(context.Background())
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	f.last = Snapshot[T]{Version: f.last.Version + 1, Items: items}
	f.loaded = true
	return nil
}

// offer delivers snap, replacing an undelivered older snapshot if present.
// Only run() sends on subscriber channels, so the second send cannot block.
func offer[T any](s *subscriber[T], snap Snapshot[T]) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
