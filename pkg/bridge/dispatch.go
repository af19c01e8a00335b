package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/miniapp/pkg/errors"
)

// Dispatcher runs bridge work on the designated task. Inbound frames,
// callbacks and expiries run inside functions passed to Dispatch. Facade
// calls are expected on the same task and apply their local writes in
// place.
type Dispatcher interface {
	// Dispatch schedules fn. It returns false when fn is nil or the
	// dispatcher no longer accepts work.
	Dispatch(fn func()) bool
}

// Inline runs every task immediately on the calling goroutine. It suits
// tests and hosts whose transport already delivers on a single goroutine.
// Timers and context cancellation dispatch from their own goroutines, so
// with WithCallTimeout or CallContext those callbacks run off the
// transport goroutine.
type Inline struct{}

// Dispatch runs fn before returning.
func (Inline) Dispatch(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	ok = true
	defer errors.Recover("bridge.Inline")
	fn()
	return ok
}

// Loop is a Dispatcher backed by a single goroutine draining a FIFO queue.
// Call Run to start it.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// NewLoop creates a stopped-until-Run loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch enqueues fn. It is safe to call from any goroutine, including
// the loop itself.
func (l *Loop) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains the queue until ctx is done or Stop is called. Tasks queued
// before Stop still run. Run may be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge: loop already running")
	}
	defer close(l.done)

	for {
		if l.drain() {
			continue
		}
		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return nil
		}

		select {
		case <-ctx.Done():
			l.Stop()
			l.drain()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// drain runs the tasks queued so far and reports whether there were any.
func (l *Loop) drain() bool {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.run(fn)
	}
	return len(batch) > 0
}

func (l *Loop) run(fn func()) {
	defer errors.Recover("bridge.Loop")
	fn()
}

// Stop stops accepting work. Run returns once the queue is empty.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Sync runs fn on the loop and waits for its result. It must not be
// called from a task running on the same loop.
func (l *Loop) Sync(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	ok := l.Dispatch(func() {
		defer errors.RecoverWithCallback("bridge.Loop.Sync", func(r any) {
			result <- fmt.Errorf("%w: %v", errors.ErrHandlerFault, r)
		})
		result <- fn()
	})
	if !ok {
		return errors.ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
