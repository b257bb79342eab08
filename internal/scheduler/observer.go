package scheduler

import (
	"context"
	"sync"
)

// TaskState reports whether a scheduler has outstanding work.
type TaskState struct {
	Stable bool
}

// Observer follows a scheduler's pending-task count.
//
// The state is sampled when the observer is created, so a wait that starts
// while the scheduler is already idle returns at once.
type Observer struct {
	mu      sync.Mutex
	state   TaskState
	waiters []chan struct{}
	closed  bool
	cancel  func()
}

// NewObserver subscribes to s. Close releases the subscription.
func NewObserver(s Scheduler) *Observer {
	o := &Observer{}
	o.cancel = s.Watch(o.update)
	return o
}

func (o *Observer) update(pending int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = TaskState{Stable: pending == 0}
	if o.state.Stable {
		o.release()
	}
}

func (o *Observer) release() {
	for _, ch := range o.waiters {
		close(ch)
	}
	o.waiters = nil
}

// State returns the latest task state.
func (o *Observer) State() TaskState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// WaitUntilStable blocks until the scheduler has no pending work, the
// observer is closed, or ctx is done. There is no built-in timeout: work that
// keeps rescheduling itself blocks until ctx ends.
func (o *Observer) WaitUntilStable(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Stable || o.closed {
		o.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	o.waiters = append(o.waiters, ch)
	o.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops observing and releases any waiters.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.release()
	o.mu.Unlock()

	o.cancel()
}

// Closed reports whether Close has been called.
func (o *Observer) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
