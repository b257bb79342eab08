// Package scheduler provides the clocks that components schedule deferred
// work on, and the Observer that reports when that work has drained.
//
// Three scheduling modes exist. A Plain scheduler runs timers in real time. A
// VirtualTime scheduler never advances on its own; pending work only runs
// when it is flushed. A TaskTracking scheduler runs in real time and can
// additionally block until every outstanding task has finished. Detect probes
// a scheduler for the optional Flusher and IdleWaiter capabilities to decide
// which mode it is in.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/harness/internal/errors"
)

// Mode is the stabilization strategy a scheduler requires.
type Mode int

const (
	Plain Mode = iota
	VirtualTime
	TaskTracking
)

func (m Mode) String() string {
	switch m {
	case Plain:
		return "plain"
	case VirtualTime:
		return "virtual"
	case TaskTracking:
		return "async"
	default:
		return "unknown"
	}
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// ran or was already stopped.
	Stop() bool
}

// Scheduler schedules deferred work and counts what is outstanding.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	// Pending is the number of scheduled callbacks that have neither run
	// nor been stopped.
	Pending() int
	// Watch calls fn with the current pending count, and again every time
	// it changes, until the returned cancel func is called.
	Watch(fn func(pending int)) (cancel func())
}

// Flusher is implemented by schedulers whose time only advances on demand.
type Flusher interface {
	Flush() error
}

// IdleWaiter is implemented by schedulers that can wait for all of their
// outstanding tasks to finish.
type IdleWaiter interface {
	WhenIdle(ctx context.Context) error
}

// Detect resolves the mode of s. A nil scheduler cannot be stabilized.
func Detect(s Scheduler) (Mode, error) {
	if s == nil {
		return Plain, errors.NewSchedulerUnavailableError("no scheduler attached to the scope")
	}
	if _, ok := s.(Flusher); ok {
		return VirtualTime, nil
	}
	if _, ok := s.(IdleWaiter); ok {
		return TaskTracking, nil
	}
	return Plain, nil
}

// ParseMode maps the names used in configuration to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "plain":
		return Plain, nil
	case "virtual":
		return VirtualTime, nil
	case "async":
		return TaskTracking, nil
	default:
		return Plain, errors.NewSchedulerUnavailableError("unknown scheduling mode " + name)
	}
}

// New builds a scheduler for mode. flushLimit only applies to VirtualTime.
func New(mode Mode, flushLimit int) Scheduler {
	switch mode {
	case VirtualTime:
		return NewVirtual(WithFlushLimit(flushLimit))
	case TaskTracking:
		return NewAsync()
	default:
		return NewRealtime()
	}
}

// tracker counts outstanding tasks and notifies watchers of every change.
// Watchers run with the tracker locked and must not call back into it.
type tracker struct {
	mu       sync.Mutex
	pending  int
	nextID   int
	watchers map[int]func(int)
	idle     []chan struct{}
}

func (t *tracker) add(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending += delta
	for _, w := range t.watchers {
		w(t.pending)
	}
	if t.pending == 0 {
		for _, ch := range t.idle {
			close(ch)
		}
		t.idle = nil
	}
}

// Pending implements Scheduler.
func (t *tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Watch implements Scheduler.
func (t *tracker) Watch(fn func(pending int)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.watchers == nil {
		t.watchers = make(map[int]func(int))
	}
	id := t.nextID
	t.nextID++
	t.watchers[id] = fn
	fn(t.pending)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.watchers, id)
	}
}

func (t *tracker) whenIdle(ctx context.Context) error {
	t.mu.Lock()
	if t.pending == 0 {
		t.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	t.idle = append(t.idle, ch)
	t.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
