package scheduler

import (
	"context"
	"sync"
	"time"
)

// Realtime runs callbacks on the wall clock.
type Realtime struct {
	tracker
}

// NewRealtime returns a plain wall-clock scheduler.
func NewRealtime() *Realtime {
	return &Realtime{}
}

func (r *Realtime) Now() time.Time { return time.Now() }

func (r *Realtime) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realtimeTimer{owner: &r.tracker}
	r.add(1)
	t.timer = time.AfterFunc(d, func() {
		defer t.done()
		fn()
	})
	return t
}

type realtimeTimer struct {
	owner *tracker
	timer *time.Timer
	once  sync.Once
}

func (t *realtimeTimer) done() {
	t.once.Do(func() { t.owner.add(-1) })
}

func (t *realtimeTimer) Stop() bool {
	if !t.timer.Stop() {
		return false
	}
	t.done()
	return true
}

// Async is a wall-clock scheduler that can wait for all outstanding tasks.
type Async struct {
	Realtime
}

// NewAsync returns a task-tracking scheduler.
func NewAsync() *Async {
	return &Async{}
}

// WhenIdle blocks until no callbacks are pending.
func (a *Async) WhenIdle(ctx context.Context) error {
	return a.whenIdle(ctx)
}
