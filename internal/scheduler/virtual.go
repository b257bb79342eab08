package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/conneroisu/harness/internal/errors"
)

// DefaultFlushLimit is the number of callbacks Flush runs before giving up.
const DefaultFlushLimit = 20

// Virtual is a deterministic scheduler whose clock only moves when Advance or
// Flush is called. Callbacks run on the goroutine that moves the clock.
type Virtual struct {
	tracker

	mu    sync.Mutex
	now   time.Time
	seq   int
	queue timerQueue
	limit int
}

// VirtualOption configures a Virtual scheduler.
type VirtualOption func(*Virtual)

// WithFlushLimit caps the callbacks a single Flush may run.
func WithFlushLimit(n int) VirtualOption {
	return func(v *Virtual) {
		if n > 0 {
			v.limit = n
		}
	}
}

// WithStart sets the initial virtual time.
func WithStart(t time.Time) VirtualOption {
	return func(v *Virtual) { v.now = t }
}

// NewVirtual returns a virtual-time scheduler starting at a fixed epoch.
func NewVirtual(opts ...VirtualOption) *Virtual {
	v := &Virtual{
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		limit: DefaultFlushLimit,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	v.mu.Lock()
	t := &virtualTimer{owner: v, due: v.now.Add(d), seq: v.seq, fn: fn}
	v.seq++
	heap.Push(&v.queue, t)
	v.mu.Unlock()

	v.add(1)
	return t
}

// Advance moves the clock forward by d, running every callback that falls due
// in timestamp order.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	for {
		t := v.popDue(target)
		if t == nil {
			break
		}
		t.run()
	}

	v.mu.Lock()
	if v.now.Before(target) {
		v.now = target
	}
	v.mu.Unlock()
}

// Flush runs pending callbacks, jumping the clock to each one in turn, until
// none remain. Callbacks scheduled while flushing are run too. It fails with
// ErrFlushLimit when work is still pending after the limit is reached, which
// usually means something reschedules itself forever.
func (v *Virtual) Flush() error {
	for turns := 0; ; turns++ {
		v.mu.Lock()
		if v.queue.Len() == 0 {
			v.mu.Unlock()
			return nil
		}
		if turns >= v.limit {
			v.mu.Unlock()
			return errors.NewFlushLimitError(v.limit)
		}
		t := heap.Pop(&v.queue).(*virtualTimer)
		if t.due.After(v.now) {
			v.now = t.due
		}
		v.mu.Unlock()

		t.run()
	}
}

func (v *Virtual) popDue(target time.Time) *virtualTimer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.queue.Len() == 0 || v.queue[0].due.After(target) {
		return nil
	}
	t := heap.Pop(&v.queue).(*virtualTimer)
	if t.due.After(v.now) {
		v.now = t.due
	}
	return t
}

type virtualTimer struct {
	owner *Virtual
	due   time.Time
	seq   int
	index int
	fn    func()
	fired bool
}

func (t *virtualTimer) run() {
	t.owner.mu.Lock()
	t.fired = true
	t.owner.mu.Unlock()

	defer t.owner.add(-1)
	t.fn()
}

func (t *virtualTimer) Stop() bool {
	v := t.owner
	v.mu.Lock()
	if t.fired || t.index < 0 {
		v.mu.Unlock()
		return false
	}
	heap.Remove(&v.queue, t.index)
	v.mu.Unlock()

	v.add(-1)
	return true
}

// timerQueue orders timers by due time, then by scheduling order.
type timerQueue []*virtualTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
