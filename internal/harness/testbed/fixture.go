package testbed

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/dom"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/scheduler"
	"github.com/conneroisu/harness/internal/ui"
)

// Scope is the handle an environment drives: something that can render,
// report when its own work has settled, and be torn down.
type Scope interface {
	// Name identifies the scope in errors and logs.
	Name() string
	// DetectChanges runs one render pass.
	DetectChanges(ctx context.Context) error
	// WhenStable waits until the work scheduled inside the scope has run.
	WhenStable(ctx context.Context) error
	IsDestroyed() bool
	// OnDestroy registers fn to run once when the scope is torn down.
	OnDestroy(fn func())

	// Scheduler is the clock tasks of the scope are scheduled on. A nil
	// scheduler makes the scope impossible to stabilize.
	Scheduler() scheduler.Scheduler
	Document() *dom.Document
	// NativeElement is the root element the component rendered.
	NativeElement() *html.Node
	// Dispatch sends ev through the document, delivering it to component
	// handlers.
	Dispatch(ctx context.Context, ev *dom.Event) error
}

// Fixture hosts one component instance in a document.
//
// Component state is only touched under the fixture's lock: render passes,
// event handlers and scheduled task callbacks never run concurrently.
type Fixture struct {
	id        string
	root      ui.Component
	doc       *dom.Document
	container *html.Node
	sched     scheduler.Scheduler
	logger    logging.Logger

	mu sync.Mutex

	destroyed atomic.Bool
	cbMu      sync.Mutex
	onDestroy []func()

	taskMu  sync.Mutex
	inside  int
	idle    []chan struct{}
	pending map[*fixtureTimer]struct{}
}

// FixtureOption configures a Fixture.
type FixtureOption func(*Fixture)

// WithDocument renders the fixture into doc instead of a fresh document.
// Several fixtures may share one document.
func WithDocument(doc *dom.Document) FixtureOption {
	return func(f *Fixture) { f.doc = doc }
}

// WithScheduler sets the clock the component's tasks run on. The default is
// a real-time scheduler.
func WithScheduler(s scheduler.Scheduler) FixtureOption {
	return func(f *Fixture) { f.sched = s }
}

// WithFixtureLogger sets the fixture's logger.
func WithFixtureLogger(l logging.Logger) FixtureOption {
	return func(f *Fixture) { f.logger = l }
}

// NewFixture mounts root in a container appended to the document body and
// runs the first render pass.
func NewFixture(ctx context.Context, root ui.Component, opts ...FixtureOption) (*Fixture, error) {
	f := &Fixture{
		id:      uuid.NewString(),
		root:    root,
		sched:   scheduler.NewRealtime(),
		logger:  logging.NewNop(),
		pending: make(map[*fixtureTimer]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.doc == nil {
		f.doc = dom.NewDocument()
	}
	f.logger = f.logger.WithComponent("testbed").With("fixture", f.id)
	f.container = f.doc.CreateElement(f.doc.Body(), "div",
		html.Attribute{Key: "id", Val: "fixture-" + f.id},
		html.Attribute{Key: "data-harness-fixture", Val: root.Key()},
	)

	if err := f.DetectChanges(ctx); err != nil {
		f.doc.Remove(f.container)
		return nil, err
	}
	return f, nil
}

// ID is the fixture's unique identifier.
func (f *Fixture) ID() string { return f.id }

// Name implements Scope.
func (f *Fixture) Name() string { return "fixture " + f.root.Key() }

// Component returns the component under test.
func (f *Fixture) Component() ui.Component { return f.root }

// Document implements Scope.
func (f *Fixture) Document() *dom.Document { return f.doc }

// Scheduler implements Scope.
func (f *Fixture) Scheduler() scheduler.Scheduler { return f.sched }

// Container returns the element the component is rendered into.
func (f *Fixture) Container() *html.Node { return f.container }

// NativeElement implements Scope.
func (f *Fixture) NativeElement() *html.Node {
	if el := f.doc.FirstElementChild(f.container); el != nil {
		return el
	}
	return f.container
}

// DetectChanges implements Scope. It renders the component and reconciles
// the output into the container.
func (f *Fixture) DetectChanges(ctx context.Context) error {
	if f.IsDestroyed() {
		return errors.NewDisposedScopeError(f.Name())
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var buf bytes.Buffer
	if err := f.root.Render(ui.WithTasks(ctx, f), &buf); err != nil {
		return errors.NewInternalError("render "+f.root.Key(), err)
	}
	if err := f.doc.Patch(f.container, buf.String()); err != nil {
		return errors.NewInternalError("patch "+f.root.Key(), err)
	}
	f.logger.Debug(ctx, "render pass", "bytes", buf.Len())
	return nil
}

// WhenStable implements Scope. Tasks scheduled with ScheduleOutside are not
// waited for.
func (f *Fixture) WhenStable(ctx context.Context) error {
	f.taskMu.Lock()
	if f.inside == 0 {
		f.taskMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	f.idle = append(f.idle, ch)
	f.taskMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch implements Scope.
func (f *Fixture) Dispatch(ctx context.Context, ev *dom.Event) error {
	if f.IsDestroyed() {
		return errors.NewDisposedScopeError(f.Name())
	}
	return f.doc.Dispatch(ev, func(node *html.Node, ev *dom.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		return ui.Route(ui.WithTasks(ctx, f), f.doc, f.root, node, ev)
	})
}

// IsDestroyed implements Scope.
func (f *Fixture) IsDestroyed() bool { return f.destroyed.Load() }

// OnDestroy implements Scope. fn runs immediately if the fixture is already
// destroyed.
func (f *Fixture) OnDestroy(fn func()) {
	f.cbMu.Lock()
	if !f.IsDestroyed() {
		f.onDestroy = append(f.onDestroy, fn)
		f.cbMu.Unlock()
		return
	}
	f.cbMu.Unlock()
	fn()
}

// Destroy tears the fixture down: outstanding tasks are cancelled, the
// container leaves the document and OnDestroy callbacks run. Later calls do
// nothing.
func (f *Fixture) Destroy() {
	f.cbMu.Lock()
	if !f.destroyed.CompareAndSwap(false, true) {
		f.cbMu.Unlock()
		return
	}
	callbacks := f.onDestroy
	f.onDestroy = nil
	f.cbMu.Unlock()

	f.taskMu.Lock()
	timers := make([]*fixtureTimer, 0, len(f.pending))
	for t := range f.pending {
		timers = append(timers, t)
	}
	f.taskMu.Unlock()
	for _, t := range timers {
		t.Stop()
	}

	f.doc.Remove(f.container)
	for _, fn := range callbacks {
		fn()
	}
	f.logger.Debug(context.Background(), "fixture destroyed", "cancelled_tasks", len(timers))
}

// Schedule implements ui.Tasks. The fixture is not stable until fn has run
// or the timer was stopped.
func (f *Fixture) Schedule(d time.Duration, fn func()) scheduler.Timer {
	return f.schedule(d, fn, true)
}

// ScheduleOutside implements ui.Tasks. Only the scheduler's observer sees
// the task; WhenStable does not wait for it.
func (f *Fixture) ScheduleOutside(d time.Duration, fn func()) scheduler.Timer {
	return f.schedule(d, fn, false)
}

// Now implements ui.Tasks.
func (f *Fixture) Now() time.Time {
	if f.sched == nil {
		return time.Now()
	}
	return f.sched.Now()
}

func (f *Fixture) schedule(d time.Duration, fn func(), inside bool) scheduler.Timer {
	if f.sched == nil {
		panic("testbed: task scheduled on a fixture without a scheduler")
	}
	t := &fixtureTimer{f: f, fn: fn, inside: inside}

	f.taskMu.Lock()
	defer f.taskMu.Unlock()
	f.pending[t] = struct{}{}
	if inside {
		f.inside++
	}
	t.timer = f.sched.AfterFunc(d, t.fire)
	return t
}

func (f *Fixture) finish(t *fixtureTimer) {
	f.taskMu.Lock()
	defer f.taskMu.Unlock()
	delete(f.pending, t)
	if !t.inside {
		return
	}
	f.inside--
	if f.inside == 0 {
		for _, ch := range f.idle {
			close(ch)
		}
		f.idle = nil
	}
}

type fixtureTimer struct {
	f      *Fixture
	fn     func()
	inside bool
	timer  scheduler.Timer
	done   atomic.Bool
}

func (t *fixtureTimer) fire() {
	if !t.done.CompareAndSwap(false, true) {
		return
	}
	t.f.mu.Lock()
	t.fn()
	t.f.mu.Unlock()
	t.f.finish(t)
}

// Stop implements scheduler.Timer.
func (t *fixtureTimer) Stop() bool {
	if !t.done.CompareAndSwap(false, true) {
		return false
	}
	t.timer.Stop()
	t.f.finish(t)
	return true
}
