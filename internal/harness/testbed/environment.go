// Package testbed runs harnesses in-process against components rendered into
// a dom.Document.
//
// Every scope that a loader is created for joins a registry kept per
// stabilization bus and is registered with harness.Register, so the bus
// stabilizes all live scopes at once at the edges of a batched region. The
// registry drops a scope when it is destroyed.
package testbed

import (
	"context"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/scheduler"
	"github.com/conneroisu/harness/internal/stabilize"
)

// QueryFunc finds the descendants of root matching selector in document
// order.
type QueryFunc func(selector string, root *html.Node) ([]*html.Node, error)

// Option configures a testbed environment.
type Option func(*options)

type options struct {
	bus    *stabilize.Bus
	logger logging.Logger
	query  QueryFunc
}

// WithBus sets the stabilization bus. The process-wide bus is the default.
func WithBus(b *stabilize.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithLogger sets the logger for the environment and its registry.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQueryFunc replaces the selector engine used to discover elements.
func WithQueryFunc(q QueryFunc) Option {
	return func(o *options) { o.query = q }
}

func resolve(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	bus, logger := harness.ResolveOptions(harness.WithBus(o.bus), harness.WithLogger(o.logger))
	o.bus, o.logger = bus, logger
	return o
}

// tracked is the per-scope stabilization state shared by every environment
// created for the scope.
type tracked struct {
	scope    Scope
	mode     scheduler.Mode
	observer *scheduler.Observer
}

func (t *tracked) Name() string   { return t.scope.Name() }
func (t *tracked) Disposed() bool { return t.scope.IsDestroyed() }

// Stabilize runs one render pass and waits using the strategy of the scope's
// scheduling mode.
func (t *tracked) Stabilize(ctx context.Context) error {
	if err := t.scope.DetectChanges(ctx); err != nil {
		return err
	}
	var err error
	switch t.mode {
	case scheduler.VirtualTime:
		err = t.scope.Scheduler().(scheduler.Flusher).Flush()
	case scheduler.TaskTracking:
		err = t.scope.Scheduler().(scheduler.IdleWaiter).WhenIdle(ctx)
	default:
		err = t.scope.WhenStable(ctx)
	}
	if err != nil {
		return err
	}
	return t.scope.DetectChanges(ctx)
}

func (t *tracked) waitOutside(ctx context.Context) error {
	if t.mode == scheduler.VirtualTime {
		return t.scope.Scheduler().(scheduler.Flusher).Flush()
	}
	return t.observer.WaitUntilStable(ctx)
}

type registry struct {
	bus    *stabilize.Bus
	logger logging.Logger

	mu     sync.Mutex
	scopes map[Scope]*tracked
}

var registries sync.Map // *stabilize.Bus -> *registry

func registryFor(bus *stabilize.Bus, logger logging.Logger) *registry {
	r, _ := registries.LoadOrStore(bus, &registry{
		bus:    bus,
		logger: logger.WithComponent("testbed"),
		scopes: make(map[Scope]*tracked),
	})
	return r.(*registry)
}

// join returns the tracked state for scope, registering it on first use.
func (r *registry) join(scope Scope) (*tracked, error) {
	r.mu.Lock()
	if t, ok := r.scopes[scope]; ok {
		r.mu.Unlock()
		return t, nil
	}
	if scope.IsDestroyed() {
		r.mu.Unlock()
		return nil, errors.NewDisposedScopeError(scope.Name())
	}
	mode, err := scheduler.Detect(scope.Scheduler())
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	t := &tracked{scope: scope, mode: mode, observer: scheduler.NewObserver(scope.Scheduler())}
	harness.Register(r.bus, t)
	r.scopes[scope] = t
	active := len(r.scopes)
	r.mu.Unlock()

	r.logger.Debug(context.Background(), "scope registered",
		"scope", scope.Name(), "mode", mode.String(), "active", active)
	scope.OnDestroy(func() { r.leave(scope) })
	return t, nil
}

func (r *registry) leave(scope Scope) {
	r.mu.Lock()
	t, ok := r.scopes[scope]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.scopes, scope)
	uninstalled := harness.Unregister(r.bus, t)
	r.mu.Unlock()

	t.observer.Close()
	r.logger.Debug(context.Background(), "scope released", "scope", scope.Name(), "uninstalled", uninstalled)
}

// active reports how many scopes are registered.
func (r *registry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// driver adapts a Scope to harness.Driver.
type driver struct {
	*tracked
	query QueryFunc
}

func (d *driver) WaitForTasksOutsideScope(ctx context.Context) error { return d.waitOutside(ctx) }

func (d *driver) QueryAll(_ context.Context, root *html.Node, selector string) ([]*html.Node, error) {
	return d.query(selector, root)
}

func (d *driver) DocumentRoot() *html.Node { return d.scope.Document().Body() }

func (d *driver) NewTestElement(raw *html.Node, stab func(ctx context.Context) error) harness.TestElement {
	return &UnitTestElement{scope: d.scope, doc: d.scope.Document(), node: raw, stabilize: stab}
}

func newEnvironment(scope Scope, root func(Scope) *html.Node, opts []Option) (*harness.Environment[*html.Node], error) {
	o := resolve(opts)
	t, err := registryFor(o.bus, o.logger).join(scope)
	if err != nil {
		return nil, err
	}
	query := o.query
	if query == nil {
		doc := scope.Document()
		query = func(selector string, root *html.Node) ([]*html.Node, error) {
			return doc.QueryAll(root, selector)
		}
	}
	d := &driver{tracked: t, query: query}
	return harness.NewEnvironment(root(scope), harness.Driver[*html.Node](d),
		harness.WithBus(o.bus), harness.WithLogger(o.logger)), nil
}

// Loader returns a loader rooted at the scope's native element. It fails
// with ErrSchedulerUnavailable when the scope has no scheduler to stabilize
// with.
func Loader(scope Scope, opts ...Option) (harness.HarnessLoader, error) {
	env, err := newEnvironment(scope, Scope.NativeElement, opts)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// DocumentRootLoader returns a loader rooted at the document body, for
// content such as overlays that is rendered outside the component.
func DocumentRootLoader(scope Scope, opts ...Option) (harness.HarnessLoader, error) {
	env, err := newEnvironment(scope, func(s Scope) *html.Node { return s.Document().Body() }, opts)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// HarnessForFixture stabilizes the scope and returns a harness of type t
// whose host is the scope's native element itself.
func HarnessForFixture[T any](ctx context.Context, scope Scope, t harness.Type[T], opts ...Option) (T, error) {
	var zero T
	env, err := newEnvironment(scope, Scope.NativeElement, opts)
	if err != nil {
		return zero, err
	}
	if err := env.ForceStabilize(ctx); err != nil {
		return zero, err
	}
	return t.New(env), nil
}

// NativeElement returns the node behind a TestElement created by this
// package.
func NativeElement(el harness.TestElement) (*html.Node, error) {
	u, ok := el.(*UnitTestElement)
	if !ok {
		return nil, errors.NewForeignElementError("testbed environment")
	}
	return u.node, nil
}

// ActiveScopes reports how many scopes are registered on bus.
func ActiveScopes(bus *stabilize.Bus) int {
	r, ok := registries.Load(bus)
	if !ok {
		return 0
	}
	return r.(*registry).active()
}
