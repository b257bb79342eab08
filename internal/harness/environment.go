// Package harness is the environment-agnostic core of the component test
// harnesses: the Environment that stabilizes a scope and discovers its
// elements, the TestElement facade, the ComponentHarness base that harness
// authors embed, and the loaders and predicates that resolve harnesses.
//
// Environments are generic over the raw element type of a Driver, so the
// same harness runs against the in-process testbed and a real browser.
package harness

import (
	"context"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/stabilize"
)

// Driver adapts one execution context (in-process fixture, browser page) to
// an Environment. A driver is shared by an environment and every child
// environment it creates.
type Driver[E any] interface {
	// Name identifies the scope in errors and logs.
	Name() string
	// Disposed reports whether the underlying scope has been torn down.
	Disposed() bool
	// Stabilize runs one render pass and waits for quiescence using the
	// strategy of the scope's scheduling mode.
	Stabilize(ctx context.Context) error
	// WaitForTasksOutsideScope waits for work the scope does not track.
	WaitForTasksOutsideScope(ctx context.Context) error
	// QueryAll returns the descendants of root matching selector in
	// document order.
	QueryAll(ctx context.Context, root E, selector string) ([]E, error)
	// DocumentRoot is the element that content escaping the scope (such as
	// overlays) is attached to.
	DocumentRoot() E
	// NewTestElement wraps raw. stabilize must be called by every action and
	// query of the returned element.
	NewTestElement(raw E, stabilize func(ctx context.Context) error) TestElement
}

// Environment coordinates stabilization and element discovery for one root
// element of a scope. It implements both HarnessLoader and LocatorFactory.
type Environment[E any] struct {
	root   E
	driver Driver[E]
	bus    *stabilize.Bus
	logger logging.Logger
}

// Option configures an Environment.
type Option func(*options)

type options struct {
	bus    *stabilize.Bus
	logger logging.Logger
}

// WithBus sets the stabilization bus. The process-wide bus is the default.
func WithBus(b *stabilize.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ResolveOptions applies opts over the defaults and returns the bus and
// logger they select. Drivers use it to share the environment's settings.
func ResolveOptions(opts ...Option) (*stabilize.Bus, logging.Logger) {
	o := options{bus: stabilize.Default(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = stabilize.Default()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o.bus, o.logger
}

// NewEnvironment returns an environment rooted at root.
func NewEnvironment[E any](root E, driver Driver[E], opts ...Option) *Environment[E] {
	bus, logger := ResolveOptions(opts...)
	return &Environment[E]{
		root:   root,
		driver: driver,
		bus:    bus,
		logger: logger.WithComponent("harness"),
	}
}

// RawRootElement returns the element the environment is rooted at.
func (e *Environment[E]) RawRootElement() E { return e.root }

// Driver returns the environment's driver.
func (e *Environment[E]) Driver() Driver[E] { return e.driver }

// Bus returns the stabilization bus the environment reports to.
func (e *Environment[E]) Bus() *stabilize.Bus { return e.bus }

func (e *Environment[E]) checkDisposed() error {
	if e.driver.Disposed() {
		return errors.NewDisposedScopeError(e.driver.Name())
	}
	return nil
}

// ForceStabilize renders the scope and waits for it to settle. It fails with
// ErrDisposedScope once the scope is torn down, and does nothing while the
// bus is paused.
func (e *Environment[E]) ForceStabilize(ctx context.Context) error {
	if err := e.checkDisposed(); err != nil {
		return err
	}
	if e.bus.Paused() {
		return nil
	}
	if err := e.driver.Stabilize(ctx); err != nil {
		return err
	}
	e.logger.Debug(ctx, "stabilized", "scope", e.driver.Name())
	return nil
}

// WaitForTasksOutsideScope waits for work scheduled outside the scope's own
// change tracking to finish.
func (e *Environment[E]) WaitForTasksOutsideScope(ctx context.Context) error {
	if err := e.checkDisposed(); err != nil {
		return err
	}
	return e.driver.WaitForTasksOutsideScope(ctx)
}

// GetAllRawElements stabilizes and returns the elements under the root
// matching selector, in document order.
func (e *Environment[E]) GetAllRawElements(ctx context.Context, selector string) ([]E, error) {
	if err := e.ForceStabilize(ctx); err != nil {
		return nil, err
	}
	return e.driver.QueryAll(ctx, e.root, selector)
}

// CreateEnvironment returns a child environment rooted at raw that shares
// this environment's driver, bus and logger.
func (e *Environment[E]) CreateEnvironment(raw E) *Environment[E] {
	return &Environment[E]{root: raw, driver: e.driver, bus: e.bus, logger: e.logger}
}

// CreateTestElement wraps raw in a TestElement bound to this environment.
func (e *Environment[E]) CreateTestElement(raw E) TestElement {
	return e.driver.NewTestElement(raw, e.ForceStabilize)
}

// RootElement returns the TestElement for the environment's root.
func (e *Environment[E]) RootElement() TestElement {
	return e.CreateTestElement(e.root)
}

// DocumentRootLocatorFactory returns a factory rooted at the document root.
func (e *Environment[E]) DocumentRootLocatorFactory() LocatorFactory {
	return e.CreateEnvironment(e.driver.DocumentRoot())
}

// RootHarnessLoader returns a loader rooted at this environment's root.
func (e *Environment[E]) RootHarnessLoader() HarnessLoader { return e }

// Parallel runs fns inside one batched region of the environment's bus.
func (e *Environment[E]) Parallel(ctx context.Context, fns ...func(ctx context.Context) error) error {
	return stabilize.ParallelDo(ctx, e.bus, fns...)
}

// Manual runs fn with automatic stabilization disabled.
func (e *Environment[E]) Manual(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.bus.Manual(ctx, fn)
}

func (e *Environment[E]) candidates(ctx context.Context, selector string) ([]candidate, error) {
	raws, err := e.GetAllRawElements(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, len(raws))
	for i, raw := range raws {
		child := e.CreateEnvironment(raw)
		out[i] = candidate{factory: child, element: child.RootElement()}
	}
	return out, nil
}

func (e *Environment[E]) elements(ctx context.Context, selector string) ([]TestElement, error) {
	raws, err := e.GetAllRawElements(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]TestElement, len(raws))
	for i, raw := range raws {
		out[i] = e.CreateTestElement(raw)
	}
	return out, nil
}

func (e *Environment[E]) loaders(ctx context.Context, selector string) ([]HarnessLoader, error) {
	raws, err := e.GetAllRawElements(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]HarnessLoader, len(raws))
	for i, raw := range raws {
		out[i] = e.CreateEnvironment(raw)
	}
	return out, nil
}
