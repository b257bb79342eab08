// Package stabilize is the process-wide signal bus that decides when
// automatic stabilization runs.
//
// Exactly one Handler owns the stabilization policy at a time. Callers that
// want to run several harness operations without a stabilization round trip
// per operation wrap them in WithSuspended (or Parallel), which pauses
// automatic stabilization for the duration of the region and, optionally,
// stabilizes once on entry and once on exit.
package stabilize

import (
	"context"
	"sync"

	"github.com/conneroisu/harness/internal/logging"
)

// Status is the state broadcast to the installed handler.
type Status struct {
	// Paused reports whether automatic stabilization is suspended.
	Paused bool
	// StabilizeNow asks the handler to stabilize every scope it manages
	// before returning.
	StabilizeNow bool
}

// Handler reacts to a status change. When status.StabilizeNow is set the
// handler must not return until stabilization has completed.
type Handler func(ctx context.Context, status Status) error

// Immediate is the handler installed when a region is entered with no handler
// present. With no scope to stabilize it returns at once.
func Immediate(context.Context, Status) error { return nil }

// Bus carries the paused flag and the currently installed handler.
type Bus struct {
	mu      sync.Mutex
	paused  bool
	handler Handler
	logger  logging.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler and edge events.
func WithLogger(logger logging.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger.WithComponent("stabilize")
		}
	}
}

// New returns an unpaused bus with no handler installed.
func New(opts ...Option) *Bus {
	b := &Bus{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBus = New()

// Default returns the bus shared by every environment in the process.
func Default() *Bus { return defaultBus }

// Install makes h the handler, replacing any previous one.
func (b *Bus) Install(h Handler) {
	b.mu.Lock()
	replaced := b.handler != nil
	b.handler = h
	b.mu.Unlock()

	b.logger.Debug(context.Background(), "handler installed", "replaced", replaced)
}

// Uninstall removes the current handler. It is a no-op when none is installed.
func (b *Bus) Uninstall() {
	b.mu.Lock()
	b.handler = nil
	b.mu.Unlock()
}

// Installed reports whether a handler is currently installed.
func (b *Bus) Installed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler != nil
}

// Paused reports whether automatic stabilization is suspended.
func (b *Bus) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// WithSuspended runs fn with automatic stabilization paused.
//
// If the bus is already paused fn runs directly and no signal is emitted, so
// nested and concurrent regions collapse into the outermost one. When
// triggerEdges is set the handler is asked to stabilize once before pausing
// and once after resuming.
func (b *Bus) WithSuspended(ctx context.Context, fn func(ctx context.Context) error, triggerEdges bool) error {
	b.mu.Lock()
	if b.paused {
		b.mu.Unlock()
		return fn(ctx)
	}
	if b.handler == nil {
		b.handler = Immediate
	}
	b.paused = true
	h := b.handler
	b.mu.Unlock()

	if err := h(ctx, Status{Paused: true, StabilizeNow: triggerEdges}); err != nil {
		b.resume()
		return err
	}
	if triggerEdges {
		b.logger.Debug(ctx, "stabilized before suspended region")
	}

	err := fn(ctx)

	h = b.resume()
	if h == nil {
		return err
	}
	if herr := h(ctx, Status{StabilizeNow: triggerEdges}); err == nil {
		err = herr
	}
	if triggerEdges {
		b.logger.Debug(ctx, "stabilized after suspended region")
	}
	return err
}

func (b *Bus) resume() Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
	return b.handler
}

// Manual runs fn with automatic stabilization paused and without stabilizing
// on entry or exit.
func (b *Bus) Manual(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithSuspended(ctx, fn, false)
}
