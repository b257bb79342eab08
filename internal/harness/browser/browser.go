// Package browser runs harnesses against fixture pages served by the
// harness server and driven through the Chrome DevTools protocol.
//
// The page mirrors a fixture that lives on the server. Stabilizing waits
// until the page has no events awaiting a server reply and the fixture has
// no scheduled tasks. A session is registered with the stabilization bus of
// every loader created for it until the session is closed.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/server"
	"github.com/conneroisu/harness/internal/stabilize"
)

var stableJS = fmt.Sprintf("() => window.%s === 0", server.PendingGlobal)

// Launch connects to the browser at cfg.ControlURL, or starts one.
func Launch(ctx context.Context, cfg config.BrowserConfig) (*rod.Browser, error) {
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.NewBrowserError("launch", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, errors.NewBrowserError("connect", err)
	}
	return b, nil
}

// Session is one fixture page open in a browser.
type Session struct {
	page     *rod.Page
	root     *rod.Element
	body     *rod.Element
	fixture  string
	disposed atomic.Bool
	logger   logging.Logger

	mu    sync.Mutex
	buses map[*stabilize.Bus]struct{}
}

// Open loads the fixture page at baseURL and waits for its first render.
func Open(ctx context.Context, b *rod.Browser, baseURL, fixture string, cfg config.BrowserConfig, logger logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimSuffix(baseURL, "/") + "/fixtures/" + fixture
	page, err := b.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, errors.NewBrowserError("open "+url, err)
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		err := proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}.Call(page)
		if err != nil {
			_ = page.Close()
			return nil, errors.NewBrowserError("set viewport", err)
		}
	}

	p := page.Context(ctx)
	if err := p.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, errors.NewBrowserError("load", err)
	}
	if err := p.Wait(rod.Eval(stableJS)); err != nil {
		_ = page.Close()
		return nil, errors.NewBrowserError("connect page", err)
	}
	root, err := p.Element("#" + server.RootID)
	if err != nil {
		_ = page.Close()
		return nil, errors.NewInternalError("fixture root missing", err)
	}
	body, err := p.Element("body")
	if err != nil {
		_ = page.Close()
		return nil, errors.NewInternalError("document body missing", err)
	}

	return &Session{
		page:    page,
		root:    root,
		body:    body,
		fixture: fixture,
		logger:  logger.WithComponent("browser").With("fixture", fixture),
	}, nil
}

// Page returns the underlying page.
func (s *Session) Page() *rod.Page { return s.page }

// Close closes the page. Harnesses created for the session fail with
// ErrDisposedScope afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.disposed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	buses := s.buses
	s.buses = nil
	s.mu.Unlock()

	for bus := range buses {
		uninstalled := harness.Unregister(bus, s)
		s.logger.Debug(context.Background(), "session released", "uninstalled", uninstalled)
	}
	s.logger.Debug(context.Background(), "closing page")
	return s.page.Close()
}

// Name identifies the session in errors and logs.
func (s *Session) Name() string { return "page " + s.fixture }

// Disposed reports whether the session has been closed.
func (s *Session) Disposed() bool { return s.disposed.Load() }

// Stabilize waits until the page has no events awaiting a reply and the
// fixture has no scheduled tasks.
func (s *Session) Stabilize(ctx context.Context) error {
	if err := s.page.Context(ctx).Wait(rod.Eval(stableJS)); err != nil {
		return errors.NewBrowserError("stabilize", err)
	}
	return nil
}

// register adds the session to the bus that opts select.
func (s *Session) register(opts []harness.Option) {
	bus, _ := harness.ResolveOptions(opts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed.Load() {
		return
	}
	if _, ok := s.buses[bus]; ok {
		return
	}
	if s.buses == nil {
		s.buses = make(map[*stabilize.Bus]struct{})
	}
	harness.Register(bus, s)
	s.buses[bus] = struct{}{}
	s.logger.Debug(context.Background(), "session registered", "active", harness.Registered(bus))
}

// Loader returns a loader rooted at the element the fixture is mirrored
// into.
func (s *Session) Loader(opts ...harness.Option) harness.HarnessLoader {
	s.register(opts)
	return harness.NewEnvironment(s.root, harness.Driver[*rod.Element](&driver{s: s}), opts...)
}

// DocumentRootLoader returns a loader rooted at the document body.
func (s *Session) DocumentRootLoader(opts ...harness.Option) harness.HarnessLoader {
	s.register(opts)
	return harness.NewEnvironment(s.body, harness.Driver[*rod.Element](&driver{s: s}), opts...)
}

// HarnessForFixture returns a harness of type t hosted on the fixture's
// top-level element.
func HarnessForFixture[T any](ctx context.Context, s *Session, t harness.Type[T], opts ...harness.Option) (T, error) {
	var zero T
	s.register(opts)
	d := &driver{s: s}
	if err := d.Stabilize(ctx); err != nil {
		return zero, err
	}
	host, err := s.root.Context(ctx).Element(":scope > *")
	if err != nil {
		return zero, errors.NewNoMatchError("fixture host element")
	}
	return t.New(harness.NewEnvironment(host, harness.Driver[*rod.Element](d), opts...)), nil
}

// NativeElement returns the element behind a TestElement created by this
// package.
func NativeElement(el harness.TestElement) (*rod.Element, error) {
	e, ok := el.(*Element)
	if !ok {
		return nil, errors.NewForeignElementError("browser environment")
	}
	return e.el, nil
}

type driver struct {
	s *Session
}

func (d *driver) Name() string                       { return d.s.Name() }
func (d *driver) Disposed() bool                     { return d.s.Disposed() }
func (d *driver) Stabilize(ctx context.Context) error { return d.s.Stabilize(ctx) }

// WaitForTasksOutsideScope is the same wait as Stabilize: the page only
// sees the fixture's total task count.
func (d *driver) WaitForTasksOutsideScope(ctx context.Context) error {
	return d.Stabilize(ctx)
}

func (d *driver) QueryAll(ctx context.Context, root *rod.Element, selector string) ([]*rod.Element, error) {
	els, err := root.Context(ctx).Elements(selector)
	if err != nil {
		return nil, errors.NewBrowserError("query "+selector, err)
	}
	return els, nil
}

func (d *driver) DocumentRoot() *rod.Element { return d.s.body }

func (d *driver) NewTestElement(raw *rod.Element, stabilize func(ctx context.Context) error) harness.TestElement {
	return &Element{el: raw, stabilize: stabilize}
}
