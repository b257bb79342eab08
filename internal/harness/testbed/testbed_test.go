package testbed_test

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
	"github.com/conneroisu/harness/internal/harness/testbed"
	"github.com/conneroisu/harness/internal/scheduler"
	"github.com/conneroisu/harness/internal/stabilize"
	"github.com/conneroisu/harness/internal/ui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct {
	key     string
	count   int
	label   string
	lastKey string
	renders atomic.Int32
}

func (c *counter) Key() string { return c.key }

func (c *counter) Render(_ context.Context, w io.Writer) error {
	c.renders.Add(1)
	_, err := fmt.Fprintf(w, `<div class="counter"%s>`+
		`<span class="count">%d</span>`+
		`<button class="inc"%s>+</button>`+
		`<button class="later"%s>later</button>`+
		`<button class="outside"%s>outside</button>`+
		`<button class="forever"%s>forever</button>`+
		`<input class="name" value="%s"%s%s>`+
		`<span class="label">%s</span><span class="key">%s</span>`+
		`</div>`,
		ui.Host(c), c.count,
		ui.On("click", "inc"), ui.On("click", "later"), ui.On("click", "outside"), ui.On("click", "forever"),
		templ.EscapeString(c.label), ui.On("input", "typed"), ui.On("keydown", "key"),
		templ.EscapeString(c.label), templ.EscapeString(c.lastKey))
	return err
}

func (c *counter) Handle(ctx context.Context, ev ui.Event) error {
	tasks := ui.TasksFrom(ctx)
	switch ev.Action {
	case "inc":
		c.count++
	case "later":
		tasks.Schedule(20*time.Millisecond, func() { c.count += 10 })
	case "outside":
		tasks.ScheduleOutside(20*time.Millisecond, func() { c.count += 100 })
	case "forever":
		var loop func()
		loop = func() { tasks.Schedule(time.Second, loop) }
		loop()
	case "typed":
		c.label = ev.Value
	case "key":
		c.lastKey = ev.Key
	}
	return nil
}

type counterHarness struct {
	harness.ComponentHarness
}

var counterType = harness.Type[*counterHarness]{
	Name:         "CounterHarness",
	HostSelector: ".counter",
	New: func(lf harness.LocatorFactory) *counterHarness {
		return &counterHarness{harness.NewComponentHarness(lf)}
	},
}

func (h *counterHarness) text(ctx context.Context, selector string) (string, error) {
	el, err := h.LocatorFor(selector)(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

func (h *counterHarness) Count(ctx context.Context) (string, error) { return h.text(ctx, ".count") }

func (h *counterHarness) Press(ctx context.Context, button string) error {
	el, err := h.LocatorFor("button." + button)(ctx)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func newFixture(t *testing.T, root ui.Component, opts ...testbed.FixtureOption) *testbed.Fixture {
	t.Helper()
	f, err := testbed.NewFixture(context.Background(), root, opts...)
	require.NoError(t, err)
	t.Cleanup(f.Destroy)
	return f
}

func firstCounter(t *testing.T, ctx context.Context, loader harness.HarnessLoader) *counterHarness {
	t.Helper()
	h, err := harness.GetHarness[*counterHarness](ctx, loader, counterType)
	require.NoError(t, err)
	return h
}

func TestLoaderResolvesHarnesses(t *testing.T) {
	ctx := context.Background()
	a, b := &counter{key: "a"}, &counter{key: "b"}
	f := newFixture(t, ui.NewPage("page", a, b))

	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)

	counters, err := harness.GetAllHarnesses[*counterHarness](ctx, loader, counterType)
	require.NoError(t, err)
	require.Len(t, counters, 2)

	require.NoError(t, counters[1].Press(ctx, "inc"))
	require.NoError(t, counters[1].Press(ctx, "inc"))

	first, err := counters[0].Count(ctx)
	require.NoError(t, err)
	second, err := counters[1].Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", first)
	assert.Equal(t, "2", second)
	assert.Equal(t, 2, b.count)
}

func TestChildEnvironmentScoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ui.NewPage("page", &counter{key: "a"}, &counter{key: "b"}))

	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	env := loader.(*harness.Environment[*html.Node])

	all, err := env.GetAllRawElements(ctx, ".count")
	require.NoError(t, err)
	require.Len(t, all, 2)

	hosts, err := env.GetAllRawElements(ctx, ".counter")
	require.NoError(t, err)
	child := env.CreateEnvironment(hosts[1])

	scoped, err := child.GetAllRawElements(ctx, ".count")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Same(t, all[1], scoped[0])
	assert.Same(t, hosts[1], scoped[0].Parent)
}

func TestStabilizeWaitsForScheduledWork(t *testing.T) {
	testCases := []struct {
		name  string
		sched scheduler.Scheduler
	}{
		{"plain", scheduler.NewRealtime()},
		{"virtual", scheduler.NewVirtual()},
		{"async", scheduler.NewAsync()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c := &counter{key: "c"}
			f := newFixture(t, ui.NewPage("page", c), testbed.WithScheduler(tc.sched))

			loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
			require.NoError(t, err)
			h := firstCounter(t, ctx, loader)

			require.NoError(t, h.Press(ctx, "later"))
			count, err := h.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, "10", count)
		})
	}
}

func TestWaitForTasksOutsideScope(t *testing.T) {
	for _, sched := range []scheduler.Scheduler{scheduler.NewRealtime(), scheduler.NewVirtual()} {
		mode, err := scheduler.Detect(sched)
		require.NoError(t, err)

		t.Run(mode.String(), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, ui.NewPage("page", &counter{key: "c"}), testbed.WithScheduler(sched))
			loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
			require.NoError(t, err)
			h := firstCounter(t, ctx, loader)

			require.NoError(t, h.Press(ctx, "outside"))
			require.NoError(t, h.WaitForTasksOutsideScope(ctx))

			count, err := h.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, "100", count)
		})
	}
}

func TestVirtualFlushLimit(t *testing.T) {
	ctx := context.Background()
	sched := scheduler.NewVirtual(scheduler.WithFlushLimit(5))
	f := newFixture(t, ui.NewPage("page", &counter{key: "c"}), testbed.WithScheduler(sched))
	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	h := firstCounter(t, ctx, loader)

	err = h.Press(ctx, "forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFlushLimit))
}

func TestDisposedScope(t *testing.T) {
	ctx := context.Background()
	bus := stabilize.New()
	f := newFixture(t, ui.NewPage("page", &counter{key: "c"}))
	loader, err := testbed.Loader(f, testbed.WithBus(bus))
	require.NoError(t, err)
	h := firstCounter(t, ctx, loader)
	count, err := h.LocatorFor(".count")(ctx)
	require.NoError(t, err)

	f.Destroy()

	checks := map[string]func() error{
		"force stabilize": func() error { return h.ForceStabilize(ctx) },
		"wait outside":    func() error { return h.WaitForTasksOutsideScope(ctx) },
		"locator":         func() error { _, err := h.Count(ctx); return err },
		"element query":   func() error { _, err := count.Text(ctx); return err },
		"element action":  func() error { return count.Click(ctx) },
		"loader":          func() error { _, err := testbed.Loader(f, testbed.WithBus(stabilize.New())); return err },
		"render":          func() error { return f.DetectChanges(ctx) },
		"inside batch": func() error {
			return bus.Manual(ctx, func(ctx context.Context) error { return h.ForceStabilize(ctx) })
		},
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			err := check()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrDisposedScope))
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestRegistryOwnsHandler(t *testing.T) {
	bus := stabilize.New()
	f1 := newFixture(t, &counter{key: "one"})
	f2 := newFixture(t, &counter{key: "two"})

	_, err := testbed.Loader(f1, testbed.WithBus(bus))
	require.NoError(t, err)
	_, err = testbed.Loader(f1, testbed.WithBus(bus))
	require.NoError(t, err)
	_, err = testbed.Loader(f2, testbed.WithBus(bus))
	require.NoError(t, err)
	assert.True(t, bus.Installed())
	assert.Equal(t, 2, testbed.ActiveScopes(bus))
	assert.Equal(t, 2, harness.Registered(bus))

	f1.Destroy()
	assert.True(t, bus.Installed())
	assert.Equal(t, 1, testbed.ActiveScopes(bus))

	f2.Destroy()
	assert.False(t, bus.Installed())
	assert.Zero(t, testbed.ActiveScopes(bus))
}

func TestParallelStabilizesOnce(t *testing.T) {
	ctx := context.Background()
	c := &counter{key: "c"}
	f := newFixture(t, ui.NewPage("page", c))
	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	h := firstCounter(t, ctx, loader)

	before := c.renders.Load()
	var texts [3]string
	err = h.LocatorFactory().Parallel(ctx,
		func(ctx context.Context) (err error) { texts[0], err = h.Count(ctx); return },
		func(ctx context.Context) (err error) { texts[1], err = h.text(ctx, ".label"); return },
		func(ctx context.Context) (err error) { texts[2], err = h.text(ctx, ".key"); return },
	)
	require.NoError(t, err)
	assert.Equal(t, [3]string{"0", "", ""}, texts)
	// one stabilization on entry and one on exit, two render passes each
	assert.Equal(t, int32(4), c.renders.Load()-before)
}

func TestHarnessForFixture(t *testing.T) {
	ctx := context.Background()
	c := &counter{key: "solo"}
	f := newFixture(t, c)

	before := c.renders.Load()
	h, err := testbed.HarnessForFixture(ctx, f, counterType, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	// stabilized once before the harness was built
	assert.Equal(t, int32(2), c.renders.Load()-before)
	require.NoError(t, h.Press(ctx, "inc"))

	count, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", count)

	ok, err := h.Host().HasClass(ctx, "counter")
	require.NoError(t, err)
	assert.True(t, ok)

	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	none, err := harness.GetHarnessOrNil[*counterHarness](ctx, loader, counterType)
	require.NoError(t, err)
	assert.Nil(t, none)

	f.Destroy()
	_, err = testbed.HarnessForFixture(ctx, f, counterType, testbed.WithBus(stabilize.New()))
	assert.ErrorIs(t, err, errors.ErrDisposedScope)
}

func TestDocumentRootLoader(t *testing.T) {
	ctx := context.Background()
	bus := stabilize.New()
	f1 := newFixture(t, &counter{key: "one"})
	newFixture(t, &counter{key: "two"}, testbed.WithDocument(f1.Document()))

	loader, err := testbed.DocumentRootLoader(f1, testbed.WithBus(bus))
	require.NoError(t, err)
	all, err := harness.GetAllHarnesses[*counterHarness](ctx, loader, counterType)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSendKeys(t *testing.T) {
	ctx := context.Background()
	c := &counter{key: "c"}
	f := newFixture(t, ui.NewPage("page", c))
	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	h := firstCounter(t, ctx, loader)

	input, err := h.LocatorFor("input.name")(ctx)
	require.NoError(t, err)
	require.NoError(t, input.SendKeys(ctx, "ab", harness.KeyEnter))

	label, err := h.text(ctx, ".label")
	require.NoError(t, err)
	assert.Equal(t, "ab", label)
	key, err := h.text(ctx, ".key")
	require.NoError(t, err)
	assert.Equal(t, "Enter", key)

	focused, err := input.IsFocused(ctx)
	require.NoError(t, err)
	assert.True(t, focused)
	value, err := input.GetProperty(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "ab", value)

	require.NoError(t, input.Clear(ctx))
	label, err = h.text(ctx, ".label")
	require.NoError(t, err)
	assert.Empty(t, label)
}

func TestNativeElement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ui.NewPage("page", &counter{key: "c"}))
	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	h := firstCounter(t, ctx, loader)

	el, err := h.LocatorFor(".count")(ctx)
	require.NoError(t, err)
	node, err := testbed.NativeElement(el)
	require.NoError(t, err)
	assert.Equal(t, "span", node.Data)

	_, err = testbed.NativeElement(foreignElement{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForeignElement))
}

type foreignElement struct {
	harness.TestElement
}

func TestSchedulerUnavailable(t *testing.T) {
	f := newFixture(t, &counter{key: "c"}, testbed.WithScheduler(nil))

	_, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchedulerUnavailable))
}
