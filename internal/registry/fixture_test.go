package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/ui"
)

func testFixture(name string) *FixtureInfo {
	return &FixtureInfo{
		Name: name,
		New:  func() ui.Component { return ui.NewPage(name) },
	}
}

func TestNewFixtureRegistry(t *testing.T) {
	registry := NewFixtureRegistry()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.GetAll())
}

func TestFixtureRegistry_Register(t *testing.T) {
	registry := NewFixtureRegistry()
	fixture := testFixture("b")

	require.NoError(t, registry.Register(fixture))
	require.NoError(t, registry.Register(testFixture("a")))

	retrieved, exists := registry.Get("b")
	assert.True(t, exists)
	assert.Same(t, fixture, retrieved)
	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	_, exists = registry.Get("missing")
	assert.False(t, exists)
}

func TestFixtureRegistry_RegisterInvalid(t *testing.T) {
	registry := NewFixtureRegistry()

	err := registry.Register(&FixtureInfo{New: testFixture("x").New})
	assert.True(t, errors.Is(err, errors.ErrInvalidOptionValue))

	err = registry.Register(&FixtureInfo{Name: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidOptionValue))
	assert.Equal(t, 0, registry.Count())
}

func TestFixtureRegistry_Watch(t *testing.T) {
	registry := NewFixtureRegistry()
	events := registry.Watch()

	require.NoError(t, registry.Register(testFixture("a")))
	require.NoError(t, registry.Register(testFixture("a")))
	registry.Remove("a")
	registry.Remove("a")

	for _, want := range []EventType{EventTypeAdded, EventTypeUpdated, EventTypeRemoved} {
		event := <-events
		assert.Equal(t, want, event.Type, "event %s", want)
		assert.Equal(t, "a", event.Fixture.Name)
	}
	select {
	case event := <-events:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}

	registry.UnWatch(events)
	_, open := <-events
	assert.False(t, open)
}

func TestFixtureRegistry_WatchDoesNotBlock(t *testing.T) {
	registry := NewFixtureRegistry()
	registry.Watch()

	for i := range 150 {
		require.NoError(t, registry.Register(testFixture(fmt.Sprintf("f%d", i))))
	}
	assert.Equal(t, 150, registry.Count())
}

func TestBuiltin(t *testing.T) {
	registry := Builtin()

	assert.Equal(t, []string{"buttons", "cards", "checkboxes", "delayed", "sliders", "toggles"}, registry.Names())
	for _, f := range registry.GetAll() {
		a, b := f.New(), f.New()
		assert.NotSame(t, a, b, "%s must build fresh state", f.Name)
		assert.NotEmpty(t, f.Harnesses, f.Name)
	}
}
