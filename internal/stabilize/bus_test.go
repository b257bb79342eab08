package stabilize

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a handler that records every status it receives.
type recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *recorder) handle(_ context.Context, s Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
	return nil
}

func (r *recorder) edges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.statuses {
		if s.StabilizeNow {
			n++
		}
	}
	return n
}

func nest(b *Bus, depth int, triggerEdges bool, inner func()) func(context.Context) error {
	return func(ctx context.Context) error {
		if depth == 0 {
			inner()
			return nil
		}
		return b.WithSuspended(ctx, nest(b, depth-1, triggerEdges, inner), triggerEdges)
	}
}

func TestWithSuspendedNestingEmitsOnePair(t *testing.T) {
	for _, depth := range []int{1, 2, 5, 12} {
		b := New()
		rec := &recorder{}
		b.Install(rec.handle)

		var pausedInside bool
		err := nest(b, depth, true, func() { pausedInside = b.Paused() })(context.Background())
		require.NoError(t, err)

		assert.True(t, pausedInside)
		assert.False(t, b.Paused())
		assert.Equal(t, []Status{
			{Paused: true, StabilizeNow: true},
			{Paused: false, StabilizeNow: true},
		}, rec.statuses, "depth %d", depth)
	}
}

func TestWithSuspendedInstallsImmediateHandler(t *testing.T) {
	b := New()
	require.False(t, b.Installed())

	ran := false
	err := b.WithSuspended(context.Background(), func(context.Context) error {
		ran = true
		return nil
	}, true)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, b.Installed())
}

func TestManualEmitsNoEdges(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Install(rec.handle)

	err := b.Manual(context.Background(), func(context.Context) error {
		assert.True(t, b.Paused())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, rec.edges())
	assert.Equal(t, []Status{{Paused: true}, {Paused: false}}, rec.statuses)
}

func TestInstallIsLastWriterWins(t *testing.T) {
	b := New()
	first, second := &recorder{}, &recorder{}

	b.Install(first.handle)
	b.Install(second.handle)
	require.NoError(t, b.WithSuspended(context.Background(), func(context.Context) error { return nil }, true))

	assert.Empty(t, first.statuses)
	assert.Equal(t, 2, second.edges())

	b.Uninstall()
	b.Uninstall()
	assert.False(t, b.Installed())
}

func TestWithSuspendedPropagatesErrors(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	err := b.WithSuspended(context.Background(), func(context.Context) error { return boom }, true)
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.Paused(), "region must resume after a failure")

	failing := errors.New("stabilize failed")
	b.Install(func(_ context.Context, s Status) error {
		if s.Paused {
			return failing
		}
		return nil
	})
	called := false
	err = b.WithSuspended(context.Background(), func(context.Context) error {
		called = true
		return nil
	}, true)
	assert.ErrorIs(t, err, failing)
	assert.False(t, called)
	assert.False(t, b.Paused())
}

func TestParallelBracketsGroupOnce(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Install(rec.handle)

	var inside atomic.Int32
	read := func(v string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			if b.Paused() {
				inside.Add(1)
			}
			return v, nil
		}
	}

	got, err := Parallel(context.Background(), b, read("a"), read("b"), read("c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, int32(3), inside.Load())
	assert.Equal(t, 2, rec.edges())
}

func TestParallelFirstErrorWins(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	_, err := Parallel(context.Background(), b,
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, boom },
	)
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.Paused())
}

func TestParallelDo(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Install(rec.handle)

	var count atomic.Int32
	fns := make([]func(context.Context) error, 10)
	for i := range fns {
		fns[i] = func(context.Context) error {
			count.Add(1)
			return nil
		}
	}

	require.NoError(t, ParallelDo(context.Background(), b, fns...))
	assert.Equal(t, int32(10), count.Load())
	assert.Equal(t, 2, rec.edges())
}

func TestDefaultBusIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
