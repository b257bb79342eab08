package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverSamplesCurrentState(t *testing.T) {
	v := NewVirtual()
	o := NewObserver(v)
	defer o.Close()

	assert.True(t, o.State().Stable)

	// Already stable: must return without any further transition.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, o.WaitUntilStable(ctx))
}

func TestObserverStartsUnstableWithPendingWork(t *testing.T) {
	v := NewVirtual()
	v.AfterFunc(time.Second, func() {})

	o := NewObserver(v)
	defer o.Close()
	assert.False(t, o.State().Stable)

	done := make(chan error, 1)
	go func() { done <- o.WaitUntilStable(context.Background()) }()

	require.NoError(t, v.Flush())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("observer never reported stable")
	}
	assert.True(t, o.State().Stable)
}

func TestObserverTracksRealtime(t *testing.T) {
	r := NewRealtime()
	o := NewObserver(r)
	defer o.Close()

	r.AfterFunc(10*time.Millisecond, func() {})
	assert.False(t, o.State().Stable)

	require.NoError(t, o.WaitUntilStable(context.Background()))
	assert.True(t, o.State().Stable)
}

func TestObserverWaitHonorsContext(t *testing.T) {
	v := NewVirtual()
	v.AfterFunc(time.Second, func() {})
	o := NewObserver(v)
	defer o.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, o.WaitUntilStable(ctx), context.DeadlineExceeded)
}

func TestObserverCloseReleasesWaiters(t *testing.T) {
	v := NewVirtual()
	v.AfterFunc(time.Second, func() {})
	o := NewObserver(v)

	done := make(chan error, 1)
	go func() { done <- o.WaitUntilStable(context.Background()) }()

	o.Close()
	o.Close()
	assert.NoError(t, <-done)
	assert.True(t, o.Closed())

	// Unsubscribed: later transitions are not observed.
	require.NoError(t, v.Flush())
	assert.False(t, o.State().Stable)
}
