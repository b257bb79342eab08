package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarnessErrorMessage(t *testing.T) {
	err := NewNoMatchError("[.ui-slider]").WithComponent("SliderHarness")

	assert.Contains(t, err.Error(), "[ERR_NO_MATCH]")
	assert.Contains(t, err.Error(), "component:SliderHarness")
	assert.Contains(t, err.Error(), "[.ui-slider]")
}

func TestHarnessErrorIs(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
		recover  bool
	}{
		{"disposed", NewDisposedScopeError("fixture-1"), ErrDisposedScope, false},
		{"no match", NewNoMatchError("x"), ErrNoMatch, true},
		{"invalid option", NewInvalidOptionValueError("value", "Value must be an array in multiple-selection mode."), ErrInvalidOptionValue, false},
		{"scheduler", NewSchedulerUnavailableError("no scheduler"), ErrSchedulerUnavailable, false},
		{"flush", NewFlushLimitError(20), ErrFlushLimit, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			assert.Equal(t, tc.recover, IsRecoverable(tc.err))

			wrapped := fmt.Errorf("while loading: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Equal(t, tc.recover, IsRecoverable(wrapped))
		})
	}

	assert.NotErrorIs(t, NewNoMatchError("x"), ErrDisposedScope)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewDisposedScopeError("f")))
	assert.True(t, IsFatal(NewSchedulerUnavailableError("missing")))
	assert.False(t, IsFatal(NewNoMatchError("x")))
	assert.False(t, IsFatal(New("plain")))
}

func TestHarnessErrorUnwrap(t *testing.T) {
	cause := New("selector syntax")
	err := NewInvalidSelectorError("div[", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "div[", err.Context["selector"])
	assert.Contains(t, err.Error(), "selector syntax")
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Err())

	collector.Add("ignored", nil)
	assert.False(t, collector.HasErrors())

	collector.Add("click", NewNoMatchError("button"))
	require.True(t, collector.HasErrors())
	assert.False(t, collector.HasFatal())

	collector.Add("text", NewDisposedScopeError("fixture"))
	assert.True(t, collector.HasFatal())
	assert.Len(t, collector.GetErrors(), 2)

	joined := collector.Err()
	assert.ErrorIs(t, joined, ErrNoMatch)
	assert.ErrorIs(t, joined, ErrDisposedScope)
	assert.Contains(t, collector.Summary(), "click:")

	collector.Clear()
	assert.False(t, collector.HasErrors())
}
