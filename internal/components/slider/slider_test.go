package slider_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/harness/internal/components/slider"
	"github.com/conneroisu/harness/internal/harness"
	"github.com/conneroisu/harness/internal/harness/testbed"
	"github.com/conneroisu/harness/internal/stabilize"
)

func loadSliders(t *testing.T) (context.Context, []*slider.Harness) {
	t.Helper()
	ctx := context.Background()
	f, err := testbed.NewFixture(ctx, slider.Demo())
	require.NoError(t, err)
	t.Cleanup(f.Destroy)

	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)
	sliders, err := harness.GetAllHarnesses[*slider.Harness](ctx, loader, slider.HarnessType)
	require.NoError(t, err)
	require.Len(t, sliders, 3)
	return ctx, sliders
}

func TestDemoMarkup(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, slider.Demo().Render(context.Background(), &buf))

	g := goldie.New(t)
	g.Assert(t, "demo", buf.Bytes())
}

func TestFilterByID(t *testing.T) {
	ctx := context.Background()
	f, err := testbed.NewFixture(ctx, slider.Demo())
	require.NoError(t, err)
	t.Cleanup(f.Destroy)
	loader, err := testbed.Loader(f, testbed.WithBus(stabilize.New()))
	require.NoError(t, err)

	found, err := harness.GetAllHarnesses[*slider.Harness](ctx, loader,
		slider.With(slider.Filters{BaseFilters: harness.BaseFilters{Selector: "#my-slider"}}))
	require.NoError(t, err)
	require.Len(t, found, 1)

	id, ok, err := found[0].GetID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "my-slider", id)
}

func TestSliderQueries(t *testing.T) {
	ctx, sliders := loadSliders(t)

	testCases := []struct {
		name        string
		id          string
		hasID       bool
		value       int
		min, max    int
		percentage  float64
		display     string
		hasDisplay  bool
		orientation string
		disabled    bool
	}{
		{"disabled", "", false, 50, 0, 100, 0.5, "", false, "horizontal", true},
		{"plain", "my-slider", true, 0, 0, 100, 0, "Null", true, "horizontal", false},
		{"ranged", "", false, 225, 200, 250, 0.5, "#225", true, "vertical", false},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := sliders[i]

			id, hasID, err := h.GetID(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.hasID, hasID)
			assert.Equal(t, tc.id, id)

			value, err := h.GetValue(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.value, value)

			lo, err := h.GetMinValue(ctx)
			require.NoError(t, err)
			hi, err := h.GetMaxValue(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.min, lo)
			assert.Equal(t, tc.max, hi)

			pct, err := h.GetPercentage(ctx)
			require.NoError(t, err)
			assert.InDelta(t, tc.percentage, pct, 1e-9)

			display, hasDisplay, err := h.GetDisplayValue(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.hasDisplay, hasDisplay)
			assert.Equal(t, tc.display, display)

			orientation, err := h.GetOrientation(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.orientation, orientation)

			disabled, err := h.IsDisabled(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.disabled, disabled)
		})
	}
}

func TestSetValue(t *testing.T) {
	ctx, sliders := loadSliders(t)

	require.NoError(t, sliders[1].SetValue(ctx, 33))
	v, err := sliders[1].GetValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 33, v)
	display, _, err := sliders[1].GetDisplayValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#33", display)

	require.NoError(t, sliders[2].SetValue(ctx, 300))
	v, err = sliders[2].GetValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, v)

	require.NoError(t, sliders[0].SetValue(ctx, 10))
	v, err = sliders[0].GetValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, v, "disabled slider keeps its value")
}

func TestFocusAndBlur(t *testing.T) {
	ctx, sliders := loadSliders(t)
	h := sliders[1]

	require.NoError(t, h.Focus(ctx))
	focused, err := h.IsFocused(ctx)
	require.NoError(t, err)
	assert.True(t, focused)

	require.NoError(t, h.Blur(ctx))
	focused, err = h.IsFocused(ctx)
	require.NoError(t, err)
	assert.False(t, focused)
}
