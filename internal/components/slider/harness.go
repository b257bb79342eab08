package slider

import (
	"context"
	"strconv"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
)

// Harness drives a Slider.
type Harness struct {
	harness.ComponentHarness
}

// HarnessType finds sliders by their host class.
var HarnessType = harness.Type[*Harness]{
	Name:         "SliderHarness",
	HostSelector: ".ui-slider",
	New: func(lf harness.LocatorFactory) *Harness {
		return &Harness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// Filters narrows slider searches.
type Filters struct {
	harness.BaseFilters
}

// With returns a predicate for sliders matching f.
func With(f Filters) *harness.Predicate[*Harness] {
	return harness.NewPredicate(HarnessType, f.BaseFilters)
}

func (h *Harness) input(ctx context.Context) (harness.TestElement, error) {
	return h.LocatorFor(".ui-slider-input")(ctx)
}

func (h *Harness) intAttr(ctx context.Context, name string) (int, error) {
	v, ok, err := h.Host().GetAttribute(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.NewInternalError("slider host has no "+name, nil)
	}
	return strconv.Atoi(v)
}

// GetID returns the host id and whether it has one.
func (h *Harness) GetID(ctx context.Context) (string, bool, error) {
	return h.Host().GetAttribute(ctx, "id")
}

// GetValue returns the current value.
func (h *Harness) GetValue(ctx context.Context) (int, error) {
	return h.intAttr(ctx, "aria-valuenow")
}

// GetMinValue returns the lower bound.
func (h *Harness) GetMinValue(ctx context.Context) (int, error) {
	return h.intAttr(ctx, "aria-valuemin")
}

// GetMaxValue returns the upper bound.
func (h *Harness) GetMaxValue(ctx context.Context) (int, error) {
	return h.intAttr(ctx, "aria-valuemax")
}

// GetPercentage returns the value's position in the range, from 0 to 1.
func (h *Harness) GetPercentage(ctx context.Context) (float64, error) {
	var v, lo, hi int
	err := h.LocatorFactory().Parallel(ctx,
		func(ctx context.Context) (err error) { v, err = h.GetValue(ctx); return },
		func(ctx context.Context) (err error) { lo, err = h.GetMinValue(ctx); return },
		func(ctx context.Context) (err error) { hi, err = h.GetMaxValue(ctx); return },
	)
	if err != nil || hi == lo {
		return 0, err
	}
	return float64(v-lo) / float64(hi-lo), nil
}

// GetDisplayValue returns the thumb label text and whether the slider shows
// one.
func (h *Harness) GetDisplayValue(ctx context.Context) (string, bool, error) {
	label, err := h.LocatorForOptional(".ui-slider-thumb-label")(ctx)
	if err != nil || label == nil {
		return "", false, err
	}
	text, err := label.Text(ctx)
	return text, err == nil, err
}

// GetOrientation returns "horizontal" or "vertical".
func (h *Harness) GetOrientation(ctx context.Context) (string, error) {
	v, _, err := h.Host().GetAttribute(ctx, "aria-orientation")
	return v, err
}

// IsDisabled reports whether the slider is disabled.
func (h *Harness) IsDisabled(ctx context.Context) (bool, error) {
	v, _, err := h.Host().GetAttribute(ctx, "aria-disabled")
	return v == "true", err
}

// SetValue moves the slider to value. Out-of-range values are clamped by
// the component.
func (h *Harness) SetValue(ctx context.Context, value int) error {
	in, err := h.input(ctx)
	if err != nil {
		return err
	}
	if err := in.SetInputValue(ctx, strconv.Itoa(value)); err != nil {
		return err
	}
	return in.DispatchEvent(ctx, "change", nil)
}

// Focus focuses the slider.
func (h *Harness) Focus(ctx context.Context) error { return h.Host().Focus(ctx) }

// Blur removes focus from the slider.
func (h *Harness) Blur(ctx context.Context) error { return h.Host().Blur(ctx) }

// IsFocused reports whether the slider has focus.
func (h *Harness) IsFocused(ctx context.Context) (bool, error) { return h.Host().IsFocused(ctx) }
