package button

import (
	"context"
	"strconv"

	"github.com/conneroisu/harness/internal/harness"
)

// Harness drives a Button.
type Harness struct {
	harness.ComponentHarness
}

// HarnessType finds buttons by their host class.
var HarnessType = harness.Type[*Harness]{
	Name:         "ButtonHarness",
	HostSelector: ".ui-button",
	New: func(lf harness.LocatorFactory) *Harness {
		return &Harness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// Filters narrows button searches.
type Filters struct {
	harness.BaseFilters
	Text    harness.StringMatch
	Variant Variant
}

// With returns a predicate for buttons matching f.
func With(f Filters) *harness.Predicate[*Harness] {
	return harness.NewPredicate(HarnessType, f.BaseFilters).
		AddOption("text", f.Text, f.Text.IsSet(), func(ctx context.Context, h *Harness) (bool, error) {
			return harness.StringMatches(ctx, h.GetText, f.Text)
		}).
		AddOption("variant", string(f.Variant), f.Variant != "", func(ctx context.Context, h *Harness) (bool, error) {
			return h.Host().HasClass(ctx, "ui-button-"+string(f.Variant))
		})
}

// Click clicks the button.
func (h *Harness) Click(ctx context.Context) error { return h.Host().Click(ctx) }

// GetText returns the button label.
func (h *Harness) GetText(ctx context.Context) (string, error) { return h.Host().Text(ctx) }

// IsDisabled reports whether the button is disabled.
func (h *Harness) IsDisabled(ctx context.Context) (bool, error) {
	v, err := h.Host().GetProperty(ctx, "disabled")
	b, _ := v.(bool)
	return b, err
}

// GetClicks returns how many clicks the button has handled.
func (h *Harness) GetClicks(ctx context.Context) (int, error) {
	v, _, err := h.Host().GetAttribute(ctx, "data-clicks")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// Focus focuses the button.
func (h *Harness) Focus(ctx context.Context) error { return h.Host().Focus(ctx) }

// Blur removes focus from the button.
func (h *Harness) Blur(ctx context.Context) error { return h.Host().Blur(ctx) }

// IsFocused reports whether the button has focus.
func (h *Harness) IsFocused(ctx context.Context) (bool, error) { return h.Host().IsFocused(ctx) }
