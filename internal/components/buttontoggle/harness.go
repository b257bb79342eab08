package buttontoggle

import (
	"context"

	"github.com/conneroisu/harness/internal/harness"
)

// ToggleHarness drives one Toggle.
type ToggleHarness struct {
	harness.ComponentHarness
}

// ToggleType finds toggles by their host class.
var ToggleType = harness.Type[*ToggleHarness]{
	Name:         "ButtonToggleHarness",
	HostSelector: ".ui-button-toggle",
	New: func(lf harness.LocatorFactory) *ToggleHarness {
		return &ToggleHarness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// ToggleFilters narrows toggle searches.
type ToggleFilters struct {
	harness.BaseFilters
	Text    harness.StringMatch
	Checked *bool
}

// WithToggle returns a predicate for toggles matching f.
func WithToggle(f ToggleFilters) *harness.Predicate[*ToggleHarness] {
	p := harness.NewPredicate(ToggleType, f.BaseFilters).
		AddOption("text", f.Text, f.Text.IsSet(), func(ctx context.Context, h *ToggleHarness) (bool, error) {
			return harness.StringMatches(ctx, h.GetText, f.Text)
		})
	if f.Checked != nil {
		want := *f.Checked
		p.AddOption("checked", want, true, func(ctx context.Context, h *ToggleHarness) (bool, error) {
			got, err := h.IsChecked(ctx)
			return got == want, err
		})
	}
	return p
}

func (h *ToggleHarness) button(ctx context.Context) (harness.TestElement, error) {
	return h.LocatorFor(".ui-button-toggle-button")(ctx)
}

// GetText returns the toggle label.
func (h *ToggleHarness) GetText(ctx context.Context) (string, error) {
	label, err := h.LocatorFor(".ui-button-toggle-label")(ctx)
	if err != nil {
		return "", err
	}
	return label.Text(ctx)
}

// IsChecked reports whether the toggle is pressed.
func (h *ToggleHarness) IsChecked(ctx context.Context) (bool, error) {
	b, err := h.button(ctx)
	if err != nil {
		return false, err
	}
	v, _, err := b.GetAttribute(ctx, "aria-pressed")
	return v == "true", err
}

// IsDisabled reports whether the toggle is disabled.
func (h *ToggleHarness) IsDisabled(ctx context.Context) (bool, error) {
	return h.Host().HasClass(ctx, "ui-button-toggle-disabled")
}

// Toggle clicks the toggle.
func (h *ToggleHarness) Toggle(ctx context.Context) error {
	b, err := h.button(ctx)
	if err != nil {
		return err
	}
	return b.Click(ctx)
}

// Check presses the toggle if it is not pressed.
func (h *ToggleHarness) Check(ctx context.Context) error {
	checked, err := h.IsChecked(ctx)
	if err != nil || checked {
		return err
	}
	return h.Toggle(ctx)
}

// Uncheck releases the toggle if it is pressed.
func (h *ToggleHarness) Uncheck(ctx context.Context) error {
	checked, err := h.IsChecked(ctx)
	if err != nil || !checked {
		return err
	}
	return h.Toggle(ctx)
}

// Focus focuses the toggle button.
func (h *ToggleHarness) Focus(ctx context.Context) error {
	b, err := h.button(ctx)
	if err != nil {
		return err
	}
	return b.Focus(ctx)
}

// GroupHarness drives a Group.
type GroupHarness struct {
	harness.ComponentHarness
}

// GroupType finds toggle groups by their host class.
var GroupType = harness.Type[*GroupHarness]{
	Name:         "ButtonToggleGroupHarness",
	HostSelector: ".ui-button-toggle-group",
	New: func(lf harness.LocatorFactory) *GroupHarness {
		return &GroupHarness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// GroupFilters narrows group searches.
type GroupFilters struct {
	harness.BaseFilters
}

// WithGroup returns a predicate for groups matching f.
func WithGroup(f GroupFilters) *harness.Predicate[*GroupHarness] {
	return harness.NewPredicate(GroupType, f.BaseFilters)
}

// GetToggles returns the group's toggles matching f.
func (h *GroupHarness) GetToggles(ctx context.Context, f ToggleFilters) ([]*ToggleHarness, error) {
	return harness.LocatorForAllHarnesses(h.LocatorFactory(), harness.Query[*ToggleHarness](WithToggle(f)))(ctx)
}

// IsDisabled reports whether the whole group is disabled.
func (h *GroupHarness) IsDisabled(ctx context.Context) (bool, error) {
	v, _, err := h.Host().GetAttribute(ctx, "aria-disabled")
	return v == "true", err
}

// IsMultiple reports whether the group allows several pressed toggles.
func (h *GroupHarness) IsMultiple(ctx context.Context) (bool, error) {
	return h.Host().HasClass(ctx, "ui-button-toggle-group-multiple")
}

// IsVertical reports whether the group is laid out vertically.
func (h *GroupHarness) IsVertical(ctx context.Context) (bool, error) {
	return h.Host().HasClass(ctx, "ui-button-toggle-vertical")
}
