package checkbox

import (
	"context"
	"fmt"

	"github.com/conneroisu/harness/internal/harness"
)

// Harness drives a Checkbox.
type Harness struct {
	harness.ComponentHarness
}

// HarnessType finds checkboxes by their host class.
var HarnessType = harness.Type[*Harness]{
	Name:         "CheckboxHarness",
	HostSelector: ".ui-checkbox",
	New: func(lf harness.LocatorFactory) *Harness {
		return &Harness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// Filters narrows checkbox searches. Nil pointers and unset matches are not
// applied.
type Filters struct {
	harness.BaseFilters
	Label    harness.StringMatch
	Checked  *bool
	Disabled *bool
}

// With returns a predicate for checkboxes matching f.
func With(f Filters) *harness.Predicate[*Harness] {
	p := harness.NewPredicate(HarnessType, f.BaseFilters)
	p.AddOption("label", f.Label, f.Label.IsSet(), func(ctx context.Context, h *Harness) (bool, error) {
		return harness.StringMatches(ctx, h.GetLabelText, f.Label)
	})
	if f.Checked != nil {
		want := *f.Checked
		p.AddOption("checked", want, true, func(ctx context.Context, h *Harness) (bool, error) {
			got, err := h.IsChecked(ctx)
			return got == want, err
		})
	}
	if f.Disabled != nil {
		want := *f.Disabled
		p.AddOption("disabled", want, true, func(ctx context.Context, h *Harness) (bool, error) {
			got, err := h.IsDisabled(ctx)
			return got == want, err
		})
	}
	return p
}

func (h *Harness) input(ctx context.Context) (harness.TestElement, error) {
	return h.LocatorFor(".ui-checkbox-input")(ctx)
}

func (h *Harness) boolProperty(ctx context.Context, name string) (bool, error) {
	in, err := h.input(ctx)
	if err != nil {
		return false, err
	}
	v, err := in.GetProperty(ctx, name)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("checkbox property %s is %T, not bool", name, v)
	}
}

// IsChecked reports whether the checkbox is checked.
func (h *Harness) IsChecked(ctx context.Context) (bool, error) {
	return h.boolProperty(ctx, "checked")
}

// IsIndeterminate reports whether the checkbox is in the indeterminate
// state.
func (h *Harness) IsIndeterminate(ctx context.Context) (bool, error) {
	return h.boolProperty(ctx, "indeterminate")
}

// IsDisabled reports whether the checkbox is disabled.
func (h *Harness) IsDisabled(ctx context.Context) (bool, error) {
	return h.boolProperty(ctx, "disabled")
}

// GetLabelText returns the label text.
func (h *Harness) GetLabelText(ctx context.Context) (string, error) {
	label, err := h.LocatorFor(".ui-checkbox-label")(ctx)
	if err != nil {
		return "", err
	}
	return label.Text(ctx)
}

// Toggle clicks the input. What that does depends on the click action.
func (h *Harness) Toggle(ctx context.Context) error {
	in, err := h.input(ctx)
	if err != nil {
		return err
	}
	return in.Click(ctx)
}

// Check clicks the checkbox if it is not already checked.
func (h *Harness) Check(ctx context.Context) error {
	checked, err := h.IsChecked(ctx)
	if err != nil || checked {
		return err
	}
	return h.Toggle(ctx)
}

// Uncheck clicks the checkbox if it is checked.
func (h *Harness) Uncheck(ctx context.Context) error {
	checked, err := h.IsChecked(ctx)
	if err != nil || !checked {
		return err
	}
	return h.Toggle(ctx)
}

// Focus focuses the input.
func (h *Harness) Focus(ctx context.Context) error {
	in, err := h.input(ctx)
	if err != nil {
		return err
	}
	return in.Focus(ctx)
}

// IsFocused reports whether the input has focus.
func (h *Harness) IsFocused(ctx context.Context) (bool, error) {
	in, err := h.input(ctx)
	if err != nil {
		return false, err
	}
	return in.IsFocused(ctx)
}
