// Package buttontoggle is a group of on/off buttons with single or multiple
// selection, and its harnesses.
package buttontoggle

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/ui"
)

// Toggle is one button of a Group.
type Toggle struct {
	Label    string
	Value    string
	Checked  bool
	Disabled bool

	key   string
	group *Group
}

func (t *Toggle) Key() string { return t.key }

func (t *Toggle) Render(_ context.Context, w io.Writer) error {
	disabled := t.Disabled || t.group.Disabled
	class := templ.Classes("ui-button-toggle",
		templ.KV("ui-button-toggle-checked", t.Checked),
		templ.KV("ui-button-toggle-disabled", disabled),
	).String()
	_, err := fmt.Fprintf(w, `<div class="%s"%s><button type="button" class="ui-button-toggle-button" aria-pressed="%t"%s%s>`+
		`<span class="ui-button-toggle-label">%s</span></button></div>`,
		class, ui.Host(t), t.Checked, ui.Attr("disabled", "", disabled), ui.On("click", "toggle"),
		templ.EscapeString(t.Label))
	return err
}

func (t *Toggle) Handle(_ context.Context, ev ui.Event) error {
	if ev.Action != "toggle" || t.Disabled || t.group.Disabled {
		return nil
	}
	t.group.toggle(t)
	return nil
}

// Group holds toggles. In single-selection mode at most one is checked.
type Group struct {
	Multiple bool
	Vertical bool
	Disabled bool
	Toggles  []*Toggle

	key string
}

// NewGroup returns a group with one toggle per label. Each toggle's value is
// its label.
func NewGroup(key string, multiple bool, labels ...string) *Group {
	g := &Group{key: key, Multiple: multiple}
	for i, label := range labels {
		g.Toggles = append(g.Toggles, &Toggle{
			Label: label,
			Value: label,
			key:   fmt.Sprintf("%s-%d", key, i),
			group: g,
		})
	}
	return g
}

func (g *Group) Key() string { return g.key }

func (g *Group) Children() []ui.Component {
	out := make([]ui.Component, len(g.Toggles))
	for i, t := range g.Toggles {
		out[i] = t
	}
	return out
}

func (g *Group) Render(ctx context.Context, w io.Writer) error {
	role := "radiogroup"
	if g.Multiple {
		role = "group"
	}
	class := templ.Classes("ui-button-toggle-group",
		templ.KV("ui-button-toggle-group-multiple", g.Multiple),
		templ.KV("ui-button-toggle-vertical", g.Vertical),
	).String()
	if _, err := fmt.Fprintf(w, `<div class="%s"%s role="%s"%s>`,
		class, ui.Host(g), role, ui.Attr("aria-disabled", "true", g.Disabled)); err != nil {
		return err
	}
	for _, t := range g.Toggles {
		if err := t.Render(ctx, w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div>`)
	return err
}

func (g *Group) toggle(t *Toggle) {
	if g.Multiple {
		t.Checked = !t.Checked
		return
	}
	for _, other := range g.Toggles {
		other.Checked = other == t
	}
}

// Value returns the selection: a []string of checked values in multiple
// mode, otherwise the checked value or "".
func (g *Group) Value() any {
	if g.Multiple {
		values := []string{}
		for _, t := range g.Toggles {
			if t.Checked {
				values = append(values, t.Value)
			}
		}
		return values
	}
	for _, t := range g.Toggles {
		if t.Checked {
			return t.Value
		}
	}
	return ""
}

// SetValue selects the toggles whose values appear in v. Multiple mode takes
// a []string and single mode a string; nil clears the selection.
func (g *Group) SetValue(v any) error {
	var selected []string
	switch v := v.(type) {
	case nil:
	case []string:
		if !g.Multiple {
			return errors.NewInvalidOptionValueError("value", "Value must be a string in single-selection mode.")
		}
		selected = v
	case string:
		if g.Multiple {
			return errors.NewInvalidOptionValueError("value", "Value must be an array in multiple-selection mode.")
		}
		selected = []string{v}
	default:
		if g.Multiple {
			return errors.NewInvalidOptionValueError("value", "Value must be an array in multiple-selection mode.")
		}
		return errors.NewInvalidOptionValueError("value", "Value must be a string in single-selection mode.")
	}

	for _, t := range g.Toggles {
		t.Checked = slices.Contains(selected, t.Value)
		if t.Checked && !g.Multiple {
			selected = nil
		}
	}
	return nil
}

// Demo returns a page with a single-selection group and a multiple-selection
// group.
func Demo() *ui.Page {
	align := NewGroup("alignment", false, "Left", "Center", "Right")
	align.Toggles[0].Checked = true

	style := NewGroup("style", true, "Bold", "Italic", "Underline")
	style.Toggles[1].Checked = true
	style.Toggles[2].Disabled = true

	return ui.NewPage("toggles", align, style)
}
