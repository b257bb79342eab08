// Package slider is a range input with an optional thumb label, and its
// harness.
package slider

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/ui"
)

// Slider selects an integer value in [Min, Max].
type Slider struct {
	ID       string
	Min      int
	Max      int
	Value    int
	Disabled bool
	Vertical bool
	// ThumbLabel shows the formatted value next to the thumb.
	ThumbLabel bool
	// DisplayWith formats the thumb label. The default prints the number.
	DisplayWith func(value int) string

	key string
}

// New returns a slider over [0, 100] at 0.
func New(key string) *Slider {
	return &Slider{key: key, Max: 100}
}

func (s *Slider) Key() string { return s.key }

// SetValue stores v clamped to [Min, Max].
func (s *Slider) SetValue(v int) {
	s.Value = max(s.Min, min(s.Max, v))
}

func (s *Slider) display() string {
	if s.DisplayWith != nil {
		return s.DisplayWith(s.Value)
	}
	return strconv.Itoa(s.Value)
}

func (s *Slider) Render(_ context.Context, w io.Writer) error {
	orientation := "horizontal"
	if s.Vertical {
		orientation = "vertical"
	}
	tabindex := "0"
	if s.Disabled {
		tabindex = "-1"
	}
	class := templ.Classes("ui-slider",
		templ.KV("ui-slider-disabled", s.Disabled),
		templ.KV("ui-slider-vertical", s.Vertical),
	).String()

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="%s"%s role="slider" tabindex="%s"%s`, class, ui.Host(s), tabindex, ui.Attr("id", s.ID, s.ID != ""))
	fmt.Fprintf(&b, ` aria-valuemin="%d" aria-valuemax="%d" aria-valuenow="%d" aria-orientation="%s"%s>`,
		s.Min, s.Max, s.Value, orientation, ui.Attr("aria-disabled", "true", s.Disabled))
	fmt.Fprintf(&b, `<input type="range" class="ui-slider-input" min="%d" max="%d" value="%d"%s%s>`,
		s.Min, s.Max, s.Value, ui.Attr("disabled", "", s.Disabled), ui.On("change", "set"))
	if s.ThumbLabel {
		fmt.Fprintf(&b, `<span class="ui-slider-thumb-label">%s</span>`, templ.EscapeString(s.display()))
	}
	b.WriteString(`</div>`)

	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Slider) Handle(_ context.Context, ev ui.Event) error {
	if ev.Action != "set" || s.Disabled {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(ev.Value))
	if err != nil {
		return nil
	}
	s.SetValue(v)
	return nil
}

// DisplayNumber formats a value as "#<n>", or "Null" for zero.
func DisplayNumber(value int) string {
	if value == 0 {
		return "Null"
	}
	return "#" + strconv.Itoa(value)
}

// Demo returns a page with a disabled slider at 50, a labelled slider with
// id my-slider at 0, and a vertical slider over [200, 250] at 225.
func Demo() *ui.Page {
	disabled := New("disabled")
	disabled.Value = 50
	disabled.Disabled = true

	plain := New("plain")
	plain.ID = "my-slider"
	plain.ThumbLabel = true
	plain.DisplayWith = DisplayNumber

	ranged := New("ranged")
	ranged.Min, ranged.Max, ranged.Value = 200, 250, 225
	ranged.Vertical = true
	ranged.ThumbLabel = true
	ranged.DisplayWith = DisplayNumber

	return ui.NewPage("sliders", disabled, plain, ranged)
}
