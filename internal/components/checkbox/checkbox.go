// Package checkbox is a labelled checkbox with an indeterminate state and a
// configurable click action, and its harness.
package checkbox

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/ui"
)

// ClickAction selects what a click on the input does.
type ClickAction string

const (
	// ClickDefault toggles checked and clears indeterminate on the next tick.
	ClickDefault ClickAction = ""
	// ClickCheck toggles checked and leaves indeterminate alone.
	ClickCheck ClickAction = "check"
	// ClickNoop ignores clicks.
	ClickNoop ClickAction = "noop"
)

// Checkbox is a boolean input with a label.
type Checkbox struct {
	ID            string
	Label         string
	Checked       bool
	Indeterminate bool
	Disabled      bool
	ClickAction   ClickAction

	key string
}

// New returns an unchecked checkbox.
func New(key, label string) *Checkbox {
	return &Checkbox{key: key, Label: label}
}

func (c *Checkbox) Key() string { return c.key }

func (c *Checkbox) ariaChecked() string {
	switch {
	case c.Indeterminate:
		return "mixed"
	case c.Checked:
		return "true"
	}
	return "false"
}

func (c *Checkbox) Render(_ context.Context, w io.Writer) error {
	class := templ.Classes("ui-checkbox",
		templ.KV("ui-checkbox-checked", c.Checked),
		templ.KV("ui-checkbox-indeterminate", c.Indeterminate),
		templ.KV("ui-checkbox-disabled", c.Disabled),
	).String()

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="%s"%s%s><label class="ui-checkbox-layout">`, class, ui.Host(c), ui.Attr("id", c.ID, c.ID != ""))
	fmt.Fprintf(&b, `<input type="checkbox" class="ui-checkbox-input"%s%s%s aria-checked="%s"%s%s>`,
		ui.Attr("checked", "", c.Checked),
		ui.Attr("indeterminate", "", c.Indeterminate),
		ui.Attr("disabled", "", c.Disabled),
		c.ariaChecked(), ui.On("click", "click"), ui.On("change", "change"))
	fmt.Fprintf(&b, `<span class="ui-checkbox-label">%s</span></label></div>`, templ.EscapeString(c.Label))

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Checkbox) Handle(ctx context.Context, ev ui.Event) error {
	if c.Disabled {
		return nil
	}
	switch ev.Action {
	case "click":
		switch c.ClickAction {
		case ClickNoop:
			ev.PreventDefault()
		case ClickCheck:
			ev.PreventDefault()
			c.Checked = !c.Checked
		}
	case "change":
		c.Checked = ev.Checked
		if !c.Indeterminate {
			return nil
		}
		// Indeterminate is resolved a tick after the change, like the widget
		// it models.
		if tasks := ui.TasksFrom(ctx); tasks != nil {
			tasks.Schedule(0, func() { c.Indeterminate = false })
		} else {
			c.Indeterminate = false
		}
	}
	return nil
}

// Demo returns a page with one checkbox per click action plus a disabled
// one. The first three start indeterminate.
func Demo() *ui.Page {
	toggle := New("toggle", "Toggle")
	toggle.Indeterminate = true

	check := New("check", "Check only")
	check.Indeterminate = true
	check.ClickAction = ClickCheck

	noop := New("noop", "No-op")
	noop.Indeterminate = true
	noop.ClickAction = ClickNoop

	disabled := New("disabled", "Disabled")
	disabled.ID = "disabled-checkbox"
	disabled.Checked = true
	disabled.Disabled = true

	return ui.NewPage("checkboxes", toggle, check, noop, disabled)
}
