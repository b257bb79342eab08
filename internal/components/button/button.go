// Package button is a push button that counts its clicks, and its harness.
package button

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/ui"
)

// Variant is the visual style of a button.
type Variant string

const (
	Basic   Variant = "basic"
	Raised  Variant = "raised"
	Flat    Variant = "flat"
	Stroked Variant = "stroked"
)

// Button is a clickable control. Clicks counts activations.
type Button struct {
	ID       string
	Label    string
	Variant  Variant
	Disabled bool
	Clicks   int

	key string
}

// New returns an enabled basic button.
func New(key, label string) *Button {
	return &Button{key: key, Label: label, Variant: Basic}
}

func (b *Button) Key() string { return b.key }

func (b *Button) Render(_ context.Context, w io.Writer) error {
	class := templ.Classes("ui-button",
		"ui-button-"+string(b.Variant),
		templ.KV("ui-button-disabled", b.Disabled),
	).String()
	_, err := fmt.Fprintf(w, `<button type="button" class="%s"%s%s%s data-clicks="%s"%s>%s</button>`,
		class, ui.Host(b), ui.Attr("id", b.ID, b.ID != ""), ui.Attr("disabled", "", b.Disabled),
		strconv.Itoa(b.Clicks), ui.On("click", "click"), templ.EscapeString(b.Label))
	return err
}

func (b *Button) Handle(_ context.Context, ev ui.Event) error {
	if ev.Action == "click" && !b.Disabled {
		b.Clicks++
	}
	return nil
}

// Row returns a page of n raised buttons labelled "Button 1" to "Button n".
func Row(id string, n int) *ui.Page {
	items := make([]ui.Component, n)
	for i := range n {
		b := New(fmt.Sprintf("%s-%d", id, i+1), fmt.Sprintf("Button %d", i+1))
		b.Variant = Raised
		items[i] = b
	}
	return ui.NewPage(id, items...)
}

// Demo returns a page with one button of each variant and a disabled one.
func Demo() *ui.Page {
	basic := New("basic", "Basic")
	raised := New("raised", "Raised")
	raised.Variant = Raised
	flat := New("flat", "Flat")
	flat.Variant = Flat
	stroked := New("stroked", "Stroked")
	stroked.Variant = Stroked
	stroked.ID = "stroked-button"
	disabled := New("disabled", "Disabled")
	disabled.Disabled = true
	return ui.NewPage("buttons", basic, raised, flat, stroked, disabled)
}
