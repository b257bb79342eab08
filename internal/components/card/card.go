// Package card is a content container with optional header, content,
// actions and footer regions, and its harness.
package card

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/components/button"
	"github.com/conneroisu/harness/internal/ui"
)

// Card groups related content. Regions without items are not rendered,
// except content when Text is set.
type Card struct {
	ID       string
	Title    string
	Subtitle string
	Text     string

	Header  []ui.Component
	Content []ui.Component
	Actions []ui.Component
	Footer  []ui.Component

	key string
}

// New returns an empty card.
func New(key string) *Card {
	return &Card{key: key}
}

func (c *Card) Key() string { return c.key }

func (c *Card) Children() []ui.Component {
	var all []ui.Component
	for _, region := range [][]ui.Component{c.Header, c.Content, c.Actions, c.Footer} {
		all = append(all, region...)
	}
	return all
}

func (c *Card) Render(ctx context.Context, w io.Writer) error {
	if _, err := fmt.Fprintf(w, `<div class="ui-card"%s%s>`, ui.Host(c), ui.Attr("id", c.ID, c.ID != "")); err != nil {
		return err
	}

	if c.Title != "" || c.Subtitle != "" || len(c.Header) > 0 {
		var head string
		if c.Title != "" {
			head += `<div class="ui-card-title">` + templ.EscapeString(c.Title) + `</div>`
		}
		if c.Subtitle != "" {
			head += `<div class="ui-card-subtitle">` + templ.EscapeString(c.Subtitle) + `</div>`
		}
		if err := region(ctx, w, "ui-card-header", head, c.Header); err != nil {
			return err
		}
	}

	if c.Text != "" || len(c.Content) > 0 {
		var text string
		if c.Text != "" {
			text = `<p class="ui-card-text">` + templ.EscapeString(c.Text) + `</p>`
		}
		if err := region(ctx, w, "ui-card-content", text, c.Content); err != nil {
			return err
		}
	}

	if len(c.Actions) > 0 {
		if err := region(ctx, w, "ui-card-actions", "", c.Actions); err != nil {
			return err
		}
	}
	if len(c.Footer) > 0 {
		if err := region(ctx, w, "ui-card-footer", "", c.Footer); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, `</div>`)
	return err
}

func region(ctx context.Context, w io.Writer, class, lead string, items []ui.Component) error {
	if _, err := fmt.Fprintf(w, `<div class="%s">%s`, class, lead); err != nil {
		return err
	}
	for _, item := range items {
		if err := item.Render(ctx, w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div>`)
	return err
}

// Demo returns a page with a fully populated card and a text-only one.
func Demo() *ui.Page {
	shiba := New("shiba")
	shiba.ID = "shiba-card"
	shiba.Title = "Shiba Inu"
	shiba.Subtitle = "Dog Breed"
	shiba.Text = "The Shiba Inu is the smallest of the six original and distinct spitz breeds of dog from Japan."
	shiba.Header = []ui.Component{button.New("shiba-menu", "Menu")}
	shiba.Actions = []ui.Component{button.New("shiba-like", "Like"), button.New("shiba-share", "Share")}
	shiba.Footer = []ui.Component{button.New("shiba-more", "More")}

	note := New("note")
	note.Text = "Cards without a header."

	return ui.NewPage("cards", shiba, note)
}
