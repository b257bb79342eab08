package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Page renders its children in order inside a keyed container.
type Page struct {
	ID    string
	Title string
	Items []Component
}

// NewPage returns a page holding items.
func NewPage(id string, items ...Component) *Page {
	return &Page{ID: id, Items: items}
}

func (p *Page) Key() string { return p.ID }

func (p *Page) Children() []Component { return p.Items }

func (p *Page) Render(ctx context.Context, w io.Writer) error {
	if _, err := fmt.Fprintf(w, `<div class="ui-page"%s>`, Host(p)); err != nil {
		return err
	}
	if p.Title != "" {
		if _, err := fmt.Fprintf(w, `<h1 class="ui-page-title">%s</h1>`, templ.EscapeString(p.Title)); err != nil {
			return err
		}
	}
	for _, item := range p.Items {
		if err := item.Render(ctx, w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div>`)
	return err
}
