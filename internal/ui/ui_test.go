package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/dom"
)

type counter struct {
	key    string
	count  int
	events []Event
}

func (c *counter) Key() string { return c.key }

func (c *counter) Render(_ context.Context, w io.Writer) error {
	_, err := fmt.Fprintf(w, `<div class="counter"%s><button%s>+</button><span>%d</span></div>`,
		Host(c), On("click", "inc"), c.count)
	return err
}

func (c *counter) Handle(_ context.Context, ev Event) error {
	c.events = append(c.events, ev)
	if ev.Action == "inc" {
		c.count++
	}
	return nil
}

func TestFind(t *testing.T) {
	a, b := &counter{key: "a"}, &counter{key: "b"}
	page := NewPage("page", a, NewPage("inner", b))

	assert.Same(t, a, Find(page, "a"))
	assert.Same(t, b, Find(page, "b"))
	assert.Equal(t, page, Find(page, "page"))
	assert.Nil(t, Find(page, "missing"))
	assert.Nil(t, Find(nil, "a"))
}

func TestAttrHelpers(t *testing.T) {
	assert.Equal(t, ` data-ui-on-click="a&amp;b"`, On("click", "a&b"))
	assert.Equal(t, "", Attr("disabled", "", false))
	assert.Equal(t, " disabled", Attr("disabled", "", true))
	assert.Equal(t, ` aria-valuenow="5"`, Attr("aria-valuenow", "5", true))
}

func TestRouteDeliversToOwningComponent(t *testing.T) {
	a, b := &counter{key: "a"}, &counter{key: "b"}
	page := NewPage("page", a, b)

	var buf bytes.Buffer
	require.NoError(t, page.Render(context.Background(), &buf))

	doc := dom.NewDocument()
	require.NoError(t, doc.Patch(doc.Body(), buf.String()))
	buttons, err := doc.QueryAll(doc.Body(), "button")
	require.NoError(t, err)
	require.Len(t, buttons, 2)

	listener := func(n *html.Node, ev *dom.Event) error {
		return Route(context.Background(), doc, page, n, ev)
	}
	require.NoError(t, doc.Dispatch(dom.NewEvent("click", buttons[1]), listener))

	assert.Equal(t, 0, a.count)
	assert.Equal(t, 1, b.count)
	require.Len(t, b.events, 1)
	assert.Equal(t, "click", b.events[0].Type)

	// Events without a binding are ignored.
	require.NoError(t, doc.Dispatch(dom.NewEvent("focus", buttons[1]), listener))
	assert.Len(t, b.events, 1)
}
