package dom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/errors"
)

func mount(t *testing.T, markup string) (*Document, *html.Node) {
	t.Helper()
	doc := NewDocument()
	root := doc.CreateElement(doc.Body(), "div", html.Attribute{Key: "id", Val: "root"})
	require.NoError(t, doc.Patch(root, markup))
	return doc, root
}

func ids(doc *Document, nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		v, _ := doc.Attr(n, "id")
		out = append(out, v)
	}
	return out
}

func TestQueryAllDocumentOrderExcludesRoot(t *testing.T) {
	doc, root := mount(t, `
		<div id="a" class="item"><span id="b" class="item"></span></div>
		<div id="c" class="item"></div>`)

	nodes, err := doc.QueryAll(root, ".item")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(doc, nodes)); diff != "" {
		t.Errorf("QueryAll mismatch (-want +got):\n%s", diff)
	}

	scoped, err := doc.QueryAll(nodes[0], ".item")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(doc, scoped))

	nodes, err = doc.QueryAll(root, "#c, #a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(doc, nodes))
}

func TestInvalidSelector(t *testing.T) {
	doc, root := mount(t, `<div></div>`)

	_, err := doc.QueryAll(root, "div[")
	assert.ErrorIs(t, err, errors.ErrInvalidSelector)

	_, err = doc.Matches(root, ":::")
	assert.ErrorIs(t, err, errors.ErrInvalidSelector)
}

func TestMatchesAndAttributes(t *testing.T) {
	doc, root := mount(t, `<button id="go" class="primary big" style="color: red; margin-left: 4px">  Go  </button>`)
	btn, err := doc.Query(root, "button")
	require.NoError(t, err)
	require.NotNil(t, btn)

	ok, err := doc.Matches(btn, "button.primary")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "Go", doc.Text(btn))
	assert.True(t, doc.HasClass(btn, "big"))
	assert.False(t, doc.HasClass(btn, "small"))
	assert.Equal(t, "red", doc.Style(btn, "color"))
	assert.Equal(t, "4px", doc.Style(btn, "margin-left"))
	assert.Equal(t, "", doc.Style(btn, "padding"))
	assert.Equal(t, "BUTTON", doc.Property(btn, "tagName"))
	assert.Equal(t, root, doc.Parent(btn))
}

func TestPatchPreservesIdentity(t *testing.T) {
	doc, root := mount(t, `<p data-ui-key="x">one</p><p data-ui-key="y">two</p><p data-ui-key="z">three</p>`)
	before, err := doc.QueryAll(root, "p")
	require.NoError(t, err)

	require.NoError(t, doc.Patch(root, `<p data-ui-key="x" class="on">uno</p><p data-ui-key="z">three</p>`))
	after, err := doc.QueryAll(root, "p")
	require.NoError(t, err)

	require.Len(t, after, 2)
	assert.Same(t, before[0], after[0])
	assert.Same(t, before[2], after[1])
	assert.Equal(t, "uno", doc.Text(after[0]))
	assert.True(t, doc.HasClass(after[0], "on"))
	assert.False(t, doc.Contains(before[1]))
}

func TestPropertyOverridesUntilAttributeChanges(t *testing.T) {
	doc, root := mount(t, `<input type="range" value="10">`)
	input, _ := doc.Query(root, "input")

	assert.Equal(t, "10", doc.StringProperty(input, "value"))
	doc.SetProperty(input, "value", "42")
	assert.Equal(t, "42", doc.StringProperty(input, "value"))

	// Same attribute: the dirty value survives.
	require.NoError(t, doc.Patch(root, `<input type="range" value="10">`))
	assert.Equal(t, "42", doc.StringProperty(input, "value"))

	// Changed attribute: the component wins.
	require.NoError(t, doc.Patch(root, `<input type="range" value="12">`))
	assert.Equal(t, "12", doc.StringProperty(input, "value"))
}

func TestFocus(t *testing.T) {
	doc, root := mount(t, `<input id="a"><input id="b">`)
	inputs, _ := doc.QueryAll(root, "input")

	assert.Equal(t, doc.Body(), doc.ActiveElement())
	doc.Focus(inputs[0])
	assert.True(t, doc.IsFocused(inputs[0]))
	doc.Blur(inputs[1])
	assert.True(t, doc.IsFocused(inputs[0]))
	doc.Blur(inputs[0])
	assert.False(t, doc.IsFocused(inputs[0]))

	doc.Focus(inputs[1])
	doc.Remove(inputs[1])
	assert.Equal(t, doc.Body(), doc.ActiveElement())
}

func TestDispatchBubbles(t *testing.T) {
	doc, root := mount(t, `<div id="outer"><div id="inner"><span id="leaf">x</span></div></div>`)
	leaf, _ := doc.Query(root, "#leaf")

	var seen []string
	err := doc.Dispatch(NewEvent("click", leaf), func(n *html.Node, ev *Event) error {
		id, _ := doc.Attr(n, "id")
		seen = append(seen, id)
		if id == "outer" {
			ev.StopPropagation()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf", "inner", "outer"}, seen)
}

func TestCheckboxClickActivation(t *testing.T) {
	doc, root := mount(t, `<input type="checkbox" indeterminate>`)
	box, _ := doc.Query(root, "input")
	require.True(t, doc.BoolProperty(box, "indeterminate"))

	var types []string
	require.NoError(t, doc.Dispatch(NewEvent("click", box), func(n *html.Node, ev *Event) error {
		if n == box {
			types = append(types, ev.Type)
		}
		return nil
	}))
	assert.Equal(t, []string{"click", "input", "change"}, types)
	assert.True(t, doc.BoolProperty(box, "checked"))
	assert.False(t, doc.BoolProperty(box, "indeterminate"))

	require.NoError(t, doc.Dispatch(NewEvent("click", box), func(n *html.Node, ev *Event) error {
		ev.PreventDefault()
		return nil
	}))
	assert.True(t, doc.BoolProperty(box, "checked"), "prevented click reverts the toggle")
}

func TestDisabledControlIgnoresClick(t *testing.T) {
	doc, root := mount(t, `<button disabled>no</button>`)
	btn, _ := doc.Query(root, "button")

	called := false
	require.NoError(t, doc.Dispatch(NewEvent("click", btn), func(*html.Node, *Event) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}
