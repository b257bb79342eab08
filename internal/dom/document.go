// Package dom is the in-process document the testbed renders components into.
//
// It keeps an x/net/html tree plus the state a browser holds outside the
// markup: live form properties, the focused element and event dispatch.
// Render passes reconcile freshly rendered markup into the existing tree so
// node identity survives re-renders. All Document methods are safe for
// concurrent use.
package dom

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document with browser-side state.
type Document struct {
	mu     sync.RWMutex
	root   *html.Node
	body   *html.Node
	props  map[*html.Node]map[string]any
	active *html.Node
}

// NewDocument returns an empty document with a <head> and <body>.
func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := newElement("html")
	head := newElement("head")
	body := newElement("body")
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)

	return &Document{
		root:  root,
		body:  body,
		props: make(map[*html.Node]map[string]any),
	}
}

func newElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// CreateElement appends a new element to parent and returns it.
func (d *Document) CreateElement(parent *html.Node, tag string, attrs ...html.Attribute) *html.Node {
	n := newElement(tag, attrs...)
	d.mu.Lock()
	parent.AppendChild(n)
	d.mu.Unlock()
	return n
}

// Remove detaches n from its parent.
func (d *Document) Remove(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detach(n)
}

func (d *Document) detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	if d.active != nil && (d.active == n || isDescendant(d.active, n)) {
		d.active = nil
	}
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return n == d.root || isDescendant(n, d.root)
}

func isDescendant(n, ancestor *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// InnerHTML renders the children of n.
func (d *Document) InnerHTML(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML renders n itself.
func (d *Document) OuterHTML(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// Text returns the trimmed text content of n.
func (d *Document) Text(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.TrimSpace(textContent(n))
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return text.String()
}

// TagName returns the lower-case tag name of an element.
func (d *Document) TagName(n *html.Node) string {
	return n.Data
}

// Attr returns the value of the named attribute.
func (d *Document) Attr(n *html.Node, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return attr(n, name)
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, adding it when missing.
func (d *Document) SetAttr(n *html.Node, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(n *html.Node, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != name {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// HasClass reports whether n carries the class.
func (d *Document) HasClass(n *html.Node, class string) bool {
	v, ok := d.Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Style returns an inline style declaration value. There is no cascade:
// only the element's own style attribute is consulted.
func (d *Document) Style(n *html.Node, property string) string {
	v, ok := d.Attr(n, "style")
	if !ok {
		return ""
	}
	for _, decl := range strings.Split(v, ";") {
		name, value, found := strings.Cut(decl, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Parent returns the nearest element ancestor of n, or nil.
func (d *Document) Parent(n *html.Node) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Closest returns the nearest element, starting at n, that has the named
// attribute.
func (d *Document) Closest(n *html.Node, attrName string) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(p, attrName); ok {
			return p
		}
	}
	return nil
}

// FirstElementChild returns the first child of n that is an element, or nil.
func (d *Document) FirstElementChild(n *html.Node) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
