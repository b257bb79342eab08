package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// KeyAttr marks elements whose identity must be preserved across renders
// even when siblings are inserted or removed before them.
const KeyAttr = "data-ui-key"

// ParseFragment parses markup in a <body> context.
func ParseFragment(markup string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(markup), context)
}

// Patch reconciles the children of target with markup. Nodes that keep their
// tag and key are updated in place; everything else is replaced.
func (d *Document) Patch(target *html.Node, markup string) error {
	next, err := ParseFragment(markup)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.morphChildren(target, next)
	return nil
}

// SetInnerHTML replaces the children of target without reconciliation.
func (d *Document) SetInnerHTML(target *html.Node, markup string) error {
	next, err := ParseFragment(markup)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := target.FirstChild; c != nil; {
		nx := c.NextSibling
		d.detach(c)
		c = nx
	}
	for _, n := range next {
		target.AppendChild(n)
	}
	return nil
}

func (d *Document) morphChildren(parent *html.Node, next []*html.Node) {
	cur := parent.FirstChild
	for _, n := range next {
		if cur != nil && !sameNode(cur, n) && cur.NextSibling != nil && sameNode(cur.NextSibling, n) {
			// cur was removed from the new markup
			gone := cur
			cur = cur.NextSibling
			d.detach(gone)
		}
		if cur != nil && sameNode(cur, n) {
			d.morphNode(cur, n)
			cur = cur.NextSibling
			continue
		}
		parent.InsertBefore(n, cur)
	}
	for cur != nil {
		nx := cur.NextSibling
		d.detach(cur)
		cur = nx
	}
}

func (d *Document) morphNode(cur, next *html.Node) {
	switch cur.Type {
	case html.TextNode, html.CommentNode:
		cur.Data = next.Data
		return
	case html.ElementNode:
		d.clearReflected(cur, cur.Attr, next.Attr)
		cur.Attr = append([]html.Attribute(nil), next.Attr...)
	}

	var children []*html.Node
	for c := next.FirstChild; c != nil; {
		nx := c.NextSibling
		next.RemoveChild(c)
		children = append(children, c)
		c = nx
	}
	d.morphChildren(cur, children)
}

func sameNode(a, b *html.Node) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type != html.ElementNode {
		return true
	}
	if a.Data != b.Data {
		return false
	}
	ak, _ := attr(a, KeyAttr)
	bk, _ := attr(b, KeyAttr)
	return ak == bk
}
