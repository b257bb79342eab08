package ui

import (
	"context"

	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/dom"
)

// Route delivers ev, currently at node, to the component bound to node.
//
// Nodes without a data-ui-on-<type> attribute are ignored, as are bindings
// whose owning component cannot be found under root or does not implement
// Handler.
func Route(ctx context.Context, doc *dom.Document, root Component, node *html.Node, ev *dom.Event) error {
	action, ok := doc.Attr(node, OnAttrPrefix+ev.Type)
	if !ok {
		return nil
	}
	host := doc.Closest(node, KeyAttr)
	if host == nil {
		return nil
	}
	key, _ := doc.Attr(host, KeyAttr)
	h, ok := Find(root, key).(Handler)
	if !ok {
		return nil
	}

	return h.Handle(ctx, Event{
		Type:           ev.Type,
		Action:         action,
		Key:            ev.Key,
		Value:          doc.StringProperty(node, "value"),
		Checked:        doc.BoolProperty(node, "checked"),
		Detail:         ev.Data,
		preventDefault: ev.PreventDefault,
	})
}
