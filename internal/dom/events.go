package dom

import (
	"golang.org/x/net/html"
)

// Event is a DOM event travelling from its target up to the document.
type Event struct {
	Type   string
	Target *html.Node
	// CurrentTarget is the node whose listener is running.
	CurrentTarget *html.Node
	// Key is set for keyboard events.
	Key string
	// Data carries event-specific payload, such as custom event detail.
	Data map[string]string

	defaultPrevented bool
	stopped          bool
}

// NewEvent returns an event of type typ aimed at target.
func NewEvent(typ string, target *html.Node) *Event {
	return &Event{Type: typ, Target: target}
}

// PreventDefault cancels the event's default action.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener is invoked for each node on the propagation path.
type Listener func(node *html.Node, ev *Event) error

// Dispatch sends ev along the path from its target to the root, bubbling
// through every element ancestor. Clicks on checkbox inputs toggle the
// checked state before listeners run and revert it if a listener prevents
// the default action; otherwise input and change events follow. Clicks on
// disabled form controls are dropped.
func (d *Document) Dispatch(ev *Event, listener Listener) error {
	target := ev.Target
	if ev.Type == "click" && d.IsDisabled(target) {
		return nil
	}

	var restore func()
	if ev.Type == "click" && d.isCheckbox(target) {
		restore = d.activateCheckbox(target)
	}

	if err := d.propagate(ev, listener); err != nil {
		return err
	}

	if restore == nil {
		return nil
	}
	if ev.DefaultPrevented() {
		restore()
		return nil
	}
	for _, typ := range []string{"input", "change"} {
		if err := d.propagate(NewEvent(typ, target), listener); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) propagate(ev *Event, listener Listener) error {
	d.mu.RLock()
	var path []*html.Node
	for n := ev.Target; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			path = append(path, n)
		}
	}
	d.mu.RUnlock()

	for _, n := range path {
		ev.CurrentTarget = n
		if err := listener(n, ev); err != nil {
			return err
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return nil
}

func (d *Document) isCheckbox(n *html.Node) bool {
	if n.Data != "input" {
		return false
	}
	t, _ := d.Attr(n, "type")
	return t == "checkbox"
}

// activateCheckbox applies the pre-activation toggle and returns the undo.
func (d *Document) activateCheckbox(n *html.Node) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	checked, _ := d.property(n, "checked").(bool)
	indeterminate, _ := d.property(n, "indeterminate").(bool)
	d.setProperty(n, "checked", !checked)
	d.setProperty(n, "indeterminate", false)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.setProperty(n, "checked", checked)
		d.setProperty(n, "indeterminate", indeterminate)
	}
}
