// Package ui is the small stateful component model the demo components are
// written in.
//
// A Component is a templ.Component with a stable key. Its host element
// carries the key in a data-ui-key attribute, and elements that react to
// events carry data-ui-on-<event>="<action>" attributes. The testbed (and the
// live server) route DOM events to the Handle method of the component that
// owns the element, and components schedule deferred work through the Tasks
// found in the render or handler context.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/dom"
	"github.com/conneroisu/harness/internal/scheduler"
)

// KeyAttr is the attribute carrying a component's key on its host element.
const KeyAttr = dom.KeyAttr

// OnAttrPrefix prefixes the attributes binding DOM events to actions.
const OnAttrPrefix = "data-ui-on-"

// Component is a renderable, addressable piece of UI.
type Component interface {
	templ.Component
	Key() string
}

// Handler is implemented by components that react to events.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Parent is implemented by components that render other components.
type Parent interface {
	Children() []Component
}

// Event is a DOM event as seen by a component.
type Event struct {
	// Type is the DOM event type, such as "click" or "change".
	Type string
	// Action is the value of the data-ui-on-<type> attribute that matched.
	Action string
	// Key is the key for keyboard events.
	Key string
	// Value and Checked mirror the live properties of the bound element.
	Value   string
	Checked bool
	Detail  map[string]string

	preventDefault func()
}

// PreventDefault cancels the browser default action of the event.
func (e Event) PreventDefault() {
	if e.preventDefault != nil {
		e.preventDefault()
	}
}

// Find returns the component with key under root, including root itself.
func Find(root Component, key string) Component {
	if root == nil {
		return nil
	}
	if root.Key() == key {
		return root
	}
	p, ok := root.(Parent)
	if !ok {
		return nil
	}
	for _, child := range p.Children() {
		if c := Find(child, key); c != nil {
			return c
		}
	}
	return nil
}

// On renders the attribute that binds a DOM event to an action.
func On(event, action string) string {
	return fmt.Sprintf(` %s%s="%s"`, OnAttrPrefix, event, templ.EscapeString(action))
}

// Host renders the key attribute for a component's host element.
func Host(c Component) string {
	return fmt.Sprintf(` %s="%s"`, KeyAttr, templ.EscapeString(c.Key()))
}

// Attr renders a single attribute, or nothing when cond is false.
func Attr(name, value string, cond bool) string {
	if !cond {
		return ""
	}
	if value == "" {
		return " " + name
	}
	return fmt.Sprintf(` %s="%s"`, name, templ.EscapeString(value))
}

// Tasks schedules deferred work on behalf of a component.
type Tasks interface {
	// Schedule runs fn after d inside the scope's change tracking: the
	// scope is not stable until fn has run.
	Schedule(d time.Duration, fn func()) scheduler.Timer
	// ScheduleOutside runs fn after d without the scope tracking it.
	ScheduleOutside(d time.Duration, fn func()) scheduler.Timer
	Now() time.Time
}

type tasksKey struct{}

// WithTasks attaches t to ctx.
func WithTasks(ctx context.Context, t Tasks) context.Context {
	return context.WithValue(ctx, tasksKey{}, t)
}

// TasksFrom returns the Tasks attached to ctx, or nil.
func TasksFrom(ctx context.Context) Tasks {
	t, _ := ctx.Value(tasksKey{}).(Tasks)
	return t
}
