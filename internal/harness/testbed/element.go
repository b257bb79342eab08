package testbed

import (
	"context"

	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/dom"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
)

// UnitTestElement is the TestElement for a node of an in-process document.
// Actions dispatch synthetic DOM events through the scope and then
// stabilize; queries stabilize and then read the document.
type UnitTestElement struct {
	scope     Scope
	doc       *dom.Document
	node      *html.Node
	stabilize func(ctx context.Context) error
}

var _ harness.TestElement = (*UnitTestElement)(nil)

func (e *UnitTestElement) checkScope() error {
	if e.scope.IsDestroyed() {
		return errors.NewDisposedScopeError(e.scope.Name())
	}
	return nil
}

func (e *UnitTestElement) dispatch(ctx context.Context, typ string, configure func(*dom.Event)) error {
	ev := dom.NewEvent(typ, e.node)
	if configure != nil {
		configure(ev)
	}
	return e.scope.Dispatch(ctx, ev)
}

// act runs the event sequence of an action and then stabilizes.
func (e *UnitTestElement) act(ctx context.Context, fn func() error) error {
	if err := e.checkScope(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return e.stabilize(ctx)
}

// Blur implements harness.TestElement.
func (e *UnitTestElement) Blur(ctx context.Context) error {
	return e.act(ctx, func() error {
		e.doc.Blur(e.node)
		return e.dispatch(ctx, "blur", nil)
	})
}

// Clear empties the value of an input and fires an input event.
func (e *UnitTestElement) Clear(ctx context.Context) error {
	return e.act(ctx, func() error {
		e.doc.Focus(e.node)
		e.doc.SetProperty(e.node, "value", "")
		return e.dispatch(ctx, "input", nil)
	})
}

// Click fires mousedown, mouseup and click on the element.
func (e *UnitTestElement) Click(ctx context.Context) error {
	return e.act(ctx, func() error {
		for _, typ := range []string{"mousedown", "mouseup", "click"} {
			if err := e.dispatch(ctx, typ, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Focus implements harness.TestElement.
func (e *UnitTestElement) Focus(ctx context.Context) error {
	return e.act(ctx, func() error {
		e.doc.Focus(e.node)
		return e.dispatch(ctx, "focus", nil)
	})
}

// Hover implements harness.TestElement.
func (e *UnitTestElement) Hover(ctx context.Context) error {
	return e.act(ctx, func() error { return e.dispatch(ctx, "mouseenter", nil) })
}

// MouseAway implements harness.TestElement.
func (e *UnitTestElement) MouseAway(ctx context.Context) error {
	return e.act(ctx, func() error { return e.dispatch(ctx, "mouseleave", nil) })
}

// SendKeys focuses the element and types keys one at a time. Each key gets
// keydown, keypress and keyup; printable characters are appended to the
// value with an input event after each.
func (e *UnitTestElement) SendKeys(ctx context.Context, keys ...string) error {
	return e.act(ctx, func() error {
		e.doc.Focus(e.node)
		for _, s := range keys {
			for _, r := range s {
				if err := e.typeKey(ctx, r); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (e *UnitTestElement) typeKey(ctx context.Context, r rune) error {
	name, special := harness.KeyName(r)
	withKey := func(ev *dom.Event) { ev.Key = name }

	if err := e.dispatch(ctx, "keydown", withKey); err != nil {
		return err
	}
	if !special {
		if err := e.dispatch(ctx, "keypress", withKey); err != nil {
			return err
		}
		value := e.doc.StringProperty(e.node, "value")
		e.doc.SetProperty(e.node, "value", value+string(r))
		if err := e.dispatch(ctx, "input", nil); err != nil {
			return err
		}
	}
	return e.dispatch(ctx, "keyup", withKey)
}

// SetInputValue sets the value property without firing any event.
func (e *UnitTestElement) SetInputValue(ctx context.Context, value string) error {
	return e.act(ctx, func() error {
		e.doc.SetProperty(e.node, "value", value)
		return nil
	})
}

// DispatchEvent fires a custom event carrying data.
func (e *UnitTestElement) DispatchEvent(ctx context.Context, name string, data map[string]string) error {
	return e.act(ctx, func() error {
		return e.dispatch(ctx, name, func(ev *dom.Event) { ev.Data = data })
	})
}

func (e *UnitTestElement) read(ctx context.Context) error {
	if err := e.checkScope(); err != nil {
		return err
	}
	return e.stabilize(ctx)
}

// Text implements harness.TestElement.
func (e *UnitTestElement) Text(ctx context.Context) (string, error) {
	if err := e.read(ctx); err != nil {
		return "", err
	}
	return e.doc.Text(e.node), nil
}

// GetAttribute implements harness.TestElement.
func (e *UnitTestElement) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.read(ctx); err != nil {
		return "", false, err
	}
	v, ok := e.doc.Attr(e.node, name)
	return v, ok, nil
}

// HasClass implements harness.TestElement.
func (e *UnitTestElement) HasClass(ctx context.Context, name string) (bool, error) {
	if err := e.read(ctx); err != nil {
		return false, err
	}
	return e.doc.HasClass(e.node, name), nil
}

// GetCssValue returns a declaration of the element's inline style. There is
// no stylesheet cascade in-process.
func (e *UnitTestElement) GetCssValue(ctx context.Context, property string) (string, error) {
	if err := e.read(ctx); err != nil {
		return "", err
	}
	return e.doc.Style(e.node, property), nil
}

// GetProperty implements harness.TestElement.
func (e *UnitTestElement) GetProperty(ctx context.Context, name string) (any, error) {
	if err := e.read(ctx); err != nil {
		return nil, err
	}
	return e.doc.Property(e.node, name), nil
}

// MatchesSelector implements harness.TestElement.
func (e *UnitTestElement) MatchesSelector(ctx context.Context, selector string) (bool, error) {
	if err := e.read(ctx); err != nil {
		return false, err
	}
	return e.doc.Matches(e.node, selector)
}

// IsFocused implements harness.TestElement.
func (e *UnitTestElement) IsFocused(ctx context.Context) (bool, error) {
	if err := e.read(ctx); err != nil {
		return false, err
	}
	return e.doc.IsFocused(e.node), nil
}

func (e *UnitTestElement) String() string {
	return "UnitTestElement<" + e.node.Data + ">"
}
