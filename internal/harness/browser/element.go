package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
)

// Element is the TestElement for an element of a browser page. Actions go
// through DevTools input events where the browser has them and through
// script otherwise.
type Element struct {
	el        *rod.Element
	stabilize func(ctx context.Context) error
}

var _ harness.TestElement = (*Element)(nil)

func (e *Element) act(ctx context.Context, fn func(el *rod.Element) error) error {
	if err := fn(e.el.Context(ctx)); err != nil {
		return errors.NewBrowserError("action", err)
	}
	return e.stabilize(ctx)
}

func (e *Element) read(ctx context.Context) (*rod.Element, error) {
	if err := e.stabilize(ctx); err != nil {
		return nil, err
	}
	return e.el.Context(ctx), nil
}

func (e *Element) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	el, err := e.read(ctx)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(js, args...)
	if err != nil {
		return nil, errors.NewBrowserError("query", err)
	}
	return res, nil
}

func (e *Element) Blur(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error { return el.Blur() })
}

// Clear empties the value and fires an input event.
func (e *Element) Clear(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error {
		_, err := el.Eval(`() => { this.value = ""; this.dispatchEvent(new Event("input", {bubbles: true})); }`)
		return err
	})
}

func (e *Element) Click(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error { return el.Click(proto.InputMouseButtonLeft, 1) })
}

func (e *Element) Focus(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error { return el.Focus() })
}

func (e *Element) Hover(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error { return el.Hover() })
}

func (e *Element) MouseAway(ctx context.Context) error {
	return e.act(ctx, func(el *rod.Element) error {
		_, err := el.Eval(`() => this.dispatchEvent(new MouseEvent("mouseleave"))`)
		return err
	})
}

// SendKeys types through the keyboard. Characters without a key on a US
// layout are inserted as text.
func (e *Element) SendKeys(ctx context.Context, keys ...string) error {
	return e.act(ctx, func(el *rod.Element) error {
		for _, s := range keys {
			for _, r := range s {
				if _, special := harness.KeyName(r); special || r < 0x80 {
					if err := el.Type(input.Key(r)); err != nil {
						return err
					}
					continue
				}
				if err := el.Input(string(r)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SetInputValue sets the value property without firing any event.
func (e *Element) SetInputValue(ctx context.Context, value string) error {
	return e.act(ctx, func(el *rod.Element) error {
		_, err := el.Eval(`(v) => { this.value = v; }`, value)
		return err
	})
}

// DispatchEvent fires a bubbling CustomEvent with data as its detail.
func (e *Element) DispatchEvent(ctx context.Context, name string, data map[string]string) error {
	return e.act(ctx, func(el *rod.Element) error {
		_, err := el.Eval(`(name, detail) => this.dispatchEvent(new CustomEvent(name, {bubbles: true, detail: detail}))`, name, data)
		return err
	})
}

func (e *Element) Text(ctx context.Context) (string, error) {
	el, err := e.read(ctx)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", errors.NewBrowserError("query", err)
	}
	return text, nil
}

func (e *Element) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	el, err := e.read(ctx)
	if err != nil {
		return "", false, err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", false, errors.NewBrowserError("query", err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) HasClass(ctx context.Context, name string) (bool, error) {
	res, err := e.eval(ctx, `(name) => this.classList.contains(name)`, name)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// GetCssValue returns the computed style of property.
func (e *Element) GetCssValue(ctx context.Context, property string) (string, error) {
	res, err := e.eval(ctx, `(p) => getComputedStyle(this).getPropertyValue(p)`, property)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// GetProperty returns the JSON value of a DOM property. Numbers come back as
// float64.
func (e *Element) GetProperty(ctx context.Context, name string) (any, error) {
	el, err := e.read(ctx)
	if err != nil {
		return nil, err
	}
	v, err := el.Property(name)
	if err != nil {
		return nil, errors.NewBrowserError("query", err)
	}
	return v.Val(), nil
}

func (e *Element) MatchesSelector(ctx context.Context, selector string) (bool, error) {
	el, err := e.read(ctx)
	if err != nil {
		return false, err
	}
	ok, err := el.Matches(selector)
	if err != nil {
		return false, errors.NewBrowserError("query", err)
	}
	return ok, nil
}

func (e *Element) IsFocused(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, `() => document.activeElement === this`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) String() string {
	return "BrowserElement<" + e.el.String() + ">"
}
