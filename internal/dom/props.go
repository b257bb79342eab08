package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Live properties that shadow an attribute once set, the way a browser's
// dirty value flag does.
var reflected = map[string]string{
	"value":         "value",
	"checked":       "checked",
	"indeterminate": "indeterminate",
	"disabled":      "disabled",
}

var booleanProps = map[string]bool{
	"checked":       true,
	"indeterminate": true,
	"disabled":      true,
	"hidden":        true,
	"required":      true,
	"readonly":      true,
}

// Property returns the live value of a DOM property.
//
// A value set through SetProperty wins until a render pass changes the
// backing attribute. Otherwise the value is derived from the markup: boolean
// properties report attribute presence, the rest return the attribute string,
// and a few structural properties (tagName, textContent, className, id) are
// computed. Unknown properties return nil.
func (d *Document) Property(n *html.Node, name string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.property(n, name)
}

func (d *Document) property(n *html.Node, name string) any {
	if set, ok := d.props[n][name]; ok {
		return set
	}
	switch name {
	case "tagName", "nodeName":
		return strings.ToUpper(n.Data)
	case "textContent", "innerText":
		return textContent(n)
	case "className":
		v, _ := attr(n, "class")
		return v
	case "id":
		v, _ := attr(n, "id")
		return v
	case "value":
		if n.Data == "textarea" {
			return textContent(n)
		}
		if v, ok := attr(n, "value"); ok {
			return v
		}
		if n.Data == "input" {
			return ""
		}
		return nil
	}
	if booleanProps[name] {
		_, ok := attr(n, strings.ToLower(name))
		return ok
	}
	if v, ok := attr(n, name); ok {
		return v
	}
	return nil
}

// BoolProperty returns a boolean property, false when unset or not boolean.
func (d *Document) BoolProperty(n *html.Node, name string) bool {
	b, _ := d.Property(n, name).(bool)
	return b
}

// StringProperty returns a string property, "" when unset or not a string.
func (d *Document) StringProperty(n *html.Node, name string) string {
	s, _ := d.Property(n, name).(string)
	return s
}

// SetProperty assigns a live property on n.
func (d *Document) SetProperty(n *html.Node, name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setProperty(n, name, value)
}

func (d *Document) setProperty(n *html.Node, name string, value any) {
	props, ok := d.props[n]
	if !ok {
		props = make(map[string]any)
		d.props[n] = props
	}
	props[name] = value
}

// clearReflected drops property overrides whose attribute changed between
// old and next.
func (d *Document) clearReflected(n *html.Node, old, next []html.Attribute) {
	props, ok := d.props[n]
	if !ok {
		return
	}
	for prop, attrName := range reflected {
		if _, set := props[prop]; !set {
			continue
		}
		ov, oldOK := attrIn(old, attrName)
		nv, newOK := attrIn(next, attrName)
		if ov != nv || oldOK != newOK {
			delete(props, prop)
		}
	}
	if len(props) == 0 {
		delete(d.props, n)
	}
}

func attrIn(attrs []html.Attribute, name string) (string, bool) {
	for _, a := range attrs {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Focus makes n the active element.
func (d *Document) Focus(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = n
}

// Blur clears focus if n holds it.
func (d *Document) Blur(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == n {
		d.active = nil
	}
}

// ActiveElement returns the focused element, or the body when nothing is.
func (d *Document) ActiveElement() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return d.body
	}
	return d.active
}

// IsFocused reports whether n is the active element.
func (d *Document) IsFocused(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active == n
}

// IsDisabled reports whether n is a disabled form control.
func (d *Document) IsDisabled(n *html.Node) bool {
	switch n.Data {
	case "button", "input", "select", "textarea", "fieldset":
		return d.BoolProperty(n, "disabled")
	}
	return false
}
