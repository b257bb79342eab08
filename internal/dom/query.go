package dom

import (
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/conneroisu/harness/internal/errors"
)

var selectorCache sync.Map // string -> cascadia.SelectorGroup

func compile(selector string) (cascadia.SelectorGroup, error) {
	if cached, ok := selectorCache.Load(selector); ok {
		return cached.(cascadia.SelectorGroup), nil
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, errors.NewInvalidSelectorError(selector, err)
	}
	selectorCache.Store(selector, group)
	return group, nil
}

// QueryAll returns the descendants of root matching selector in document
// order. root itself is never included.
func (d *Document) QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	group, err := compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cascadia.QueryAll(root, group), nil
}

// Query returns the first descendant of root matching selector, or nil.
func (d *Document) Query(root *html.Node, selector string) (*html.Node, error) {
	group, err := compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cascadia.Query(root, group), nil
}

// Matches reports whether n matches selector.
func (d *Document) Matches(n *html.Node, selector string) (bool, error) {
	group, err := compile(selector)
	if err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return group.Match(n), nil
}
