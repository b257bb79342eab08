package harness

import (
	"context"
	"fmt"
)

// ComponentHarness is the base that harness types embed. It gives access to
// the host element and to locators scoped to it.
type ComponentHarness struct {
	locatorFactory LocatorFactory
}

// NewComponentHarness returns a base harness bound to lf.
func NewComponentHarness(lf LocatorFactory) ComponentHarness {
	return ComponentHarness{locatorFactory: lf}
}

// Host returns the harness's host element.
func (h ComponentHarness) Host() TestElement {
	return h.locatorFactory.RootElement()
}

// LocatorFactory returns the factory scoped to the host element.
func (h ComponentHarness) LocatorFactory() LocatorFactory {
	return h.locatorFactory
}

// DocumentRootLocatorFactory returns a factory rooted at the document root,
// for content rendered outside the host such as overlays.
func (h ComponentHarness) DocumentRootLocatorFactory() LocatorFactory {
	return h.locatorFactory.DocumentRootLocatorFactory()
}

func (h ComponentHarness) LocatorFor(selectors ...string) func(ctx context.Context) (TestElement, error) {
	return h.locatorFactory.LocatorFor(selectors...)
}

func (h ComponentHarness) LocatorForOptional(selectors ...string) func(ctx context.Context) (TestElement, error) {
	return h.locatorFactory.LocatorForOptional(selectors...)
}

func (h ComponentHarness) LocatorForAll(selectors ...string) func(ctx context.Context) ([]TestElement, error) {
	return h.locatorFactory.LocatorForAll(selectors...)
}

// ForceStabilize renders the scope and waits for it to settle.
func (h ComponentHarness) ForceStabilize(ctx context.Context) error {
	return h.locatorFactory.ForceStabilize(ctx)
}

// WaitForTasksOutsideScope waits for work the scope does not track.
func (h ComponentHarness) WaitForTasksOutsideScope(ctx context.Context) error {
	return h.locatorFactory.WaitForTasksOutsideScope(ctx)
}

// Query selects harnesses of type T. Type and *Predicate implement it.
type Query[T any] interface {
	// Selector is the CSS selector candidate host elements must match.
	Selector() string
	// NewHarness builds a harness for a candidate host.
	NewHarness(lf LocatorFactory) T
	// Evaluate reports whether the harness satisfies the query.
	Evaluate(ctx context.Context, h T) (bool, error)
	String() string
}

// Type describes a harness type: the selector of its host elements and how
// to construct it.
type Type[T any] struct {
	Name         string
	HostSelector string
	New          func(lf LocatorFactory) T
}

func (t Type[T]) Selector() string { return t.HostSelector }

func (t Type[T]) NewHarness(lf LocatorFactory) T { return t.New(lf) }

func (t Type[T]) Evaluate(context.Context, T) (bool, error) { return true, nil }

func (t Type[T]) String() string {
	return fmt.Sprintf("%s with host element matching selector: %q", t.Name, t.HostSelector)
}
