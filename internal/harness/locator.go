package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/conneroisu/harness/internal/errors"
)

// HarnessLoader resolves harnesses under a root element.
//
// The generic functions GetHarness, GetAllHarnesses and GetHarnessOrNil take
// a loader; every loader is an Environment.
type HarnessLoader interface {
	// GetChildLoader returns a loader rooted at the first element matching
	// selector, failing with ErrNoMatch when there is none.
	GetChildLoader(ctx context.Context, selector string) (HarnessLoader, error)
	// GetAllChildLoaders returns a loader for each element matching selector.
	GetAllChildLoaders(ctx context.Context, selector string) ([]HarnessLoader, error)

	candidates(ctx context.Context, selector string) ([]candidate, error)
}

// LocatorFactory creates locators scoped to a harness host. A locator
// re-queries the DOM on every call, so harnesses never hold stale elements.
type LocatorFactory interface {
	HarnessLoader

	RootElement() TestElement
	DocumentRootLocatorFactory() LocatorFactory
	RootHarnessLoader() HarnessLoader

	// LocatorFor returns a locator for the first element, in document order,
	// matching any of selectors. The locator fails with ErrNoMatch when none
	// does.
	LocatorFor(selectors ...string) func(ctx context.Context) (TestElement, error)
	// LocatorForOptional is LocatorFor returning nil instead of failing.
	LocatorForOptional(selectors ...string) func(ctx context.Context) (TestElement, error)
	// LocatorForAll returns a locator for every element matching any of
	// selectors.
	LocatorForAll(selectors ...string) func(ctx context.Context) ([]TestElement, error)

	HarnessLoaderFor(ctx context.Context, selector string) (HarnessLoader, error)
	HarnessLoaderForOptional(ctx context.Context, selector string) (HarnessLoader, error)
	HarnessLoaderForAll(ctx context.Context, selector string) ([]HarnessLoader, error)

	ForceStabilize(ctx context.Context) error
	WaitForTasksOutsideScope(ctx context.Context) error
	Parallel(ctx context.Context, fns ...func(ctx context.Context) error) error
	Manual(ctx context.Context, fn func(ctx context.Context) error) error
}

type candidate struct {
	factory LocatorFactory
	element TestElement
}

func describeSelectors(selectors []string) string {
	parts := make([]string, len(selectors))
	for i, s := range selectors {
		parts[i] = fmt.Sprintf("(TestElement for element matching selector: %q)", s)
	}
	return strings.Join(parts, ", ")
}

// LocatorFor implements LocatorFactory.
func (e *Environment[E]) LocatorFor(selectors ...string) func(ctx context.Context) (TestElement, error) {
	return func(ctx context.Context) (TestElement, error) {
		els, err := e.elements(ctx, strings.Join(selectors, ", "))
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return nil, errors.NewNoMatchError(describeSelectors(selectors))
		}
		return els[0], nil
	}
}

// LocatorForOptional implements LocatorFactory.
func (e *Environment[E]) LocatorForOptional(selectors ...string) func(ctx context.Context) (TestElement, error) {
	return func(ctx context.Context) (TestElement, error) {
		els, err := e.elements(ctx, strings.Join(selectors, ", "))
		if err != nil || len(els) == 0 {
			return nil, err
		}
		return els[0], nil
	}
}

// LocatorForAll implements LocatorFactory.
func (e *Environment[E]) LocatorForAll(selectors ...string) func(ctx context.Context) ([]TestElement, error) {
	return func(ctx context.Context) ([]TestElement, error) {
		return e.elements(ctx, strings.Join(selectors, ", "))
	}
}

// HarnessLoaderFor implements LocatorFactory.
func (e *Environment[E]) HarnessLoaderFor(ctx context.Context, selector string) (HarnessLoader, error) {
	return e.GetChildLoader(ctx, selector)
}

// HarnessLoaderForOptional implements LocatorFactory.
func (e *Environment[E]) HarnessLoaderForOptional(ctx context.Context, selector string) (HarnessLoader, error) {
	loaders, err := e.loaders(ctx, selector)
	if err != nil || len(loaders) == 0 {
		return nil, err
	}
	return loaders[0], nil
}

// HarnessLoaderForAll implements LocatorFactory.
func (e *Environment[E]) HarnessLoaderForAll(ctx context.Context, selector string) ([]HarnessLoader, error) {
	return e.loaders(ctx, selector)
}

// GetChildLoader implements HarnessLoader.
func (e *Environment[E]) GetChildLoader(ctx context.Context, selector string) (HarnessLoader, error) {
	loaders, err := e.loaders(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(loaders) == 0 {
		return nil, errors.NewNoMatchError(describeSelectors([]string{selector}))
	}
	return loaders[0], nil
}

// GetAllChildLoaders implements HarnessLoader.
func (e *Environment[E]) GetAllChildLoaders(ctx context.Context, selector string) ([]HarnessLoader, error) {
	return e.loaders(ctx, selector)
}

// GetHarness returns the first harness, in document order, matching any of
// queries. It fails with ErrNoMatch when there is none.
func GetHarness[T any](ctx context.Context, loader HarnessLoader, queries ...Query[T]) (T, error) {
	all, err := resolve(ctx, loader, queries, true)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(all) == 0 {
		var zero T
		return zero, errors.NewNoMatchError(describeQueries(queries))
	}
	return all[0], nil
}

// GetHarnessOrNil is GetHarness returning the zero value of T, nil for
// pointer harnesses, instead of failing when nothing matches.
func GetHarnessOrNil[T any](ctx context.Context, loader HarnessLoader, queries ...Query[T]) (T, error) {
	var zero T
	all, err := resolve(ctx, loader, queries, true)
	if err != nil || len(all) == 0 {
		return zero, err
	}
	return all[0], nil
}

// GetAllHarnesses returns every harness matching any of queries in document
// order. Finding none is not an error.
func GetAllHarnesses[T any](ctx context.Context, loader HarnessLoader, queries ...Query[T]) ([]T, error) {
	return resolve(ctx, loader, queries, false)
}

// LocatorForHarness returns a locator for the first harness matching any of
// queries under the factory's root.
func LocatorForHarness[T any](lf LocatorFactory, queries ...Query[T]) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return GetHarness(ctx, lf, queries...)
	}
}

// LocatorForHarnessOptional is LocatorForHarness returning the zero value of
// T when nothing matches.
func LocatorForHarnessOptional[T any](lf LocatorFactory, queries ...Query[T]) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return GetHarnessOrNil(ctx, lf, queries...)
	}
}

// LocatorForAllHarnesses returns a locator for every harness matching any of
// queries.
func LocatorForAllHarnesses[T any](lf LocatorFactory, queries ...Query[T]) func(ctx context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		return GetAllHarnesses(ctx, lf, queries...)
	}
}

func describeQueries[T any](queries []Query[T]) string {
	parts := make([]string, len(queries))
	for i, q := range queries {
		parts[i] = "(" + q.String() + ")"
	}
	return strings.Join(parts, ", ")
}

// resolve finds the candidates for the union of the queries' selectors and,
// for each one in document order, keeps the harness built by the first query
// whose selector and predicate it satisfies.
func resolve[T any](ctx context.Context, loader HarnessLoader, queries []Query[T], firstOnly bool) ([]T, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	selectors := make([]string, len(queries))
	for i, q := range queries {
		selectors[i] = q.Selector()
	}

	cands, err := loader.candidates(ctx, strings.Join(selectors, ", "))
	if err != nil {
		return nil, err
	}

	var out []T
	for _, c := range cands {
		for i, q := range queries {
			if len(queries) > 1 {
				ok, err := c.element.MatchesSelector(ctx, selectors[i])
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			h := q.NewHarness(c.factory)
			ok, err := q.Evaluate(ctx, h)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, h)
				break
			}
		}
		if firstOnly && len(out) > 0 {
			break
		}
	}
	return out, nil
}
