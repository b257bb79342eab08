package harness

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// BaseFilters are the filters every harness predicate supports. Empty
// fields are not applied.
type BaseFilters struct {
	// Selector the host element must match in addition to the host selector.
	Selector string
	// Ancestor is a selector that some ancestor of the host must match.
	Ancestor string
}

type option[T any] struct {
	description string
	match       func(ctx context.Context, h T) (bool, error)
}

// Predicate filters harnesses of a Type by conjunctive options. Options are
// evaluated in the order they were added and stop at the first failure.
type Predicate[T any] struct {
	typ      Type[T]
	ancestor string
	options  []option[T]
}

// NewPredicate returns a predicate for t applying the base filters.
func NewPredicate[T any](t Type[T], base BaseFilters) *Predicate[T] {
	p := &Predicate[T]{typ: t, ancestor: base.Ancestor}
	if base.Selector != "" {
		sel := base.Selector
		p.options = append(p.options, option[T]{
			description: fmt.Sprintf("host matches %q", sel),
			match: func(ctx context.Context, h T) (bool, error) {
				host, ok := any(h).(interface{ Host() TestElement })
				if !ok {
					return false, nil
				}
				return host.Host().MatchesSelector(ctx, sel)
			},
		})
	}
	return p
}

// AddOption adds a named option. When set is false the option is skipped,
// so filters left unset match every harness.
func (p *Predicate[T]) AddOption(name string, value any, set bool, match func(ctx context.Context, h T) (bool, error)) *Predicate[T] {
	if !set {
		return p
	}
	p.options = append(p.options, option[T]{
		description: fmt.Sprintf("%s = %s", name, describeValue(value)),
		match:       match,
	})
	return p
}

// Add adds an unnamed condition that is always applied.
func (p *Predicate[T]) Add(description string, match func(ctx context.Context, h T) (bool, error)) *Predicate[T] {
	p.options = append(p.options, option[T]{description: description, match: match})
	return p
}

// Selector implements Query. An ancestor filter is folded into the selector
// as every ancestor/host pair of the two comma-separated lists.
func (p *Predicate[T]) Selector() string {
	if p.ancestor == "" {
		return p.typ.HostSelector
	}
	ancestors := strings.Split(p.ancestor, ",")
	hosts := strings.Split(p.typ.HostSelector, ",")
	parts := make([]string, 0, len(ancestors)*len(hosts))
	for _, anc := range ancestors {
		for _, host := range hosts {
			parts = append(parts, strings.TrimSpace(anc)+" "+strings.TrimSpace(host))
		}
	}
	return strings.Join(parts, ", ")
}

// NewHarness implements Query.
func (p *Predicate[T]) NewHarness(lf LocatorFactory) T { return p.typ.New(lf) }

// Evaluate implements Query.
func (p *Predicate[T]) Evaluate(ctx context.Context, h T) (bool, error) {
	for _, opt := range p.options {
		ok, err := opt.match(ctx, h)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Filter returns the harnesses satisfying the predicate, keeping order.
func (p *Predicate[T]) Filter(ctx context.Context, harnesses []T) ([]T, error) {
	var out []T
	for _, h := range harnesses {
		ok, err := p.Evaluate(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (p *Predicate[T]) String() string {
	desc := fmt.Sprintf("%s with host element matching selector: %q", p.typ.Name, p.Selector())
	if len(p.options) == 0 {
		return desc
	}
	parts := make([]string, len(p.options))
	for i, opt := range p.options {
		parts[i] = opt.description
	}
	return desc + " satisfying the constraints: " + strings.Join(parts, ", ")
}

func describeValue(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case StringMatch:
		return v.String()
	case *bool:
		if v == nil {
			return "undefined"
		}
		return fmt.Sprint(*v)
	default:
		return fmt.Sprint(v)
	}
}

// StringMatch is an optional expectation for a string: an exact literal, a
// regular expression, or, as the zero value, anything.
type StringMatch struct {
	literal *string
	pattern *regexp.Regexp
}

// Exactly matches s and nothing else.
func Exactly(s string) StringMatch { return StringMatch{literal: &s} }

// Pattern matches strings the regular expression expr finds a match in. It
// panics if expr does not compile, like regexp.MustCompile.
func Pattern(expr string) StringMatch {
	return StringMatch{pattern: regexp.MustCompile(expr)}
}

// Matching matches strings re finds a match in.
func Matching(re *regexp.Regexp) StringMatch { return StringMatch{pattern: re} }

// IsSet reports whether the match constrains anything.
func (m StringMatch) IsSet() bool { return m.literal != nil || m.pattern != nil }

// Matches reports whether s satisfies the match.
func (m StringMatch) Matches(s string) bool {
	switch {
	case m.literal != nil:
		return s == *m.literal
	case m.pattern != nil:
		return m.pattern.MatchString(s)
	default:
		return true
	}
}

func (m StringMatch) String() string {
	switch {
	case m.literal != nil:
		return fmt.Sprintf("%q", *m.literal)
	case m.pattern != nil:
		return "/" + m.pattern.String() + "/"
	default:
		return "undefined"
	}
}

// StringMatches resolves actual and compares it with expected. An unset
// expectation matches without calling actual.
func StringMatches(ctx context.Context, actual func(ctx context.Context) (string, error), expected StringMatch) (bool, error) {
	if !expected.IsSet() {
		return true, nil
	}
	v, err := actual(ctx)
	if err != nil {
		return false, err
	}
	return expected.Matches(v), nil
}
