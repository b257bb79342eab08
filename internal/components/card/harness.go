package card

import (
	"context"

	"github.com/conneroisu/harness/internal/harness"
)

// Harness drives a Card.
type Harness struct {
	harness.ComponentHarness
}

// HarnessType finds cards by their host class.
var HarnessType = harness.Type[*Harness]{
	Name:         "CardHarness",
	HostSelector: ".ui-card",
	New: func(lf harness.LocatorFactory) *Harness {
		return &Harness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// Filters narrows card searches.
type Filters struct {
	harness.BaseFilters
	Text     harness.StringMatch
	Title    harness.StringMatch
	Subtitle harness.StringMatch
}

// With returns a predicate for cards matching f.
func With(f Filters) *harness.Predicate[*Harness] {
	return harness.NewPredicate(HarnessType, f.BaseFilters).
		AddOption("text", f.Text, f.Text.IsSet(), func(ctx context.Context, h *Harness) (bool, error) {
			return harness.StringMatches(ctx, h.GetText, f.Text)
		}).
		AddOption("title", f.Title, f.Title.IsSet(), func(ctx context.Context, h *Harness) (bool, error) {
			return harness.StringMatches(ctx, h.GetTitleText, f.Title)
		}).
		AddOption("subtitle", f.Subtitle, f.Subtitle.IsSet(), func(ctx context.Context, h *Harness) (bool, error) {
			return harness.StringMatches(ctx, h.GetSubtitleText, f.Subtitle)
		})
}

func (h *Harness) optionalText(ctx context.Context, selector string) (string, error) {
	el, err := h.LocatorForOptional(selector)(ctx)
	if err != nil || el == nil {
		return "", err
	}
	return el.Text(ctx)
}

// GetText returns all text in the card.
func (h *Harness) GetText(ctx context.Context) (string, error) { return h.Host().Text(ctx) }

// GetTitleText returns the title, or "" when the card has none.
func (h *Harness) GetTitleText(ctx context.Context) (string, error) {
	return h.optionalText(ctx, ".ui-card-title")
}

// GetSubtitleText returns the subtitle, or "" when the card has none.
func (h *Harness) GetSubtitleText(ctx context.Context) (string, error) {
	return h.optionalText(ctx, ".ui-card-subtitle")
}

// HarnessLoaderForHeader returns a loader scoped to the header region, or
// nil when the card has no header.
func (h *Harness) HarnessLoaderForHeader(ctx context.Context) (harness.HarnessLoader, error) {
	return h.LocatorFactory().HarnessLoaderForOptional(ctx, ".ui-card-header")
}

// HarnessLoaderForContent returns a loader scoped to the content region, or
// nil when the card has none.
func (h *Harness) HarnessLoaderForContent(ctx context.Context) (harness.HarnessLoader, error) {
	return h.LocatorFactory().HarnessLoaderForOptional(ctx, ".ui-card-content")
}

// HarnessLoaderForActions returns a loader scoped to the actions region, or
// nil when the card has none.
func (h *Harness) HarnessLoaderForActions(ctx context.Context) (harness.HarnessLoader, error) {
	return h.LocatorFactory().HarnessLoaderForOptional(ctx, ".ui-card-actions")
}

// HarnessLoaderForFooter returns a loader scoped to the footer region, or
// nil when the card has none.
func (h *Harness) HarnessLoaderForFooter(ctx context.Context) (harness.HarnessLoader, error) {
	return h.LocatorFactory().HarnessLoaderForOptional(ctx, ".ui-card-footer")
}
