package registry

import (
	"github.com/conneroisu/harness/internal/components/button"
	"github.com/conneroisu/harness/internal/components/buttontoggle"
	"github.com/conneroisu/harness/internal/components/card"
	"github.com/conneroisu/harness/internal/components/checkbox"
	"github.com/conneroisu/harness/internal/components/delayed"
	"github.com/conneroisu/harness/internal/components/slider"
	"github.com/conneroisu/harness/internal/ui"
)

// Builtin returns a registry holding the demo fixtures shipped with the
// components.
func Builtin() *FixtureRegistry {
	r := NewFixtureRegistry()
	for _, f := range []*FixtureInfo{
		{
			Name:        "sliders",
			Description: "three sliders: disabled, labelled and a vertical 200-250 range",
			Harnesses:   []string{slider.HarnessType.Name},
			New:         func() ui.Component { return slider.Demo() },
		},
		{
			Name:        "checkboxes",
			Description: "indeterminate checkboxes with default, check and no-op click actions",
			Harnesses:   []string{checkbox.HarnessType.Name},
			New:         func() ui.Component { return checkbox.Demo() },
		},
		{
			Name:        "cards",
			Description: "a card with header, content, actions and footer regions",
			Harnesses:   []string{card.HarnessType.Name, button.HarnessType.Name},
			New:         func() ui.Component { return card.Demo() },
		},
		{
			Name:        "buttons",
			Description: "one button per variant and a disabled button",
			Harnesses:   []string{button.HarnessType.Name},
			New:         func() ui.Component { return button.Demo() },
		},
		{
			Name:        "toggles",
			Description: "single and multiple selection button-toggle groups",
			Harnesses:   []string{buttontoggle.GroupType.Name, buttontoggle.ToggleType.Name},
			New:         func() ui.Component { return buttontoggle.Demo() },
		},
		{
			Name:        "delayed",
			Description: "a task that finishes on a timer outside the fixture",
			Harnesses:   []string{delayed.HarnessType.Name},
			New:         func() ui.Component { return delayed.Demo() },
		},
	} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}
