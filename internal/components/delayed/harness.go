package delayed

import (
	"context"

	"github.com/conneroisu/harness/internal/harness"
)

// Harness drives a Task.
type Harness struct {
	harness.ComponentHarness
}

// HarnessType finds delayed tasks by their host class.
var HarnessType = harness.Type[*Harness]{
	Name:         "DelayedHarness",
	HostSelector: ".ui-delayed",
	New: func(lf harness.LocatorFactory) *Harness {
		return &Harness{ComponentHarness: harness.NewComponentHarness(lf)}
	},
}

// Click starts the task.
func (h *Harness) Click(ctx context.Context) error {
	b, err := h.LocatorFor(".ui-delayed-start")(ctx)
	if err != nil {
		return err
	}
	return b.Click(ctx)
}

// IsDone reports whether the task has finished right now, without waiting.
func (h *Harness) IsDone(ctx context.Context) (bool, error) {
	return h.Host().HasClass(ctx, "done")
}

// WaitDone waits for work outside the fixture to settle and then reports
// whether the task has finished.
func (h *Harness) WaitDone(ctx context.Context) (bool, error) {
	if err := h.WaitForTasksOutsideScope(ctx); err != nil {
		return false, err
	}
	return h.IsDone(ctx)
}
