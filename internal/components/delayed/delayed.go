// Package delayed is a component that finishes its work on a timer the
// fixture does not track, and its harness.
package delayed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/ui"
)

// DefaultDelay is how long a Task waits before it is done.
const DefaultDelay = 10 * time.Millisecond

// Task becomes done Delay after it is clicked.
type Task struct {
	Label string
	Delay time.Duration
	Done  bool

	key string
}

// New returns a task with the default delay.
func New(key, label string) *Task {
	return &Task{key: key, Label: label, Delay: DefaultDelay}
}

func (t *Task) Key() string { return t.key }

func (t *Task) Render(_ context.Context, w io.Writer) error {
	class := templ.Classes("ui-delayed", templ.KV("done", t.Done)).String()
	_, err := fmt.Fprintf(w, `<div class="%s"%s><button type="button" class="ui-delayed-start"%s>%s</button></div>`,
		class, ui.Host(t), ui.On("click", "start"), templ.EscapeString(t.Label))
	return err
}

func (t *Task) Handle(ctx context.Context, ev ui.Event) error {
	if ev.Action != "start" {
		return nil
	}
	tasks := ui.TasksFrom(ctx)
	if tasks == nil {
		t.Done = true
		return nil
	}
	tasks.ScheduleOutside(t.Delay, func() { t.Done = true })
	return nil
}

// Demo returns a page with one delayed task.
func Demo() *ui.Page {
	return ui.NewPage("delayed", New("task", "Start"))
}
