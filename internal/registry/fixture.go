// Package registry is the catalog of demo fixtures that the CLI lists,
// serves and benchmarks.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/ui"
)

// FixtureRegistry holds the fixtures available by name.
type FixtureRegistry struct {
	fixtures map[string]*FixtureInfo
	mutex    sync.RWMutex
	watchers []chan FixtureEvent
}

// FixtureInfo describes a demo fixture.
type FixtureInfo struct {
	Name        string
	Description string
	// Harnesses names the harness types that drive the fixture.
	Harnesses []string
	// New builds a fresh component tree. Every call must return new state.
	New func() ui.Component
}

// FixtureEvent represents a change in the registry.
type FixtureEvent struct {
	Type      EventType
	Fixture   *FixtureInfo
	Timestamp time.Time
}

// EventType represents the type of fixture event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	}
	return "unknown"
}

// NewFixtureRegistry creates an empty registry.
func NewFixtureRegistry() *FixtureRegistry {
	return &FixtureRegistry{
		fixtures: make(map[string]*FixtureInfo),
		watchers: make([]chan FixtureEvent, 0),
	}
}

// Register adds or replaces a fixture.
func (r *FixtureRegistry) Register(fixture *FixtureInfo) error {
	if fixture == nil || fixture.Name == "" {
		return errors.NewInvalidOptionValueError("name", "fixture name must not be empty")
	}
	if fixture.New == nil {
		return errors.NewInvalidOptionValueError("new", "fixture "+fixture.Name+" has no constructor")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.fixtures[fixture.Name]; exists {
		eventType = EventTypeUpdated
	}
	r.fixtures[fixture.Name] = fixture
	r.notify(FixtureEvent{Type: eventType, Fixture: fixture, Timestamp: time.Now()})
	return nil
}

// notify must be called with the mutex held.
func (r *FixtureRegistry) notify(event FixtureEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Get retrieves a fixture by name.
func (r *FixtureRegistry) Get(name string) (*FixtureInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fixture, exists := r.fixtures[name]
	return fixture, exists
}

// GetAll returns the registered fixtures sorted by name.
func (r *FixtureRegistry) GetAll() []*FixtureInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*FixtureInfo, 0, len(r.fixtures))
	for _, fixture := range r.fixtures {
		result = append(result, fixture)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the registered fixture names in order.
func (r *FixtureRegistry) Names() []string {
	all := r.GetAll()
	names := make([]string, len(all))
	for i, f := range all {
		names[i] = f.Name
	}
	return names
}

// Remove removes a fixture.
func (r *FixtureRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fixture, exists := r.fixtures[name]
	if !exists {
		return
	}
	delete(r.fixtures, name)
	r.notify(FixtureEvent{Type: EventTypeRemoved, Fixture: fixture, Timestamp: time.Now()})
}

// Watch returns a channel that receives fixture events.
func (r *FixtureRegistry) Watch() <-chan FixtureEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan FixtureEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *FixtureRegistry) UnWatch(ch <-chan FixtureEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered fixtures.
func (r *FixtureRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.fixtures)
}
