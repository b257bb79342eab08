package harness

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/harness/internal/stabilize"
)

// Stabilizer is a scope that a bus stabilizes at the edges of a batched
// region.
type Stabilizer interface {
	Name() string
	Disposed() bool
	Stabilize(ctx context.Context) error
}

// scopeSet owns the handler of one bus while it has members.
type scopeSet struct {
	bus *stabilize.Bus

	mu      sync.Mutex
	members map[Stabilizer]struct{}
}

var scopeSets sync.Map // *stabilize.Bus -> *scopeSet

func scopeSetFor(bus *stabilize.Bus) *scopeSet {
	s, _ := scopeSets.LoadOrStore(bus, &scopeSet{
		bus:     bus,
		members: make(map[Stabilizer]struct{}),
	})
	return s.(*scopeSet)
}

// Register adds s to the scopes bus stabilizes when a batched region opens
// or closes. The first member installs the bus handler. Registering a member
// twice is a no-op.
func Register(bus *stabilize.Bus, s Stabilizer) {
	set := scopeSetFor(bus)
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, ok := set.members[s]; ok {
		return
	}
	if len(set.members) == 0 {
		bus.Install(set.handle)
	}
	set.members[s] = struct{}{}
}

// Unregister removes s from bus and uninstalls the handler once no member is
// left. It reports whether the handler was uninstalled.
func Unregister(bus *stabilize.Bus, s Stabilizer) bool {
	set := scopeSetFor(bus)
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, ok := set.members[s]; !ok {
		return false
	}
	delete(set.members, s)
	if len(set.members) > 0 {
		return false
	}
	bus.Uninstall()
	return true
}

// Registered reports how many scopes bus stabilizes.
func Registered(bus *stabilize.Bus) int {
	set, ok := scopeSets.Load(bus)
	if !ok {
		return 0
	}
	s := set.(*scopeSet)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

func (s *scopeSet) handle(ctx context.Context, status stabilize.Status) error {
	if !status.StabilizeNow {
		return nil
	}
	s.mu.Lock()
	all := make([]Stabilizer, 0, len(s.members))
	for m := range s.members {
		all = append(all, m)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range all {
		g.Go(func() error {
			if m.Disposed() {
				return nil
			}
			return m.Stabilize(ctx)
		})
	}
	return g.Wait()
}
