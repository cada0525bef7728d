package reservation

import (
	"sort"
	"sync"
	"time"
)

// Factory builds the machine for one owner, typically wiring a
// persister keyed by that owner.
type Factory func(owner string) *Machine

// Registry hands out one machine per owner (an authenticated customer)
// and creates it on first use.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*Machine
	factory  Factory
}

// NewRegistry returns an empty registry backed by factory.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = func(string) *Machine { return New(Options{}) }
	}
	return &Registry{machines: make(map[string]*Machine), factory: factory}
}

// Get returns the owner's machine, creating it when missing.  The
// factory runs without the registry lock so a slow rehydration does not
// stall other owners; when two calls race, the first stored wins.
func (r *Registry) Get(owner string) *Machine {
	if m, ok := r.lookup(owner); ok {
		return m
	}
	built := r.factory(owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.machines[owner]; ok {
		m.touch()
		return m
	}
	r.machines[owner] = built
	return built
}

func (r *Registry) lookup(owner string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[owner]
	if ok {
		m.touch()
	}
	return m, ok
}

// reap drops the owner's machine when it is still m and has been
// unused long enough.  Persisted state is untouched.
func (r *Registry) reap(owner string, m *Machine, idle, done time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.machines[owner] != m || !m.reapable(idle, done) {
		return false
	}
	delete(r.machines, owner)
	return true
}

// Drop forgets the owner's machine.  Persisted state is untouched, so
// the next Get rehydrates from it.
func (r *Registry) Drop(owner string) {
	r.mu.Lock()
	delete(r.machines, owner)
	r.mu.Unlock()
}

// Len returns the number of live machines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Each calls fn for every machine in owner order.  fn runs without the
// registry lock held.
func (r *Registry) Each(fn func(owner string, m *Machine)) {
	r.mu.Lock()
	owners := make([]string, 0, len(r.machines))
	for owner := range r.machines {
		owners = append(owners, owner)
	}
	ms := make(map[string]*Machine, len(r.machines))
	for k, v := range r.machines {
		ms[k] = v
	}
	r.mu.Unlock()
	sort.Strings(owners)
	for _, owner := range owners {
		fn(owner, ms[owner])
	}
}
