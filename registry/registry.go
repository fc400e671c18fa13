package registry

import (
	"sync"

	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/problem"
	"github.com/nomis52/msc/txn"
)

// Registry is a named collection of registrations plus an enable flag that
// fans out to every holder controller, per spec.md §4.6.
type Registry struct {
	mu            sync.Mutex
	id            string
	registrations map[string]*Registration
	enabled       bool
}

// NewRegistry creates an enabled, empty registry.
func NewRegistry(id string) *Registry {
	return &Registry{
		id:            id,
		registrations: make(map[string]*Registration),
		enabled:       true,
	}
}

// ID returns the registry's own identifying name.
func (r *Registry) ID() string { return r.id }

// GetOrCreate returns the registration for n, creating an empty one if
// none exists yet. Registrations are visible to readers as soon as
// created, per spec.md §3.
func (r *Registry) GetOrCreate(n name.Name) *Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.registrations[n.Key()]; ok {
		return reg
	}
	reg := NewRegistration(n)
	r.registrations[n.Key()] = reg
	return reg
}

// Get returns the registration for n without creating one.
func (r *Registry) Get(n name.Name) (*Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[n.Key()]
	return reg, ok
}

// GetService returns the controller installed under n, if any.
func (r *Registry) GetService(n name.Name) (Holder, bool) {
	reg, ok := r.Get(n)
	if !ok {
		return nil, false
	}
	return reg.Holder()
}

// GetRequiredService returns the controller installed under n, failing
// with ErrServiceNotFound if absent.
func (r *Registry) GetRequiredService(n name.Name) (Holder, error) {
	h, ok := r.GetService(n)
	if !ok {
		return nil, ErrServiceNotFound
	}
	return h, nil
}

// reap drops a registration once it is Empty, keeping the map from growing
// unboundedly across install/remove churn.
func (r *Registry) reap(n name.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.registrations[n.Key()]; ok && reg.Empty() {
		delete(r.registrations, n.Key())
	}
}

// Reap is the exported form of reap. Nothing in this module calls it: a
// removed controller's registrations stay in the map until Reap is called.
func (r *Registry) Reap(n name.Name) { r.reap(n) }

// All returns a snapshot of every registration currently tracked.
func (r *Registry) All() []*Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		out = append(out, reg)
	}
	return out
}

// Enabled reports the registry's own enable flag.
func (r *Registry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Enable sets the registry's enable flag and calls EnableRegistry on every
// installed holder, re-running each controller's state machine against tx.
func (r *Registry) Enable(tx *txn.Transaction) {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
	rt := tx.Runtime()
	r.forEachHolder(func(h Holder) { h.EnableRegistry(rt) })
}

// Disable clears the registry's enable flag and calls DisableRegistry on
// every installed holder.
func (r *Registry) Disable(tx *txn.Transaction) {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
	rt := tx.Runtime()
	r.forEachHolder(func(h Holder) { h.DisableRegistry(rt) })
}

func (r *Registry) forEachHolder(fn func(Holder)) {
	for _, reg := range r.All() {
		if h, ok := reg.Holder(); ok {
			fn(h)
		}
	}
}

// ValidateRequiredDependencies scans every registration for a Required
// incoming edge with no installed holder and records a MISSING_DEPENDENCY
// problem for each, per spec.md §4.3's dependencies-validation task. A
// container wires this as a post-prepare listener on every update
// transaction.
func (r *Registry) ValidateRequiredDependencies(report *problem.Report) {
	for _, reg := range r.All() {
		if reg.IncomingRequiredEdgesWithNoHolder() {
			report.Addf(problem.Error, reg.Name().String(), "MISSING_DEPENDENCY: required by at least one installed service but has no holder")
		}
	}
}
