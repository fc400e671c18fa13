// Package registry implements the registration table described in spec.md
// §3/§4.3: a per-name slot holding at most one controller, the set of
// incoming dependency edges targeting it, and a demand counter with
// 0-to-1/1-to-0 boundary forwarding.
//
// Grounded on orchestrator.Orchestrator.activityMap/resultMap
// (map[string]T guarded by sync.RWMutex, read via RLock) and
// server/runner/store.go's StateStore interface shape: small, swappable,
// single-purpose store interfaces rather than one fat repository type.
package registry

import (
	"sync"

	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/task"
)

// Holder is the controller side of a Registration, implemented by
// service.Controller. Every method takes the *task.Runtime of whichever
// transaction triggered the signal, so a holder reached indirectly (via
// demand or enable/disable fan-out) submits any resulting task subgraph to
// the transaction actually driving the change, never a stale one.
type Holder interface {
	Name() name.Name
	Demand(rt *task.Runtime)
	Undemand(rt *task.Runtime)
	CurrentlyUp() bool
	EnableRegistry(rt *task.Runtime)
	DisableRegistry(rt *task.Runtime)
}

// Registration is a named slot that may hold at most one controller plus
// the set of dependency edges incoming from other controllers.
type Registration struct {
	mu sync.Mutex

	name     name.Name
	holder   Holder
	incoming map[*depgraph.Edge]struct{}
	demand   int
}

// NewRegistration creates an empty registration under n.
func NewRegistration(n name.Name) *Registration {
	return &Registration{name: n, incoming: make(map[*depgraph.Edge]struct{})}
}

// Name returns the registration's name.
func (r *Registration) Name() name.Name { return r.name }

// Install performs a compare-and-set of the holder slot, failing with
// ErrDuplicateService if already occupied.
func (r *Registration) Install(h Holder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holder != nil {
		return ErrDuplicateService
	}
	r.holder = h
	return nil
}

// Clear removes the holder, if any.
func (r *Registration) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holder = nil
}

// Holder returns the installed controller, if any.
func (r *Registration) Holder() (Holder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder, r.holder != nil
}

// Empty reports whether the registration can be garbage collected from its
// owning Registry: no holder and no incoming edges, per spec.md §3.
func (r *Registration) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder == nil && len(r.incoming) == 0
}

// AddIncomingEdge implements depgraph.Target.
func (r *Registration) AddIncomingEdge(e *depgraph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incoming[e] = struct{}{}
}

// RemoveIncomingEdge implements depgraph.Target.
func (r *Registration) RemoveIncomingEdge(e *depgraph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.incoming, e)
}

// IncomingRequiredEdgesWithNoHolder reports whether this registration has
// at least one Required incoming edge while carrying no holder — the
// MISSING_DEPENDENCY condition checked by the transaction's
// dependencies-validation task at PREPARE (spec.md §4.3).
func (r *Registration) IncomingRequiredEdgesWithNoHolder() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holder != nil {
		return false
	}
	for e := range r.incoming {
		if e.Requirement() == depgraph.Required {
			return true
		}
	}
	return false
}

// AddDemand implements depgraph.Target: increments the demand counter,
// forwarding Demand to the holder on the 0-to-1 boundary.
func (r *Registration) AddDemand(rt *task.Runtime) {
	r.mu.Lock()
	r.demand++
	crossed := r.demand == 1
	h := r.holder
	r.mu.Unlock()
	if crossed && h != nil {
		h.Demand(rt)
	}
}

// RemoveDemand implements depgraph.Target: decrements the demand counter,
// forwarding Undemand to the holder on the 1-to-0 boundary.
func (r *Registration) RemoveDemand(rt *task.Runtime) {
	r.mu.Lock()
	r.demand--
	crossed := r.demand == 0
	h := r.holder
	r.mu.Unlock()
	if crossed && h != nil {
		h.Undemand(rt)
	}
}

// CurrentlyUp implements depgraph.Target by delegating to the holder.
func (r *Registration) CurrentlyUp() bool {
	r.mu.Lock()
	h := r.holder
	r.mu.Unlock()
	return h != nil && h.CurrentlyUp()
}

// ServiceUp broadcasts a dependency-up signal to every incoming edge,
// per spec.md §4.3. rt is the runtime of the transaction that brought this
// registration's holder UP.
func (r *Registration) ServiceUp(rt *task.Runtime) {
	for _, e := range r.incomingSnapshot() {
		e.DependencyUp(rt)
	}
}

// ServiceDown broadcasts a dependency-down signal to every incoming edge.
func (r *Registration) ServiceDown(rt *task.Runtime) {
	for _, e := range r.incomingSnapshot() {
		e.DependencyDown(rt)
	}
}

// incomingSnapshot returns the current incoming edges. A nil Registration
// (a controller not attached to one) has none.
func (r *Registration) incomingSnapshot() []*depgraph.Edge {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*depgraph.Edge, 0, len(r.incoming))
	for e := range r.incoming {
		out = append(out, e)
	}
	return out
}
