// Package depgraph implements the dependency edge described in spec.md
// §3/§4.4: the up/down relation between a dependent controller and a
// dependency registration, with required/unrequired, propagate/no-demand,
// and parent/child flags, plus a cached satisfaction bit.
//
// Grounded on orchestrator.validateNoCycles's graph-traversal shape,
// reworked from an in-degree topological sweep into the DFS-reachability
// cycle check spec.md §4.5 calls for; the edge struct itself generalizes
// the teacher's plain "activity depends on activity" edge (a bare name
// slice) into a flagged, polarity-aware relation.
package depgraph

import (
	"sync"

	"github.com/nomis52/msc/task"
)

// Requirement says whether a dependency must be present for its dependent
// to ever start.
type Requirement int

const (
	Required Requirement = iota
	Unrequired
)

// DemandPropagation says whether demand placed on the dependent is
// forwarded to the dependency's target registration.
type DemandPropagation int

const (
	PropagateDemand DemandPropagation = iota
	NoDemand
)

// Linkage distinguishes a parent/child containment edge from an ordinary
// peer dependency. A child edge whose target goes DOWN cascades into
// removal of the dependent.
type Linkage int

const (
	Peer Linkage = iota
	ParentChild
)

// Polarity says which state of the target registration satisfies the edge.
type Polarity int

const (
	RequireUp Polarity = iota
	RequireDown
)

// Dependent is the consuming side of an Edge: the controller that declared
// the dependency. Implemented by service.Controller. Every method takes the
// *task.Runtime of whichever transaction is live for the caller that
// triggered the signal, so a dependent reached indirectly (via demand or
// satisfaction cascade) submits any resulting task subgraph to the
// transaction actually driving the cascade, not some earlier transaction
// that happened to touch this dependent last.
type Dependent interface {
	DependencySatisfied(rt *task.Runtime)
	DependencyUnsatisfied(rt *task.Runtime)
	// CascadeRemove is invoked on a ParentChild edge when the target goes
	// DOWN; the dependent (child) controller must be removed.
	CascadeRemove(rt *task.Runtime)
}

// Target is the registration side of an Edge. Implemented by
// registry.Registration.
type Target interface {
	AddIncomingEdge(e *Edge)
	RemoveIncomingEdge(e *Edge)
	AddDemand(rt *task.Runtime)
	RemoveDemand(rt *task.Runtime)
	CurrentlyUp() bool
}

// Options configure a new Edge.
type Options struct {
	Requirement       Requirement
	DemandPropagation DemandPropagation
	Linkage           Linkage
	Polarity          Polarity
}

// Edge is one dependency relation, owned by the dependent controller and
// attached to exactly one target registration for its lifetime.
type Edge struct {
	mu sync.Mutex

	dependent Dependent
	target    Target

	requirement Requirement
	demand      DemandPropagation
	linkage     Linkage
	polarity    Polarity

	satisfied bool
	demanded  bool
}

// NewEdge creates and wires an edge: it registers itself on the target and
// computes the initial satisfaction bit, calling DependencyUnsatisfied on
// the dependent if the target's current state fails the edge's polarity
// (spec.md §4.4 setDependent). rt is the runtime of the transaction
// installing the dependent.
func NewEdge(dependent Dependent, target Target, opts Options, rt *task.Runtime) *Edge {
	e := &Edge{
		dependent:   dependent,
		target:      target,
		requirement: opts.Requirement,
		demand:      opts.DemandPropagation,
		linkage:     opts.Linkage,
		polarity:    opts.Polarity,
	}
	target.AddIncomingEdge(e)
	e.satisfied = e.polaritySatisfiedBy(target.CurrentlyUp())
	if !e.satisfied {
		dependent.DependencyUnsatisfied(rt)
	}
	return e
}

func (e *Edge) polaritySatisfiedBy(up bool) bool {
	if e.polarity == RequireDown {
		return !up
	}
	return up
}

// Requirement reports whether this edge is required.
func (e *Edge) Requirement() Requirement { return e.requirement }

// Linkage reports whether this edge is a parent/child containment edge.
func (e *Edge) Linkage() Linkage { return e.linkage }

// Target returns the registration this edge points at.
func (e *Edge) Target() Target { return e.target }

// Detach removes the edge from its target and releases any outstanding
// demand, used when the dependent controller is removed. rt is the runtime
// of the transaction performing the removal.
func (e *Edge) Detach(rt *task.Runtime) {
	e.mu.Lock()
	demanded := e.demanded
	e.demanded = false
	e.mu.Unlock()

	if demanded && e.demand == PropagateDemand {
		e.target.RemoveDemand(rt)
	}
	e.target.RemoveIncomingEdge(e)
}

// DependencyUp is called by the target registration when it transitions UP.
// It is translated into DependencySatisfied/DependencyUnsatisfied on the
// dependent according to the edge's polarity. rt is the runtime of the
// transaction driving the target's transition.
func (e *Edge) DependencyUp(rt *task.Runtime) {
	e.transition(true, rt)
}

// DependencyDown is called by the target registration when it transitions
// DOWN. On a parent/child edge this also cascades removal of the dependent.
func (e *Edge) DependencyDown(rt *task.Runtime) {
	e.transition(false, rt)
	if e.linkage == ParentChild {
		e.dependent.CascadeRemove(rt)
	}
}

func (e *Edge) transition(up bool, rt *task.Runtime) {
	nowSatisfied := e.polaritySatisfiedBy(up)

	e.mu.Lock()
	changed := nowSatisfied != e.satisfied
	e.satisfied = nowSatisfied
	e.mu.Unlock()

	if !changed {
		return
	}
	if nowSatisfied {
		e.dependent.DependencySatisfied(rt)
	} else {
		e.dependent.DependencyUnsatisfied(rt)
	}
}

// Demand forwards a demand signal to the target, if this edge propagates
// demand. Idempotent: a second Demand call without an intervening Undemand
// has no further effect. rt is the runtime of the transaction placing the
// demand.
func (e *Edge) Demand(rt *task.Runtime) {
	if e.demand != PropagateDemand {
		return
	}
	e.mu.Lock()
	already := e.demanded
	e.demanded = true
	e.mu.Unlock()
	if !already {
		e.target.AddDemand(rt)
	}
}

// Undemand withdraws a previously forwarded demand signal.
func (e *Edge) Undemand(rt *task.Runtime) {
	if e.demand != PropagateDemand {
		return
	}
	e.mu.Lock()
	was := e.demanded
	e.demanded = false
	e.mu.Unlock()
	if was {
		e.target.RemoveDemand(rt)
	}
}
