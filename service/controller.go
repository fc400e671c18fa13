package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/task"
)

// Controller is the per-service state machine of spec.md §3/§4.5. It is
// built by the builder package and thereafter driven by registry/depgraph
// callbacks and by direct caller operations (Enable, Disable, Remove, ...).
//
// Design note: a Controller may be reached indirectly, via a demand or
// dependency-satisfaction cascade that started at some other controller's
// operation, while a wholly unrelated transaction is simultaneously open
// elsewhere in the container (e.g. a read transaction, or a second update
// queued behind txn.Controller's serialization). Every depgraph.Dependent /
// registry.Holder callback therefore takes the *task.Runtime of the
// transaction actually driving the cascade as an explicit parameter, rather
// than the Controller caching "the current" runtime in a field — a cached
// runtime would go stale the moment a cascade outlives the transaction that
// set it.
type Controller struct {
	logger *slog.Logger

	mu sync.Mutex

	primaryName  name.Name
	registration *registry.Registration
	aliases      []*registry.Registration
	edges        []*depgraph.Edge

	mode  Mode
	state State

	serviceEnabled  bool
	registryEnabled bool
	removed         bool

	unsatisfied int
	demandedBy  int

	propagatingDemand bool

	service            Service
	pendingReplacement Service

	lastChange time.Time

	enablePending  bool
	disablePending bool
	onEnable       []func()
	onDisable      []func()
	onRemove       []func()
	onReplace      []func()
}

// NewController creates a controller not yet attached to any registration.
func NewController(n name.Name, svc Service, mode Mode, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:          logger.With("service", n.String()),
		primaryName:     n,
		service:         svc,
		mode:            mode,
		state:           StateDown,
		serviceEnabled:  true,
		registryEnabled: true,
		lastChange:      time.Now(),
	}
}

// Name returns the controller's primary name, implementing registry.Holder.
func (c *Controller) Name() name.Name { return c.primaryName }

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the controller's mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Snapshot is a point-in-time diagnostic view of a controller, used by
// msccron's audits and mscmetrics' scrape collection; neither needs (or
// should hold) the controller's lock itself.
type Snapshot struct {
	Name        string
	State       State
	Mode        Mode
	Unsatisfied int
	DemandedBy  int
}

// Snapshot returns a point-in-time copy of the controller's diagnostic
// fields.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Name:        c.primaryName.String(),
		State:       c.state,
		Mode:        c.mode,
		Unsatisfied: c.unsatisfied,
		DemandedBy:  c.demandedBy,
	}
}

// SetPrimaryRegistration wires the controller's primary registration; used
// once by the builder during install.
func (c *Controller) SetPrimaryRegistration(r *registry.Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registration = r
}

// AddAlias wires an additional alias registration pointing back at this
// controller.
func (c *Controller) AddAlias(r *registry.Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases = append(c.aliases, r)
}

// AddEdge wires an outgoing dependency edge, created by the builder via
// depgraph.NewEdge(c, target, opts, rt).
func (c *Controller) AddEdge(e *depgraph.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = append(c.edges, e)
}

// Edges returns a snapshot of the controller's outgoing edges, used by the
// builder to roll back a failed (cyclic) installation.
func (c *Controller) Edges() []*depgraph.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*depgraph.Edge(nil), c.edges...)
}

// Aliases returns a snapshot of the controller's alias registrations.
func (c *Controller) Aliases() []*registry.Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*registry.Registration(nil), c.aliases...)
}

// Registration returns the controller's primary registration.
func (c *Controller) Registration() *registry.Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registration
}

// OutgoingTargets implements depgraph.Node for the install-time cycle
// check: it returns the controllers, if any, held by this controller's
// outgoing edges' target registrations.
func (c *Controller) OutgoingTargets() []depgraph.Node {
	c.mu.Lock()
	edges := append([]*depgraph.Edge(nil), c.edges...)
	c.mu.Unlock()

	var out []depgraph.Node
	for _, e := range edges {
		reg, ok := e.Target().(*registry.Registration)
		if !ok {
			continue
		}
		if h, ok := reg.Holder(); ok {
			if n, ok := h.(depgraph.Node); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// Activate runs the first fixed-point evaluation after the controller has
// been fully wired to its registration, aliases, and edges: ACTIVE-mode
// controllers begin demanding their dependencies unconditionally from here
// until removal (spec.md §4.5).
func (c *Controller) Activate(rt *task.Runtime) {
	c.mu.Lock()
	if c.mode == ModeActive {
		c.propagatingDemand = true
		for _, e := range c.edges {
			e.Demand(rt)
		}
	}
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// CurrentlyUp implements registry.Holder.
func (c *Controller) CurrentlyUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateUp
}

func (c *Controller) shouldStartLocked() bool {
	return !c.removed && c.serviceEnabled && c.registryEnabled && c.unsatisfied == 0 &&
		(c.mode == ModeActive || c.demandedBy > 0)
}

func (c *Controller) shouldStopLocked() bool {
	return c.removed || !c.serviceEnabled || !c.registryEnabled || c.unsatisfied > 0 ||
		(c.mode == ModeOnDemand && c.demandedBy == 0) || c.pendingReplacement != nil
}

// recomputeLocked re-evaluates shouldStart/shouldStop against the
// controller's current rest state (DOWN, UP or FAILED) and fires at most one
// transition. A transition moves the controller into a non-rest state
// (STARTING/STOPPING/REMOVING), so there is nothing further to recompute
// until the corresponding task graph completes and calls back into
// setServiceUp/setServiceDown/setServiceFailed/setServiceRemoved, which
// recompute again from the new rest state. Caller must hold c.mu. rt is
// where any newly-submitted task subgraph is added; it may be nil only if no
// transition is warranted.
func (c *Controller) recomputeLocked(rt *task.Runtime) {
	switch c.state {
	case StateDown:
		if c.removed {
			c.state = StateRemoving
			c.lastChange = time.Now()
			c.submitRemoveGraph(rt)
			return
		}
		if c.shouldStartLocked() {
			c.state = StateStarting
			c.lastChange = time.Now()
			c.submitStartGraph(rt)
			return
		}
	case StateUp:
		if c.shouldStopLocked() {
			c.state = StateStopping
			c.lastChange = time.Now()
			c.submitStopGraph(rt)
			return
		}
	case StateFailed:
		if c.shouldStopLocked() {
			c.state = StateStopping
			c.lastChange = time.Now()
			c.submitStopGraph(rt)
			return
		}
	}
}

func (c *Controller) propagateDemandLocked(rt *task.Runtime) {
	switch c.mode {
	case ModeOnDemand:
		want := c.demandedBy > 0
		if want != c.propagatingDemand {
			c.propagatingDemand = want
			for _, e := range c.edges {
				if want {
					e.Demand(rt)
				} else {
					e.Undemand(rt)
				}
			}
		}
	case ModeLazy:
		if c.demandedBy > 0 && !c.propagatingDemand {
			c.propagatingDemand = true
			for _, e := range c.edges {
				e.Demand(rt)
			}
		}
	case ModeActive:
		// Demands unconditionally from Activate until removal; nothing to
		// recompute here.
	}
}

// Demand implements registry.Holder: some dependent has demanded this
// service. rt is the runtime of the transaction driving the demand.
func (c *Controller) Demand(rt *task.Runtime) {
	c.mu.Lock()
	c.demandedBy++
	c.propagateDemandLocked(rt)
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// Undemand implements registry.Holder.
func (c *Controller) Undemand(rt *task.Runtime) {
	c.mu.Lock()
	c.demandedBy--
	c.propagateDemandLocked(rt)
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// DependencySatisfied implements depgraph.Dependent.
func (c *Controller) DependencySatisfied(rt *task.Runtime) {
	c.mu.Lock()
	c.unsatisfied--
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// DependencyUnsatisfied implements depgraph.Dependent.
func (c *Controller) DependencyUnsatisfied(rt *task.Runtime) {
	c.mu.Lock()
	c.unsatisfied++
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// CascadeRemove implements depgraph.Dependent: a parent/child edge's
// target went DOWN, so this (child) controller must be removed.
func (c *Controller) CascadeRemove(rt *task.Runtime) {
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return
	}
	c.removed = true
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// EnableRegistry implements registry.Holder.
func (c *Controller) EnableRegistry(rt *task.Runtime) {
	c.mu.Lock()
	c.registryEnabled = true
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// DisableRegistry implements registry.Holder.
func (c *Controller) DisableRegistry(rt *task.Runtime) {
	c.mu.Lock()
	c.registryEnabled = false
	c.recomputeLocked(rt)
	c.mu.Unlock()
}

// maybeFireLocked drains the enable/disable listener queues once the
// controller has settled at a rest state (DOWN, UP or FAILED). Caller must
// hold c.mu; the returned funcs must be invoked after unlocking.
func (c *Controller) maybeFireLocked() []func() {
	rest := c.state == StateDown || c.state == StateUp || c.state == StateFailed
	if !rest {
		return nil
	}
	var fire []func()
	if c.enablePending {
		fire = append(fire, c.onEnable...)
		c.onEnable = nil
		c.enablePending = false
	}
	if c.disablePending {
		fire = append(fire, c.onDisable...)
		c.onDisable = nil
		c.disablePending = false
	}
	return fire
}

// OnEnable registers a listener fired once an Enable() call's effects have
// settled at a rest state.
func (c *Controller) OnEnable(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnable = append(c.onEnable, fn)
}

// OnDisable registers a listener fired once a Disable() call's effects
// have settled at DOWN.
func (c *Controller) OnDisable(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisable = append(c.onDisable, fn)
}

// OnRemove registers a listener fired exactly once when the controller
// reaches REMOVED.
func (c *Controller) OnRemove(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemove = append(c.onRemove, fn)
}

// OnReplace registers a listener fired exactly once when a pending
// replacement service is applied.
func (c *Controller) OnReplace(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReplace = append(c.onReplace, fn)
}
