package service

import (
	"context"

	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/task"
)

// submitStartGraph adds the start task described in spec.md §4.5: invoke
// Service.Start and, on completion, call back into setServiceUp or
// setServiceFailed. Caller must hold c.mu; rt must be non-nil.
func (c *Controller) submitStartGraph(rt *task.Runtime) {
	svc := c.service
	name := c.primaryName.String()

	_, err := rt.AddTask(task.Spec{
		Name: name + ":start",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition {
			sc := newStartContext()
			svc.Start(ctx, sc)
			if sc.wait() {
				c.setServiceFailed(rt)
			} else {
				c.setServiceUp(rt)
			}
			return task.Complete
		},
		Revert: func(ctx context.Context) {
			c.revertStart(ctx, rt, svc)
		},
	})
	if err != nil {
		c.logger.Error("failed to submit start task", "error", err)
	}
}

// revertStart runs if the transaction aborts after this service
// successfully started: it synchronously stops the service and resets
// state back toward DOWN without running the full stop task graph (the
// transaction is already unwinding).
func (c *Controller) revertStart(ctx context.Context, rt *task.Runtime, svc Service) {
	c.mu.Lock()
	wasUp := c.state == StateUp || c.state == StateStarting
	c.mu.Unlock()
	if !wasUp {
		return
	}
	sc := newStopContext()
	svc.Stop(ctx, sc)
	sc.wait()

	c.mu.Lock()
	c.state = StateDown
	c.mu.Unlock()
	c.registration.ServiceDown(rt)
}

// submitStopGraph adds the stop task: propagate DOWN to incoming edges,
// invoke Service.Stop, undemand dependencies if this controller is LAZY or
// ON_DEMAND and was propagating demand (an ACTIVE controller keeps demanding
// until removal), then call back into setServiceDown.
func (c *Controller) submitStopGraph(rt *task.Runtime) {
	svc := c.service
	name := c.primaryName.String()

	_, err := rt.AddTask(task.Spec{
		Name: name + ":stop",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition {
			c.registration.ServiceDown(rt)

			sc := newStopContext()
			svc.Stop(ctx, sc)
			sc.wait()

			c.undemandAfterStop(rt)
			c.setServiceDown(rt)
			return task.Complete
		},
	})
	if err != nil {
		c.logger.Error("failed to submit stop task", "error", err)
	}
}

func (c *Controller) undemandAfterStop(rt *task.Runtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeActive {
		return
	}
	if c.propagatingDemand {
		c.propagatingDemand = false
		for _, e := range c.edges {
			e.Undemand(rt)
		}
	}
}

// submitRemoveGraph adds the remove task: run the stop path inline if
// necessary (the caller only reaches here from StateDown per the state
// table, so no stop is needed), detach from every registration and edge,
// and mark REMOVED.
func (c *Controller) submitRemoveGraph(rt *task.Runtime) {
	name := c.primaryName.String()

	_, err := rt.AddTask(task.Spec{
		Name: name + ":remove",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition {
			c.setServiceRemoved(rt)
			return task.Complete
		},
	})
	if err != nil {
		c.logger.Error("failed to submit remove task", "error", err)
	}
}

// setServiceUp is the STARTING -> UP narrow entry point.
func (c *Controller) setServiceUp(rt *task.Runtime) {
	c.mu.Lock()
	c.state = StateUp
	c.recomputeLocked(rt)
	fire := c.maybeFireLocked()
	c.mu.Unlock()

	c.registration.ServiceUp(rt)
	for _, f := range fire {
		f()
	}
}

// setServiceFailed is the STARTING -> FAILED narrow entry point.
func (c *Controller) setServiceFailed(rt *task.Runtime) {
	c.mu.Lock()
	c.state = StateFailed
	c.recomputeLocked(rt)
	fire := c.maybeFireLocked()
	c.mu.Unlock()

	c.registration.ServiceDown(rt)
	for _, f := range fire {
		f()
	}
}

// setServiceDown is the STOPPING -> DOWN narrow entry point. It applies
// any pending replacement service before re-evaluating the state machine.
func (c *Controller) setServiceDown(rt *task.Runtime) {
	c.mu.Lock()
	c.state = StateDown

	var fireReplace []func()
	if c.pendingReplacement != nil {
		c.service = c.pendingReplacement
		c.pendingReplacement = nil
		fireReplace = append([]func(){}, c.onReplace...)
		c.onReplace = nil
	}

	c.recomputeLocked(rt)
	fire := c.maybeFireLocked()
	c.mu.Unlock()

	for _, f := range fireReplace {
		f()
	}
	for _, f := range fire {
		f()
	}
}

// setServiceRemoved is the REMOVING -> REMOVED narrow entry point: detach
// from every registration and edge, then fire on-remove listeners.
func (c *Controller) setServiceRemoved(rt *task.Runtime) {
	c.mu.Lock()
	c.state = StateRemoved
	reg := c.registration
	aliases := append([]*registry.Registration(nil), c.aliases...)
	edges := append([]*depgraph.Edge(nil), c.edges...)
	listeners := append([]func(){}, c.onRemove...)
	c.onRemove = nil
	c.mu.Unlock()

	if reg != nil {
		reg.Clear()
	}
	for _, a := range aliases {
		a.Clear()
	}
	for _, e := range edges {
		e.Detach(rt)
	}
	for _, l := range listeners {
		l()
	}
}
