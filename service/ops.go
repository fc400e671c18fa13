package service

import "github.com/nomis52/msc/txn"

// Enable sets SERVICE_ENABLED and re-evaluates the state machine against
// the given update transaction.
func (c *Controller) Enable(tx *txn.Transaction) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	c.serviceEnabled = true
	c.enablePending = true
	c.recomputeLocked(rt)
	fire := c.maybeFireLocked()
	c.mu.Unlock()
	for _, f := range fire {
		f()
	}
	return nil
}

// Disable clears SERVICE_ENABLED and re-evaluates the state machine.
func (c *Controller) Disable(tx *txn.Transaction) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	c.serviceEnabled = false
	c.disablePending = true
	c.recomputeLocked(rt)
	fire := c.maybeFireLocked()
	c.mu.Unlock()
	for _, f := range fire {
		f()
	}
	return nil
}

// Remove marks the controller SERVICE_REMOVED, driving it toward REMOVING
// then REMOVED once any in-flight stop completes.
func (c *Controller) Remove(tx *txn.Transaction) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	c.removed = true
	c.recomputeLocked(rt)
	c.mu.Unlock()
	return nil
}

// Retry clears then re-sets SERVICE_ENABLED to force a stop-and-start
// cycle on a FAILED controller, per spec.md §7 recovery semantics.
func (c *Controller) Retry(tx *txn.Transaction) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	if c.state != StateFailed {
		c.mu.Unlock()
		return ErrNotInFailedState
	}
	c.serviceEnabled = false
	c.recomputeLocked(rt)
	c.serviceEnabled = true
	c.recomputeLocked(rt)
	c.mu.Unlock()
	return nil
}

// Restart forces a stop-and-start cycle on a controller currently UP or
// FAILED.
func (c *Controller) Restart(tx *txn.Transaction) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	if c.state != StateUp && c.state != StateFailed {
		c.mu.Unlock()
		return ErrNotInUpState
	}
	c.serviceEnabled = false
	c.recomputeLocked(rt)
	c.serviceEnabled = true
	c.recomputeLocked(rt)
	c.mu.Unlock()
	return nil
}

// Replace schedules newService to take over once the current UP service
// has stopped.
func (c *Controller) Replace(tx *txn.Transaction, newService Service) error {
	rt := tx.Runtime()
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrCannotOperateOnRemoved
	}
	if c.state != StateUp {
		c.mu.Unlock()
		return ErrNotInUpState
	}
	c.pendingReplacement = newService
	c.recomputeLocked(rt)
	c.mu.Unlock()
	return nil
}
