package task

import (
	"context"
)

// Executor submits a runnable for later, best-effort execution on some
// thread, per spec.md §6. A goroutine-per-submit implementation is provided
// by GoExecutor.
type Executor interface {
	Submit(func())
}

// GoExecutor runs every submitted function on its own goroutine.
type GoExecutor struct{}

// Submit launches fn on a new goroutine.
func (GoExecutor) Submit(fn func()) { go fn() }

// Drain runs EXECUTE for every eligible task until a fixed point: no task
// remains in StateNew or StateExecuting. It may be called repeatedly (once
// per PREPARE listener wave, per spec.md §4.1); tasks added by a previous
// wave's listeners are picked up automatically.
func (rt *Runtime) Drain(ctx context.Context, exec Executor) error {
	for {
		rt.mu.Lock()
		eligible := rt.eligibleLocked()
		if len(eligible) == 0 {
			done := rt.allTerminalLocked()
			rt.mu.Unlock()
			if done {
				return nil
			}
			select {
			case <-rt.changed:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, t := range eligible {
			t.state = StateExecuting
		}
		rt.mu.Unlock()

		for _, t := range eligible {
			t := t
			rt.wg.Add(1)
			exec.Submit(func() {
				defer rt.wg.Done()
				rt.runOne(ctx, t)
			})
		}

		select {
		case <-rt.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// eligibleLocked returns every StateNew task whose predecessors are all
// terminal and whose parent (if any) has at least entered EXECUTE. Caller
// must hold rt.mu.
func (rt *Runtime) eligibleLocked() []*Task {
	var out []*Task
	for _, t := range rt.tasks {
		if t.state != StateNew {
			continue
		}
		if t.spec.Parent != nil && t.spec.Parent.state == StateNew {
			continue
		}
		ready := true
		for _, p := range t.spec.Predecessors {
			if !p.state.Terminal() {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, t)
		}
	}
	return out
}

// allTerminalLocked reports whether every task has finished EXECUTE (see
// State.Terminal). Caller must hold rt.mu.
func (rt *Runtime) allTerminalLocked() bool {
	for _, t := range rt.tasks {
		if !t.state.Terminal() {
			return false
		}
	}
	return true
}

// runOne executes a single task's body outside any lock, then finalizes it
// (and transitively its parent chain) once both its own work and any
// children it spawned have terminated.
func (rt *Runtime) runOne(ctx context.Context, t *Task) {
	disp := t.spec.Execute(ctx, &Context{runtime: rt, task: t})

	rt.mu.Lock()
	t.selfDone = true
	t.selfCancelled = disp == Cancelled
	rt.maybeFinalizeLocked(t)
	rt.mu.Unlock()
	rt.signal()
}

// maybeFinalizeLocked transitions t to its terminal state once its own work
// is done and every child it spawned has itself terminated, then recurses
// into its parent since t terminating may unblock the parent's own
// finalization. Caller must hold rt.mu.
func (rt *Runtime) maybeFinalizeLocked(t *Task) {
	if !t.selfDone || t.pendingChildren > 0 || t.state.Terminal() {
		return
	}
	if t.selfCancelled {
		t.state = StateCancelled
	} else {
		t.state = StateExecuted
	}
	if parent := t.spec.Parent; parent != nil {
		parent.pendingChildren--
		rt.maybeFinalizeLocked(parent)
	}
}
