package task

import (
	"context"

	"github.com/nomis52/msc/problem"
)

// topoOrder returns every terminated task in an order where each task's
// predecessors AND its parent (if any) precede it — "predecessors before
// successors, parent before children", per spec.md §4.1 COMMIT ordering.
// Built with Kahn's algorithm, the same technique the teacher's orchestrator
// uses for its own cycle/ordering check (see orchestrator.validateNoCycles).
func (rt *Runtime) topoOrder() []*Task {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	indegree := make(map[*Task]int, len(rt.tasks))
	children := make(map[*Task][]*Task, len(rt.tasks))
	for _, t := range rt.tasks {
		indegree[t] = len(t.spec.Predecessors)
		if t.spec.Parent != nil {
			indegree[t]++
		}
		for _, p := range t.spec.Predecessors {
			children[p] = append(children[p], t)
		}
		if t.spec.Parent != nil {
			children[t.spec.Parent] = append(children[t.spec.Parent], t)
		}
	}

	var queue []*Task
	for _, t := range rt.tasks {
		if indegree[t] == 0 {
			queue = append(queue, t)
		}
	}

	var order []*Task
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, succ := range children[cur] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	return order
}

// Validate invokes each terminated, non-cancelled task's Validate hook (if
// present) in topological order, recording any error into report as an
// Error-severity problem. This is the per-task granularity of the
// transaction's PREPARE phase.
func (rt *Runtime) Validate(ctx context.Context, report *problem.Report) {
	for _, t := range rt.topoOrder() {
		if t.state == StateCancelled {
			continue
		}
		rt.mu.Lock()
		t.state = StateValidating
		rt.mu.Unlock()

		if t.spec.Validate != nil {
			if err := t.spec.Validate(ctx); err != nil {
				report.Add(problem.Problem{
					Severity: problem.Error,
					Source:   t.spec.Name,
					Message:  "validation failed",
					Err:      err,
				})
			}
		}

		rt.mu.Lock()
		t.state = StateValidated
		rt.mu.Unlock()
	}
}

// Commit invokes each terminated, non-cancelled task's Commit hook (if
// present) in topological order: predecessors before successors, parent
// before children (spec.md T4).
func (rt *Runtime) Commit(ctx context.Context) {
	for _, t := range rt.topoOrder() {
		if t.state == StateCancelled {
			continue
		}
		rt.mu.Lock()
		t.state = StateCommitting
		rt.mu.Unlock()

		if t.spec.Commit != nil {
			t.spec.Commit(ctx)
		}

		rt.mu.Lock()
		t.state = StateDone
		rt.mu.Unlock()
	}
}

// Revert invokes each terminated, non-cancelled task's Revert hook (if
// present) in reverse topological order: successors before predecessors,
// children before parent (spec.md T3), skipping cancelled tasks entirely.
func (rt *Runtime) Revert(ctx context.Context) {
	order := rt.topoOrder()
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		if t.state == StateCancelled {
			rt.mu.Lock()
			t.state = StateDone
			rt.mu.Unlock()
			continue
		}
		rt.mu.Lock()
		t.state = StateReverting
		rt.mu.Unlock()

		if t.spec.Revert != nil {
			t.spec.Revert(ctx)
		}

		rt.mu.Lock()
		t.state = StateDone
		rt.mu.Unlock()
	}
}

// Reset reverts every task to a fresh StateNew, clearing execution bookkeeping,
// used by Transaction.Restart. Tasks are kept (preserving the DAG shape);
// only their runtime state is cleared. New predecessors/parent wiring is left
// intact since restart re-executes the same graph.
func (rt *Runtime) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, t := range rt.tasks {
		t.state = StateNew
		t.selfDone = false
		t.selfCancelled = false
		t.pendingChildren = len(t.children)
	}
}
