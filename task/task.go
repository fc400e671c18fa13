// Package task implements the transactional task DAG described in spec.md
// §3 (Task entity) and §4.1 (Task Runtime): tasks with EXECUTE, VALIDATE,
// COMMIT-or-REVERT phases, inter-task dependencies, parent/child
// containment, and well-defined ordering guarantees.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State is the internal lifecycle state of a Task, per spec.md §3.
type State int

const (
	StateNew State = iota
	StateExecuting
	StateExecuted
	StateCancelled
	StateValidating
	StateValidated
	StateCommitting
	StateReverting
	StateDone
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateExecuting:
		return "executing"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	case StateValidating:
		return "validating"
	case StateValidated:
		return "validated"
	case StateCommitting:
		return "committing"
	case StateReverting:
		return "reverting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether the task has finished EXECUTE (either normally or
// by self-cancellation), including every later phase state.
func (s State) Terminal() bool {
	return s != StateNew && s != StateExecuting
}

// Disposition is the outcome an Executable reports when it returns.
type Disposition int

const (
	// Complete indicates the task finished normally; its revert hook (if
	// any) will run if the owning transaction reverts.
	Complete Disposition = iota
	// Cancelled indicates the task opted out; its own revert hook will not
	// run, but this has no effect on any other task's revert.
	Cancelled
)

// Executable is the user-supplied body of a task. It receives a Context
// through which it may spawn child tasks before returning its disposition.
type Executable func(ctx context.Context, spawn *Context) Disposition

// Hook is a task lifecycle callback with no return value (validate returns
// an error instead, see ValidateHook).
type Hook func(ctx context.Context)

// ValidateHook is invoked during the transaction's PREPARE phase; a non-nil
// error is recorded as an Error-severity problem, which blocks commit.
type ValidateHook func(ctx context.Context) error

// Spec describes a task to be added to a Runtime.
type Spec struct {
	// Name is used for logging and error messages; need not be unique.
	Name string
	// Execute is required.
	Execute Executable
	// Validate, Commit, Revert are optional.
	Validate ValidateHook
	Commit   Hook
	Revert   Hook
	// Predecessors must all reach a terminal state before this task enters
	// EXECUTE.
	Predecessors []*Task
	// Parent, if set, must have entered EXECUTE before this task does; this
	// task becomes a predecessor of the parent's own completion.
	Parent *Task
}

// Task is one node in a Runtime's DAG.
type Task struct {
	spec Spec

	// Guarded by the owning Runtime's mutex.
	state           State
	selfDone        bool
	selfCancelled   bool
	pendingChildren int
	children        []*Task
}

// Name returns the task's diagnostic name.
func (t *Task) Name() string { return t.spec.Name }

// State returns the task's current state. Racy with respect to concurrent
// execution; intended for logging/diagnostics, not control flow.
func (t *Task) State() State { return t.state }

// Context is handed to an Executable so it can spawn children.
type Context struct {
	runtime *Runtime
	task    *Task
}

// Spawn adds a child task of the currently-executing task. The child is
// wired as a predecessor of the parent's own completion, per spec.md §4.1.
func (c *Context) Spawn(spec Spec) (*Task, error) {
	spec.Parent = c.task
	return c.runtime.AddTask(spec)
}

// Runtime schedules and executes a DAG of tasks inside a single transaction.
type Runtime struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []*Task
	wg      sync.WaitGroup
	changed chan struct{}
}

// NewRuntime creates an empty Runtime.
func NewRuntime(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		logger:  logger.With("component", "task.Runtime"),
		changed: make(chan struct{}, 1),
	}
}

// AddTask registers a new task. Safe to call before Drain starts, or from
// inside a running Executable via Context.Spawn, or from a PREPARE listener
// between Drain waves.
func (rt *Runtime) AddTask(spec Spec) (*Task, error) {
	if spec.Execute == nil {
		return nil, fmt.Errorf("task %q: Execute is required", spec.Name)
	}
	t := &Task{spec: spec, state: StateNew}

	rt.mu.Lock()
	rt.tasks = append(rt.tasks, t)
	if spec.Parent != nil {
		spec.Parent.pendingChildren++
		spec.Parent.children = append(spec.Parent.children, t)
	}
	rt.mu.Unlock()
	rt.signal()
	return t, nil
}

func (rt *Runtime) signal() {
	select {
	case rt.changed <- struct{}{}:
	default:
	}
}

// Tasks returns a snapshot of every task added so far.
func (rt *Runtime) Tasks() []*Task {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	cp := make([]*Task, len(rt.tasks))
	copy(cp, rt.tasks)
	return cp
}
