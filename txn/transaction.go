// Package txn implements the transactional envelope described in spec.md
// §4.2 (Transaction / TransactionController): a phase machine wrapping a
// task.Runtime, with hold handles, post-prepare/post-restart listeners, and
// a typed attachment map.
//
// Grounded on the teacher's orchestrator.Orchestrator.Execute four-pass
// shape (build graph -> init -> run -> join), generalized into a resumable
// phase machine, and on server/runner.Runner's tryStart/finish
// compare-and-transition-under-lock idiom for the one-way phase transitions.
package txn

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nomis52/msc/problem"
	"github.com/nomis52/msc/task"
)

// Kind distinguishes read transactions (queries, never mutate state) from
// update transactions (the only kind that may install/remove/enable/disable
// services), per spec.md §4.2.
type Kind int

const (
	KindRead Kind = iota
	KindUpdate
)

func (k Kind) String() string {
	if k == KindUpdate {
		return "update"
	}
	return "read"
}

// Phase is the transaction's position in its lifecycle, per spec.md §4.2.
type Phase int

const (
	PhaseActive Phase = iota
	PhasePreparing
	PhasePrepared
	PhaseCommitting
	PhaseCommitted
	PhaseAborting
	PhaseAborted
	PhaseRestarting
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhasePreparing:
		return "preparing"
	case PhasePrepared:
		return "prepared"
	case PhaseCommitting:
		return "committing"
	case PhaseCommitted:
		return "committed"
	case PhaseAborting:
		return "aborting"
	case PhaseAborted:
		return "aborted"
	case PhaseRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// Listener is invoked during Prepare, after every task has finished EXECUTE
// and before VALIDATE (post-prepare), or once a restart has rewound the
// transaction back to ACTIVE (post-restart).
type Listener func(t *Transaction)

type attachment struct {
	value      interface{}
	survivable bool
}

// Transaction is a single unit of work against a Controller: a task.Runtime
// plus the bookkeeping spec.md §4.2 layers on top of it.
type Transaction struct {
	kind       Kind
	controller *Controller
	runtime    *task.Runtime
	executor   task.Executor
	logger     *slog.Logger

	mu                sync.Mutex
	phase             Phase
	report            problem.Report
	postPrepare       []Listener
	postRestart       []Listener
	attachments       map[string]attachment
	holds             int
	holdsReleasedCond *sync.Cond
}

func newTransaction(c *Controller, kind Kind, exec task.Executor, logger *slog.Logger) *Transaction {
	t := &Transaction{
		kind:        kind,
		controller:  c,
		runtime:     task.NewRuntime(logger),
		executor:    exec,
		logger:      logger.With("component", "txn.Transaction", "kind", kind.String()),
		phase:       PhaseActive,
		attachments: make(map[string]attachment),
	}
	t.holdsReleasedCond = sync.NewCond(&t.mu)
	return t
}

// Kind reports whether this is a read or update transaction. May change
// across a successful Upgrade or Downgrade.
func (t *Transaction) Kind() Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind
}

// Phase returns the transaction's current phase.
func (t *Transaction) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Runtime exposes the underlying task DAG so callers can AddTask against it.
func (t *Transaction) Runtime() *task.Runtime { return t.runtime }

// Report exposes the transaction's accumulated problem report.
func (t *Transaction) Report() *problem.Report { return &t.report }

// CanCommit reports whether the problem report permits a commit. Only
// meaningful once Prepare has returned.
func (t *Transaction) CanCommit() bool { return t.report.CanCommit() }

// AddPostPrepareListener registers a callback invoked once all tasks have
// terminated but before PREPARE completes; the callback may add further
// tasks to Runtime(), which will be drained before PREPARE is considered
// done, per spec.md §4.1 PREPARE.
func (t *Transaction) AddPostPrepareListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postPrepare = append(t.postPrepare, l)
}

// AddPostRestartListener registers a callback invoked after Restart rewinds
// the transaction back to ACTIVE.
func (t *Transaction) AddPostRestartListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postRestart = append(t.postRestart, l)
}

// Attach stores a value under key. If survivable is true the value is kept
// across Restart; otherwise it is dropped when the transaction restarts.
func (t *Transaction) Attach(key string, value interface{}, survivable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attachments[key] = attachment{value: value, survivable: survivable}
}

// Attachment retrieves a previously-stored value.
func (t *Transaction) Attachment(key string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.attachments[key]
	return a.value, ok
}

func (t *Transaction) transitionLocked(from []Phase, to Phase) error {
	for _, f := range from {
		if t.phase == f {
			t.phase = to
			return nil
		}
	}
	return ErrInvalidTransactionState
}
