package txn

import (
	"log/slog"
	"sync"

	"github.com/nomis52/msc/task"
)

// Controller is the root object described in spec.md §4.2: it serializes
// update transactions (at most one active at a time, and never concurrent
// with any read transaction) while allowing any number of read transactions
// to run concurrently with each other.
//
// Grounded on server/runner.Runner's single-flight tryStart/finish pattern,
// generalized from "one job at a time" to "one update, or any number of
// reads, at a time".
type Controller struct {
	logger *slog.Logger

	mu           sync.Mutex
	updateActive bool
	readCount    int
}

// NewController creates a Controller ready to issue transactions.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger.With("component", "txn.Controller")}
}

// CreateUpdate opens a new update transaction. Fails with
// ErrUpdateInProgress if an update or any read transaction is already open.
func (c *Controller) CreateUpdate(exec task.Executor) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateActive || c.readCount > 0 {
		return nil, ErrUpdateInProgress
	}
	c.updateActive = true
	return newTransaction(c, KindUpdate, exec, c.logger), nil
}

// CreateRead opens a new read transaction. Fails with ErrUpdateInProgress
// only if an update transaction is currently open; any number of read
// transactions may coexist.
func (c *Controller) CreateRead(exec task.Executor) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateActive {
		return nil, ErrUpdateInProgress
	}
	c.readCount++
	return newTransaction(c, KindRead, exec, c.logger), nil
}

// release frees the slot a committed or aborted transaction held.
func (c *Controller) release(t *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Kind() == KindUpdate {
		c.updateActive = false
	} else {
		c.readCount--
	}
}

// Upgrade promotes a read transaction to an update transaction. It only
// succeeds if this is the sole open transaction on the controller; on
// failure the transaction is left unchanged, per spec.md's "negative result
// without side effects" requirement for upgrade/downgrade.
func (t *Transaction) Upgrade() error {
	if t.Kind() != KindRead {
		return ErrInvalidTransactionState
	}
	c := t.controller
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateActive || c.readCount != 1 {
		return ErrUpdateInProgress
	}
	c.readCount = 0
	c.updateActive = true
	t.mu.Lock()
	t.kind = KindUpdate
	t.mu.Unlock()
	return nil
}

// Downgrade demotes an update transaction back to a read transaction,
// freeing the controller to admit other read transactions alongside it.
func (t *Transaction) Downgrade() error {
	if t.Kind() != KindUpdate {
		return ErrInvalidTransactionState
	}
	c := t.controller
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateActive = false
	c.readCount = 1
	t.mu.Lock()
	t.kind = KindRead
	t.mu.Unlock()
	return nil
}
