package txn

import "sync"

// Hold pins an update transaction in its ACTIVE phase: Prepare blocks until
// every outstanding Hold on the transaction has been released. This is a
// supplemented feature (not present in the distilled spec's core invariant
// list) that gives external callers — e.g. a batch of builder.ServiceBuilder calls —
// a way to guarantee none of their work is prepared out from under them
// mid-batch.
type Hold struct {
	txn  *Transaction
	once sync.Once
}

// AcquireHold increments the transaction's outstanding-hold count. Holds
// must be acquired before Prepare is called; acquiring one concurrently with
// an in-progress Prepare call is not supported.
func (t *Transaction) AcquireHold() *Hold {
	t.mu.Lock()
	t.holds++
	t.mu.Unlock()
	return &Hold{txn: t}
}

// Release drops the hold. Safe to call more than once; only the first call
// has effect.
func (h *Hold) Release() {
	h.once.Do(func() {
		h.txn.mu.Lock()
		h.txn.holds--
		if h.txn.holds == 0 {
			h.txn.holdsReleasedCond.Broadcast()
		}
		h.txn.mu.Unlock()
	})
}
