package txn

import "context"

// Prepare runs EXECUTE to a fixed point, then repeatedly invokes the
// transaction's post-prepare listeners and re-drains until a full pass adds
// no new tasks, then runs VALIDATE. It blocks until every outstanding Hold
// has been released before starting, per spec.md's supplemented hold-handle
// semantics.
func (t *Transaction) Prepare(ctx context.Context) error {
	t.mu.Lock()
	for t.holds > 0 {
		t.holdsReleasedCond.Wait()
	}
	if err := t.transitionLocked([]Phase{PhaseActive}, PhasePreparing); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	if err := t.runtime.Drain(ctx, t.executor); err != nil {
		return err
	}

	for {
		before := len(t.runtime.Tasks())

		t.mu.Lock()
		listeners := append([]Listener(nil), t.postPrepare...)
		t.mu.Unlock()
		for _, l := range listeners {
			l(t)
		}

		if err := t.runtime.Drain(ctx, t.executor); err != nil {
			return err
		}
		if len(t.runtime.Tasks()) == before {
			break
		}
	}

	t.runtime.Validate(ctx, &t.report)

	t.mu.Lock()
	t.phase = PhasePrepared
	t.mu.Unlock()
	return nil
}

// Commit runs COMMIT over every task in dependency order and releases the
// transaction's slot on the Controller. Fails with ErrInvalidTransactionState
// if the transaction is not PREPARED, and with ErrCannotCommit if the
// problem report blocks commit (the caller should Abort instead).
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	if err := t.transitionLocked([]Phase{PhasePrepared}, PhaseCommitting); err != nil {
		t.mu.Unlock()
		return err
	}
	canCommit := t.report.CanCommit()
	t.mu.Unlock()

	if !canCommit {
		t.mu.Lock()
		t.phase = PhasePrepared
		t.mu.Unlock()
		return ErrCannotCommit
	}

	t.runtime.Commit(ctx)

	t.mu.Lock()
	t.phase = PhaseCommitted
	t.mu.Unlock()
	t.controller.release(t)
	return nil
}

// Abort runs REVERT over every task in reverse dependency order and
// releases the transaction's slot on the Controller. Valid from ACTIVE,
// PREPARING or PREPARED.
func (t *Transaction) Abort(ctx context.Context) error {
	t.mu.Lock()
	if err := t.transitionLocked([]Phase{PhaseActive, PhasePreparing, PhasePrepared}, PhaseAborting); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	t.runtime.Revert(ctx)

	t.mu.Lock()
	t.phase = PhaseAborted
	t.mu.Unlock()
	t.controller.release(t)
	return nil
}

// Restart reverts every task, clears the task set back to StateNew,
// invokes the post-restart listeners, and returns the transaction to
// ACTIVE so new tasks can be added and re-executed. Non-survivable
// attachments are discarded. Valid from PREPARED only.
func (t *Transaction) Restart(ctx context.Context) error {
	t.mu.Lock()
	if err := t.transitionLocked([]Phase{PhasePrepared}, PhaseRestarting); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	t.runtime.Revert(ctx)
	t.runtime.Reset()

	t.mu.Lock()
	for k, a := range t.attachments {
		if !a.survivable {
			delete(t.attachments, k)
		}
	}
	t.report.Reset()
	listeners := append([]Listener(nil), t.postRestart...)
	t.phase = PhaseActive
	t.mu.Unlock()

	for _, l := range listeners {
		l(t)
	}
	return nil
}
