package txn

import "errors"

var (
	// ErrInvalidTransactionState is returned when an operation is attempted
	// on a transaction whose phase does not permit it, per spec.md §4.2 /
	// §8 ("Prepare-after-commit, commit-after-commit, commit-after-abort
	// all fail with INVALID_TRANSACTION_STATE without side effects").
	ErrInvalidTransactionState = errors.New("txn: invalid transaction state")

	// ErrUpdateInProgress is returned by CreateUpdate/CreateRead when an
	// incompatible transaction already holds the controller.
	ErrUpdateInProgress = errors.New("txn: an update transaction is already active")

	// ErrCannotCommit is returned by Commit when the problem report
	// contains an Error-or-worse entry; the caller must Abort instead.
	ErrCannotCommit = errors.New("txn: problem report blocks commit")
)
