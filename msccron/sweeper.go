// Package msccron runs the container's two maintenance sweeps — a
// retry-FAILED sweep and a stuck-demand audit — on robfig/cron/v3
// schedules.
//
// Grounded on server/cron.CronTriggerManager: a handful of independently
// scheduled robfig/cron/v3 entries, each invoking one callback and logging
// its own NextRun() at registration time. The spec's §5.5 Retry operation
// and §4.5 state machine give the two callbacks their content; the
// scheduling shell is the teacher's.
package msccron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
	"github.com/nomis52/msc/txn"
)

// ControllerLister supplies the live set of service controllers to sweep.
// The container implements this by returning every controller it has
// installed across its registries.
type ControllerLister interface {
	Controllers() []*service.Controller
}

// Sweeper owns a robfig/cron/v3 scheduler running the retry-FAILED sweep
// and the stuck-demand audit against a container's controllers.
type Sweeper struct {
	txnController *txn.Controller
	executor      task.Executor
	lister        ControllerLister
	logger        *slog.Logger

	cron *cron.Cron
}

// NewSweeper builds a Sweeper. It does not start the scheduler; call Start.
func NewSweeper(txnController *txn.Controller, executor task.Executor, lister ControllerLister, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		txnController: txnController,
		executor:      executor,
		lister:        lister,
		logger:        logger.With("component", "msccron.Sweeper"),
		cron:          cron.New(),
	}
}

// AddRetrySchedule registers the retry-FAILED sweep on the given cron spec
// (standard 5-field, minute hour dom month dow).
func (s *Sweeper) AddRetrySchedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.RetryFailed(context.Background()); err != nil {
			s.logger.Warn("retry sweep failed", "error", err)
		}
	})
	return err
}

// AddAuditSchedule registers the stuck-demand audit on the given cron spec.
func (s *Sweeper) AddAuditSchedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.AuditStuckDemand()
	})
	return err
}

// Start launches the scheduler in the background. Returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("sweeper stopped")
	}()
}

// RetryFailed opens a single update transaction, calls Retry on every
// controller currently in StateFailed, and commits.
func (s *Sweeper) RetryFailed(ctx context.Context) error {
	tx, err := s.txnController.CreateUpdate(s.executor)
	if err != nil {
		return err
	}

	retried := 0
	for _, ctrl := range s.lister.Controllers() {
		if ctrl.State() != service.StateFailed {
			continue
		}
		if err := ctrl.Retry(tx); err != nil {
			s.logger.Warn("retry rejected", "service", ctrl.Name().String(), "error", err)
			continue
		}
		retried++
	}

	if retried == 0 {
		return tx.Abort(ctx)
	}

	if err := tx.Prepare(ctx); err != nil {
		return err
	}
	if !tx.CanCommit() {
		return tx.Abort(ctx)
	}
	return tx.Commit(ctx)
}

// AuditStuckDemand logs every controller that is demanded (directly or via
// propagation) yet still down, or still unsatisfied, so an operator can
// spot a dependency stuck unresolved without inspecting each service by
// hand.
func (s *Sweeper) AuditStuckDemand() {
	for _, ctrl := range s.lister.Controllers() {
		snap := ctrl.Snapshot()
		switch {
		case snap.State == service.StateDown && snap.DemandedBy > 0:
			s.logger.Warn("service demanded but down", "service", snap.Name, "demanded_by", snap.DemandedBy)
		case snap.Unsatisfied > 0 && snap.State != service.StateDown:
			s.logger.Warn("service up with unsatisfied dependency count", "service", snap.Name, "unsatisfied", snap.Unsatisfied, "state", snap.State.String())
		}
	}
}
