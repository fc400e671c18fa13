package msccron_test

import (
	"context"
	"testing"
	"time"

	"github.com/nomis52/msc/msccron"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
	"github.com/nomis52/msc/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct{ fail bool }

func (f *fakeService) Start(ctx context.Context, sc *service.StartContext) {
	if f.fail {
		sc.Fail()
		return
	}
	sc.Complete()
}
func (f *fakeService) Stop(ctx context.Context, sc *service.StopContext) { sc.Complete() }

type listerFunc func() []*service.Controller

func (f listerFunc) Controllers() []*service.Controller { return f() }

func drain(t *testing.T, tx *txn.Transaction) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Prepare(ctx))
	if tx.CanCommit() {
		require.NoError(t, tx.Commit(ctx))
	}
}

func TestRetryFailedRecoversFailedController(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{fail: true}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeActive, nil)
	ctrl.Activate(tx.Runtime())
	drain(t, tx)
	require.Equal(t, service.StateFailed, ctrl.State())

	svc.fail = false
	sweeper := msccron.NewSweeper(controller, task.GoExecutor{}, listerFunc(func() []*service.Controller {
		return []*service.Controller{ctrl}
	}), nil)

	ctx := context.Background()
	require.NoError(t, sweeper.RetryFailed(ctx))
	assert.Equal(t, service.StateUp, ctrl.State())
}

func TestRetryFailedNoopWhenNothingFailed(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeActive, nil)
	ctrl.Activate(tx.Runtime())
	drain(t, tx)
	require.Equal(t, service.StateUp, ctrl.State())

	sweeper := msccron.NewSweeper(controller, task.GoExecutor{}, listerFunc(func() []*service.Controller {
		return []*service.Controller{ctrl}
	}), nil)

	require.NoError(t, sweeper.RetryFailed(context.Background()))
	assert.Equal(t, service.StateUp, ctrl.State())
}

func TestAuditStuckDemandDoesNotPanic(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeOnDemand, nil)
	ctrl.Activate(tx.Runtime())
	ctrl.Demand(tx.Runtime())
	drain(t, tx)

	sweeper := msccron.NewSweeper(controller, task.GoExecutor{}, listerFunc(func() []*service.Controller {
		return []*service.Controller{ctrl}
	}), nil)
	sweeper.AuditStuckDemand()
}
