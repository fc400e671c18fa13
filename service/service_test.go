package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
	"github.com/nomis52/msc/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	startCalls int
	stopCalls  int
	fail       bool
}

func (f *fakeService) Start(ctx context.Context, sc *service.StartContext) {
	f.startCalls++
	if f.fail {
		sc.Fail()
		return
	}
	sc.Complete()
}

func (f *fakeService) Stop(ctx context.Context, sc *service.StopContext) {
	f.stopCalls++
	sc.Complete()
}

func drain(t *testing.T, tx *txn.Transaction) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Prepare(ctx))
}

func TestActiveModeStartsOnInstall(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeActive, nil)
	ctrl.Activate(tx.Runtime())

	drain(t, tx)

	assert.Equal(t, service.StateUp, ctrl.State())
	assert.Equal(t, 1, svc.startCalls)
}

func TestOnDemandStaysDownWithoutDemand(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeOnDemand, nil)
	ctrl.Activate(tx.Runtime())

	drain(t, tx)

	assert.Equal(t, service.StateDown, ctrl.State())
	assert.Equal(t, 0, svc.startCalls)
}

func TestOnDemandStartsWhenDemanded(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeOnDemand, nil)
	ctrl.Activate(tx.Runtime())
	ctrl.Demand(tx.Runtime())

	drain(t, tx)

	assert.Equal(t, service.StateUp, ctrl.State())

	ctrl.Undemand(tx.Runtime())
	drain2(t, tx)
	assert.Equal(t, service.StateDown, ctrl.State())
}

func drain2(t *testing.T, tx *txn.Transaction) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Runtime().Drain(ctx, task.GoExecutor{}))
}

func TestFailedStartTransitionsToFailed(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{fail: true}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeActive, nil)
	ctrl.Activate(tx.Runtime())

	drain(t, tx)

	assert.Equal(t, service.StateFailed, ctrl.State())
}

func TestDisableStopsRunningService(t *testing.T) {
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	svc := &fakeService{}
	ctrl := service.NewController(name.Of("a"), svc, service.ModeActive, nil)
	ctrl.Activate(tx.Runtime())
	drain(t, tx)
	require.Equal(t, service.StateUp, ctrl.State())

	require.NoError(t, ctrl.Disable(tx))
	drain2(t, tx)

	assert.Equal(t, service.StateDown, ctrl.State())
	assert.Equal(t, 1, svc.stopCalls)
}
