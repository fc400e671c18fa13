package builder_test

import (
	"context"
	"testing"

	"github.com/nomis52/msc/builder"
	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
	"github.com/nomis52/msc/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopService struct{}

func (noopService) Start(ctx context.Context, sc *service.StartContext) { sc.Complete() }
func (noopService) Stop(ctx context.Context, sc *service.StopContext)   { sc.Complete() }

func TestInstallDuplicateFails(t *testing.T) {
	reg := registry.NewRegistry("r1")
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	sc := builder.NewServiceContext(tx, reg)
	_, err = sc.AddService(reg, name.Of("a")).SetService(noopService{}).Install()
	require.NoError(t, err)

	_, err = sc.AddService(reg, name.Of("a")).SetService(noopService{}).Install()
	assert.ErrorIs(t, err, registry.ErrDuplicateService)
}

func TestInstallForeignRegistryFails(t *testing.T) {
	reg := registry.NewRegistry("r1")
	foreign := registry.NewRegistry("r2")
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	sc := builder.NewServiceContext(tx, reg) // foreign not in known set
	_, err = sc.AddService(reg, name.Of("a")).
		SetService(noopService{}).
		AddDependency(foreign, name.Of("b"), depgraph.Options{}).
		Install()
	assert.ErrorIs(t, err, builder.ErrForeignController)
}

func TestInstallCycleFailsAndRollsBack(t *testing.T) {
	reg := registry.NewRegistry("r1")
	controller := txn.NewController(nil)
	tx, err := controller.CreateUpdate(task.GoExecutor{})
	require.NoError(t, err)

	sc := builder.NewServiceContext(tx, reg)

	_, err = sc.AddService(reg, name.Of("a")).
		SetService(noopService{}).
		AddDependency(nil, name.Of("b"), depgraph.Options{Requirement: depgraph.Required}).
		Install()
	require.NoError(t, err)

	_, err = sc.AddService(reg, name.Of("b")).
		SetService(noopService{}).
		AddDependency(nil, name.Of("a"), depgraph.Options{Requirement: depgraph.Required}).
		Install()
	assert.ErrorIs(t, err, depgraph.ErrCycle)

	_, ok := reg.GetService(name.Of("b"))
	assert.False(t, ok)
}
