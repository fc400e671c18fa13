package container_test

import (
	"context"
	"testing"

	"github.com/nomis52/msc/builder"
	"github.com/nomis52/msc/container"
	"github.com/nomis52/msc/mscconfig"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct{ started, stopped int }

func (f *fakeService) Start(ctx context.Context, sc *service.StartContext) {
	f.started++
	sc.Complete()
}
func (f *fakeService) Stop(ctx context.Context, sc *service.StopContext) {
	f.stopped++
	sc.Complete()
}

func newTestContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := mscconfig.Config{}
	cfg.SetDefaults()
	c, err := container.New(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNewRegistersDefaultRegistry(t *testing.T) {
	c := newTestContainer(t)
	assert.NotNil(t, c.Registry("default"))
	assert.Len(t, c.Registries(), 1)
}

func TestInstallAndCommitStartsService(t *testing.T) {
	c := newTestContainer(t)
	reg := c.Registry("default")

	tx, err := c.CreateUpdate()
	require.NoError(t, err)

	sc := builder.NewServiceContext(tx, c.Registries()...)
	svc := &fakeService{}
	ctrl, err := sc.AddService(reg, name.Of("a")).SetService(svc).Install()
	require.NoError(t, err)

	require.NoError(t, c.Commit(context.Background(), tx))
	assert.Equal(t, service.StateUp, ctrl.State())
	assert.Equal(t, 1, svc.started)

	controllers := c.Controllers()
	require.Len(t, controllers, 1)
	assert.Equal(t, ctrl, controllers[0])
}

func TestPushMetricsNoopWithoutPushURL(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.PushMetrics(context.Background()))
}
