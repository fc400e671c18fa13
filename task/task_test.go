package task_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nomis52/msc/problem"
	"github.com/nomis52/msc/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearChainExecutesInOrder(t *testing.T) {
	rt := task.NewRuntime(nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) task.Executable {
		return func(ctx context.Context, spawn *task.Context) task.Disposition {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return task.Complete
		}
	}

	e0, err := rt.AddTask(task.Spec{Name: "e0", Execute: record("e0")})
	require.NoError(t, err)
	_, err = rt.AddTask(task.Spec{Name: "e1", Execute: record("e1"), Predecessors: []*task.Task{e0}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Drain(ctx, task.GoExecutor{}))

	assert.Equal(t, []string{"e0", "e1"}, order)
}

func TestParentWaitsForChildren(t *testing.T) {
	rt := task.NewRuntime(nil)

	var mu sync.Mutex
	var order []string
	append_ := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	_, err := rt.AddTask(task.Spec{
		Name: "parent",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition {
			append_("parent-start")
			_, err := spawn.Spawn(task.Spec{
				Name: "child",
				Execute: func(ctx context.Context, spawn *task.Context) task.Disposition {
					append_("child")
					return task.Complete
				},
			})
			require.NoError(t, err)
			return task.Complete
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Drain(ctx, task.GoExecutor{}))

	require.Len(t, order, 2)
	assert.Equal(t, "parent-start", order[0])
	assert.Equal(t, "child", order[1])
}

func TestAbortRevertsInReverseOrder(t *testing.T) {
	rt := task.NewRuntime(nil)

	var mu sync.Mutex
	var order []string
	rec := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	e0, err := rt.AddTask(task.Spec{
		Name:    "e0",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition { rec("e0"); return task.Complete },
		Revert:  func(ctx context.Context) { rec("r0") },
	})
	require.NoError(t, err)
	_, err = rt.AddTask(task.Spec{
		Name:         "e1",
		Execute:      func(ctx context.Context, spawn *task.Context) task.Disposition { rec("e1"); return task.Complete },
		Revert:       func(ctx context.Context) { rec("r1") },
		Predecessors: []*task.Task{e0},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Drain(ctx, task.GoExecutor{}))

	rt.Revert(context.Background())

	assert.Equal(t, []string{"e0", "e1", "r1", "r0"}, order)
}

func TestCancelledTaskSkipsRevert(t *testing.T) {
	rt := task.NewRuntime(nil)

	reverted := false
	_, err := rt.AddTask(task.Spec{
		Name:    "cancels",
		Execute: func(ctx context.Context, spawn *task.Context) task.Disposition { return task.Cancelled },
		Revert:  func(ctx context.Context) { reverted = true },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Drain(ctx, task.GoExecutor{}))

	rt.Revert(context.Background())
	assert.False(t, reverted)
}

func TestValidateFailureRecordsProblem(t *testing.T) {
	rt := task.NewRuntime(nil)
	_, err := rt.AddTask(task.Spec{
		Name:     "t",
		Execute:  func(ctx context.Context, spawn *task.Context) task.Disposition { return task.Complete },
		Validate: func(ctx context.Context) error { return assert.AnError },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Drain(ctx, task.GoExecutor{}))

	var report problem.Report
	rt.Validate(context.Background(), &report)
	assert.False(t, report.CanCommit())
}
