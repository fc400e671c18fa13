// Package service implements the per-service state machine described in
// spec.md §3/§4.5: a controller driven by mode, an unsatisfied-dependency
// counter, a demanded-by counter, and enable/remove flags, converging to a
// stable DOWN/STARTING/UP/FAILED/STOPPING/REMOVING/REMOVED state after
// every input change, and issuing start/stop/remove task subgraphs onto a
// task.Runtime.
//
// Grounded on orchestrator's per-instance sync.Mutex plus its
// recompute-after-mutation idiom (runActivity re-checks result.IsSuccess()
// after every dependency signal) and server/handlers' validate-then-mutate
// idiom for the synchronous pre-transaction checks.
package service

import (
	"context"
	"sync"
)

// Mode is the controller-level policy governing whether a service demands
// its dependencies and whether it itself requires external demand.
type Mode int

const (
	ModeActive Mode = iota
	ModeLazy
	ModeOnDemand
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "ACTIVE"
	case ModeLazy:
		return "LAZY"
	case ModeOnDemand:
		return "ON_DEMAND"
	default:
		return "UNKNOWN"
	}
}

// State is the controller's externally observable lifecycle state.
type State int

const (
	StateDown State = iota
	StateStarting
	StateUp
	StateFailed
	StateStopping
	StateRemoving
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDown:
		return "DOWN"
	case StateStarting:
		return "STARTING"
	case StateUp:
		return "UP"
	case StateFailed:
		return "FAILED"
	case StateStopping:
		return "STOPPING"
	case StateRemoving:
		return "REMOVING"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Service is the user-supplied lifecycle contract (spec.md §6). Start and
// Stop must each make exactly one terminating call on the context they are
// given.
type Service interface {
	Start(ctx context.Context, sc *StartContext)
	Stop(ctx context.Context, sc *StopContext)
}

// StartContext is handed to Service.Start; exactly one of Complete or Fail
// must be called.
type StartContext struct {
	once   sync.Once
	result chan bool // true => failed
}

func newStartContext() *StartContext {
	return &StartContext{result: make(chan bool, 1)}
}

// Complete signals that the service started successfully.
func (sc *StartContext) Complete() {
	sc.once.Do(func() { sc.result <- false })
}

// Fail signals that the service failed to start.
func (sc *StartContext) Fail() {
	sc.once.Do(func() { sc.result <- true })
}

func (sc *StartContext) wait() bool { return <-sc.result }

// StopContext is handed to Service.Stop; exactly one call to Complete is
// expected.
type StopContext struct {
	once sync.Once
	done chan struct{}
}

func newStopContext() *StopContext {
	return &StopContext{done: make(chan struct{})}
}

// Complete signals that the service finished stopping.
func (sc *StopContext) Complete() {
	sc.once.Do(func() { close(sc.done) })
}

func (sc *StopContext) wait() { <-sc.done }
