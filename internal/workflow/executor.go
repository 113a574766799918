// Package workflow implements the FSM engine: it drives one
// WorkflowExecution through its declared states one tick at a time:
// enter state, execute it by kind, evaluate its transitions in
// declared order, advance or terminate, persisting progress after
// every tick. Nothing in this package resumes a persisted execution
// after a crash or restart.
// Execution by kind is dispatched to a narrow StateExecutor per
// domain.StateKind.
package workflow

import (
	"context"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// StateExecutor runs one State to completion and returns its output,
// which is folded into both WorkflowExecution.StateOutputs and the
// blackboard at the key named by the state.
type StateExecutor interface {
	Execute(ctx context.Context, we *domain.WorkflowExecution, name string, st domain.State) (output interface{}, err error)
	Supports(kind domain.StateKind) bool
}

// Dispatcher selects the StateExecutor registered for a State's Kind.
type Dispatcher struct {
	executors []StateExecutor
}

func NewDispatcher(executors ...StateExecutor) *Dispatcher {
	return &Dispatcher{executors: executors}
}

func (d *Dispatcher) executorFor(kind domain.StateKind) (StateExecutor, bool) {
	for _, e := range d.executors {
		if e.Supports(kind) {
			return e, true
		}
	}
	return nil, false
}
