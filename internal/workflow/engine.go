package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/cortex"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// EventPublisher is satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// PatternSeeder is the pattern-memory collaborator Engine.Start asks
// for prior art before running a fresh WorkflowExecution. Satisfied
// directly by *cortex.Service.
type PatternSeeder interface {
	SearchPatterns(ctx context.Context, embedding []float64, topK int) ([]cortex.RankedPattern, error)
}

// prepopulatedPatternCount is how many resonance-ranked patterns
// Engine.Start seeds into a fresh blackboard under
// cortexPrepopulatedPatternsKey.
const prepopulatedPatternCount = 5

const cortexPrepopulatedPatternsKey = "cortex_prepopulated_patterns"

// maxStateVisitsBeforeWarning bounds how many times the same state may
// be re-entered before the engine logs a possible-cycle warning. This
// is diagnostic only; it never halts the workflow.
const maxStateVisitsBeforeWarning = 25

// Engine drives WorkflowExecution instances through their Workflow's
// declared FSM, one tick per state, persisting after every tick via a
// durabilityLedger. Engine has no method that reloads a persisted
// WorkflowExecution and continues it, so a run interrupted by a restart
// is not resumed.
type Engine struct {
	workflows  repo.WorkflowRepository
	dispatcher *Dispatcher
	ledger     *durabilityLedger
	events     EventPublisher
	patterns   PatternSeeder
	now        func() time.Time
}

// SetPatternSeeder wires an optional pattern-memory lookup after
// construction. A nil seeder (the default) leaves
// cortexPrepopulatedPatternsKey out of every blackboard.
func (e *Engine) SetPatternSeeder(seeder PatternSeeder) {
	e.patterns = seeder
}

func New(workflows repo.WorkflowRepository, workflowExecutions repo.WorkflowExecutionRepository, appender EventAppender, bridge *NATSBridge, dispatcher *Dispatcher, publisher EventPublisher) *Engine {
	return &Engine{
		workflows:  workflows,
		dispatcher: dispatcher,
		ledger:     newDurabilityLedger(workflowExecutions, appender, bridge),
		events:     publisher,
		now:        time.Now,
	}
}

// Start constructs a new WorkflowExecution for workflowID at its
// declared InitialState and runs it until it reaches a terminal status.
// A Human state blocks the run inside its executor until a response
// arrives or the state's timeout elapses.
func (e *Engine) Start(ctx context.Context, workflowID domain.WorkflowID, input map[string]interface{}) (*domain.WorkflowExecution, error) {
	wf, err := e.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		return nil, apierr.Wrap(apierr.InvalidInput, "workflow.start", err, "invalid workflow definition")
	}
	if unreached := wf.UnreachableStates(); len(unreached) > 0 {
		slog.Warn("workflow has unreachable states", "workflow_id", workflowID, "states", unreached)
	}

	blackboard := make(map[string]interface{}, len(wf.Spec.Context)+len(input)+1)
	for k, v := range wf.Spec.Context {
		blackboard[k] = v
	}
	for k, v := range input {
		blackboard[k] = v
	}
	// Seed prior art from pattern memory before the first tick. The
	// nil-embedding query retrieves arbitrary recent patterns: no
	// embedding of the workflow's own input exists yet to search with.
	if e.patterns != nil {
		if ranked, err := e.patterns.SearchPatterns(ctx, nil, prepopulatedPatternCount); err != nil {
			slog.Warn("cortex pattern seeding failed", "workflow_id", workflowID, "error", err)
		} else {
			blackboard[cortexPrepopulatedPatternsKey] = ranked
		}
	}

	we := &domain.WorkflowExecution{
		ID:               domain.NewExecutionID(),
		WorkflowID:       workflowID,
		Status:           domain.WorkflowRunning,
		CurrentState:     wf.Spec.InitialState,
		Blackboard:       blackboard,
		Input:            input,
		StateOutputs:     make(map[string]interface{}),
		StartedAt:        e.now(),
		LastTransitionAt: e.now(),
	}
	e.events.Publish(events.NewWorkflowExecutionStarted(we.ID.String(), workflowID.String()))
	if err := e.ledger.record(ctx, we, "workflow_execution_started", we); err != nil {
		return nil, err
	}

	e.run(ctx, wf, we)
	return we, nil
}

// run ticks we forward until it reaches a terminal status.
func (e *Engine) run(ctx context.Context, wf *domain.Workflow, we *domain.WorkflowExecution) {
	visits := make(map[string]int)
	for {
		if we.Status.Terminal() {
			return
		}
		st, ok := wf.Spec.States[we.CurrentState]
		if !ok {
			e.fail(ctx, we, "current state \""+we.CurrentState+"\" not found in workflow definition")
			return
		}

		visits[we.CurrentState]++
		if visits[we.CurrentState] == maxStateVisitsBeforeWarning {
			slog.Warn("workflow state re-entered many times, possible cycle", "workflow_execution_id", we.ID, "state", we.CurrentState, "visits", visits[we.CurrentState])
		}

		if !e.tick(ctx, wf, we, st) {
			return
		}
	}
}

// tick executes the current state and advances CurrentState on a
// satisfied transition. Returns false once we has reached a terminal
// status.
func (e *Engine) tick(ctx context.Context, wf *domain.Workflow, we *domain.WorkflowExecution, st domain.State) bool {
	stateName := we.CurrentState
	e.events.Publish(events.NewStateEntered(we.ID.String(), stateName))

	executor, ok := e.dispatcher.executorFor(st.Kind)
	if !ok {
		e.fail(ctx, we, "no executor registered for state kind")
		return false
	}

	tctx := ctx
	var cancel context.CancelFunc
	if st.TimeoutSeconds > 0 {
		tctx, cancel = context.WithTimeout(ctx, time.Duration(st.TimeoutSeconds)*time.Second)
	}
	output, err := executor.Execute(tctx, we, stateName, st)
	if cancel != nil {
		cancel()
	}
	stateFailed := err != nil

	we.RecordStateOutput(stateName, output)
	we.Blackboard[stateName] = output
	we.LastTransitionAt = e.now()
	e.events.Publish(events.NewStateExited(we.ID.String(), stateName, output))
	if err := e.ledger.record(ctx, we, "state_exited", map[string]interface{}{"state": stateName, "output": output, "failed": stateFailed}); err != nil {
		e.fail(ctx, we, "failed to persist state transition")
		return false
	}

	for _, t := range st.Transitions {
		if evaluateCondition(t.Condition, we.Blackboard, stateFailed) {
			if t.FeedbackPath != "" {
				we.Blackboard[t.FeedbackPath] = output
			}
			we.CurrentState = t.TargetState
			return true
		}
	}

	// A state with no declared transitions is a terminal node by
	// design: it completes the workflow on success, fails it on error.
	// A state that DOES declare transitions but matched none of them
	// is the distinct NoTransitionSatisfied failure; it
	// never falls through to completion even if the state itself
	// succeeded.
	if len(st.Transitions) == 0 {
		if stateFailed {
			e.fail(ctx, we, "terminal state failed")
			return false
		}
		e.complete(ctx, we)
		return false
	}

	e.fail(ctx, we, "no transition satisfied")
	return false
}

func (e *Engine) complete(ctx context.Context, we *domain.WorkflowExecution) {
	we.Status = domain.WorkflowCompleted
	e.events.Publish(events.NewWorkflowExecutionCompleted(we.ID.String(), we.Blackboard, we.Artifacts))
	_ = e.ledger.record(ctx, we, "workflow_execution_completed", we.Blackboard)
}

func (e *Engine) fail(ctx context.Context, we *domain.WorkflowExecution, reason string) {
	we.Status = domain.WorkflowFailed
	e.events.Publish(events.NewWorkflowExecutionFailed(we.ID.String(), reason))
	_ = e.ledger.record(ctx, we, "workflow_execution_failed", reason)
}

// Cancel transitions we to Cancelled. It does not interrupt a
// currently-executing state's goroutine; the next tick observes the
// terminal status and stops.
func (e *Engine) Cancel(ctx context.Context, we *domain.WorkflowExecution) error {
	if we.Status.Terminal() {
		return nil
	}
	we.Status = domain.WorkflowCancelled
	e.events.Publish(events.NewWorkflowExecutionCancelled(we.ID.String()))
	return e.ledger.record(ctx, we, "workflow_execution_cancelled", nil)
}
