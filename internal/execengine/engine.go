package execengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// EventPublisher is satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// Engine is the iterative execution engine: it drives one Execution's
// refine-until-valid loop, recursing into judge executions through the
// same loop (depth-bounded) and cascading cancellation to every
// execution sharing a root_id.
type Engine struct {
	execs     repo.ExecutionRepository
	agents    repo.AgentRepository
	runtime   Runtime
	validator Validator
	events    EventPublisher
	shutdown  *shutdownRegistry
	now       func() time.Time

	mu        sync.Mutex
	instances map[domain.ExecutionID]string // execution id -> runtime instance id, for Cancel to Stop()
}

// New builds an Engine. validator may be nil, in which case every
// iteration's output is auto-accepted: an agent whose manifest declares
// no judges has nothing to score against.
func New(execs repo.ExecutionRepository, agents repo.AgentRepository, runtime Runtime, validator Validator, publisher EventPublisher) *Engine {
	return &Engine{
		execs:     execs,
		agents:    agents,
		runtime:   runtime,
		validator: validator,
		events:    publisher,
		shutdown:  newShutdownRegistry(),
		now:       time.Now,
		instances: make(map[domain.ExecutionID]string),
	}
}

// SetValidator wires a Validator after construction, needed because
// internal/validation.Service's own constructor takes the Engine back
// as its Executor (RunJudge), so the two can't be built in one step.
// Safe to call once during composition, before any execution starts.
func (e *Engine) SetValidator(validator Validator) {
	e.validator = validator
}

// StartExecution constructs a root Execution, persists and emits
// ExecutionStarted, then drives its iteration loop on a background
// goroutine, returning the execution id immediately. Callers observe
// progress via StreamExecution or by polling FindByID.
func (e *Engine) StartExecution(ctx context.Context, agentID domain.AgentID, input map[string]interface{}) (domain.ExecutionID, error) {
	exec, err := e.newRootExecution(ctx, agentID, input)
	if err != nil {
		return "", err
	}
	go func() {
		// Detach from the caller's context but still honor the
		// execution's own cancellation/shutdown signal.
		e.run(context.Background(), exec)
	}()
	return exec.ID, nil
}

// Run is the synchronous form of StartExecution: it drives the
// iteration loop to completion on the calling goroutine and returns
// the final Execution. Used by the workflow FSM engine's Agent states,
// which need the final output before they can evaluate transitions.
func (e *Engine) Run(ctx context.Context, agentID domain.AgentID, input map[string]interface{}) (*domain.Execution, error) {
	exec, err := e.newRootExecution(ctx, agentID, input)
	if err != nil {
		return nil, err
	}
	e.run(ctx, exec)
	return exec, nil
}

func (e *Engine) newRootExecution(ctx context.Context, agentID domain.AgentID, input map[string]interface{}) (*domain.Execution, error) {
	agent, err := e.agents.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	id := domain.NewExecutionID()
	maxIter := agent.Manifest.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}
	exec := &domain.Execution{
		ID:            id,
		AgentID:       agentID,
		Status:        domain.ExecutionPending,
		Input:         input,
		MaxIterations: maxIter,
		StartedAt:     e.now(),
		Hierarchy:     domain.RootHierarchy(id),
	}
	if err := exec.Transition(domain.ExecutionRunning); err != nil {
		return nil, err
	}
	if err := e.execs.Save(ctx, exec); err != nil {
		return nil, err
	}
	e.events.Publish(events.NewExecutionStarted(exec.ID.String(), agentID.String()))
	return exec, nil
}

// RunJudge spawns a child execution one level deeper than parentHierarchy
// to score content on behalf of internal/validation. It fails
// MaxDepthExceeded before ever touching the runtime if
// parentHierarchy.Depth+1 would exceed domain.MaxRecursiveDepth.
//
// Signature is deliberately expressed only in terms of domain types and
// stdlib so internal/validation's Executor interface is satisfied
// structurally, without either package importing the other's non-domain
// types (see internal/execengine/consensus.go and
// internal/validation/service.go).
func (e *Engine) RunJudge(ctx context.Context, parentHierarchy domain.Hierarchy, parentExecID domain.ExecutionID, judgeAgentID domain.AgentID, payload map[string]interface{}) (*domain.Execution, error) {
	hierarchy, err := domain.ChildHierarchy(parentHierarchy, parentExecID)
	if err != nil {
		return nil, apierr.Wrap(apierr.InvalidInput, "execengine.RunJudge", err, "max recursive depth exceeded")
	}

	agent, err := e.agents.FindByID(ctx, judgeAgentID)
	if err != nil {
		return nil, err
	}
	maxIter := agent.Manifest.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}
	exec := &domain.Execution{
		ID:            domain.NewExecutionID(),
		AgentID:       judgeAgentID,
		Status:        domain.ExecutionPending,
		Input:         payload,
		MaxIterations: maxIter,
		StartedAt:     e.now(),
		Hierarchy:     hierarchy,
	}
	if err := exec.Transition(domain.ExecutionRunning); err != nil {
		return nil, err
	}
	if err := e.execs.Save(ctx, exec); err != nil {
		return nil, err
	}
	e.events.Publish(events.NewExecutionStarted(exec.ID.String(), judgeAgentID.String()))

	e.run(ctx, exec)
	return exec, nil
}

// CancelExecution closes the shutdown signal of id's root execution and
// stops id's runtime instance. Every execution sharing that root_id
// (the root and all of its judge children) observes the signal and is
// transitioned to Cancelled by its own iteration loop at its next
// check. It is a no-op if the execution has already reached a terminal
// status.
func (e *Engine) CancelExecution(ctx context.Context, id domain.ExecutionID) error {
	exec, err := e.execs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	switch exec.Status {
	case domain.ExecutionCompleted, domain.ExecutionFailed, domain.ExecutionCancelled:
		return nil
	}
	e.shutdown.cancel(exec.Hierarchy.RootExecutionID)

	e.mu.Lock()
	instanceID, hasInstance := e.instances[id]
	e.mu.Unlock()
	if hasInstance && e.runtime != nil {
		_ = e.runtime.Stop(ctx, instanceID)
	}
	return nil
}

// StreamExecution returns a subscription scoped to id's events. The
// caller reads until it observes a terminal event for id
// (ExecutionCompleted/Failed/Cancelled) and then unsubscribes.
func (e *Engine) StreamExecution(bus *events.Bus, id domain.ExecutionID) *events.Subscription {
	return bus.SubscribeFiltered(events.ForExecution(id.String()))
}

// run drives exec's iteration loop in place.
// It is shared by StartExecution's background goroutine, Run's
// synchronous caller, and RunJudge's recursive call.
func (e *Engine) run(ctx context.Context, exec *domain.Execution) {
	rootID := exec.Hierarchy.RootExecutionID
	shutdown := e.shutdown.signalFor(rootID)

	agent, err := e.agents.FindByID(ctx, exec.AgentID)
	if err != nil {
		e.fail(ctx, exec, fmt.Sprintf("agent lookup failed: %v", err))
		return
	}

	instanceID, err := e.runtime.Spawn(ctx, RuntimeConfig{
		RuntimeImage:   agent.Manifest.RuntimeImage,
		InitialIntent:  agent.Manifest.InitialIntent,
		Env:            nil,
		TimeoutSeconds: agent.Manifest.TimeoutSeconds,
	})
	if err != nil {
		e.fail(ctx, exec, fmt.Sprintf("runtime spawn failed: %v", err))
		return
	}
	e.mu.Lock()
	e.instances[exec.ID] = instanceID
	e.mu.Unlock()
	defer func() {
		_ = e.runtime.Stop(context.Background(), instanceID)
		e.mu.Lock()
		delete(e.instances, exec.ID)
		e.mu.Unlock()
		if rootID == exec.ID {
			e.shutdown.forget(rootID)
		}
	}()

	for n := 1; n <= exec.MaxIterations; n++ {
		select {
		case <-shutdown:
			e.cancel(ctx, exec)
			return
		default:
		}

		action := agent.Manifest.InitialIntent
		e.events.Publish(events.NewIterationStarted(exec.ID.String(), n, action))
		it := domain.Iteration{Number: n, Action: action, StartedAt: e.now()}

		out, err := e.runtime.Execute(ctx, instanceID, exec.Input)
		now := e.now()
		it.CompletedAt = &now
		if err != nil {
			it.Error = err.Error()
			exec.AppendIteration(it)
			_ = e.execs.Save(ctx, exec)
			e.events.Publish(events.NewIterationFailed(exec.ID.String(), n, err.Error()))
			select {
			case <-shutdown:
				e.cancel(ctx, exec)
				return
			default:
			}
			if n >= exec.MaxIterations {
				e.fail(ctx, exec, "max iterations")
				return
			}
			continue
		}

		it.Output = out.Result
		it.LLMInteractions = out.LLMInteractions
		exec.AppendIteration(it)
		for _, interaction := range out.LLMInteractions {
			e.events.Publish(events.NewLlmInteraction(exec.ID.String(), interaction.Provider, interaction.Model))
		}
		if err := e.execs.Save(ctx, exec); err != nil {
			e.fail(ctx, exec, fmt.Sprintf("persist iteration: %v", err))
			return
		}
		e.events.Publish(events.NewIterationCompleted(exec.ID.String(), n, out.Result))

		consensus, accepted := e.validate(ctx, exec, out.Result, agent)
		if accepted {
			e.complete(ctx, exec, out.Result, n)
			return
		}

		if n >= exec.MaxIterations {
			e.fail(ctx, exec, "max iterations")
			return
		}

		feedback := map[string]interface{}{"score": 0.0, "reasoning": ""}
		if consensus != nil {
			feedback["score"] = consensus.FinalScore
			feedback["confidence"] = consensus.ConsensusConfidence
			feedback["reasoning"] = consensus.Reasoning
		}
		e.events.Publish(events.NewRefinementApplied(exec.ID.String(), n, feedback))
		next := cloneInput(exec.Input)
		next["validation_feedback"] = feedback
		exec.Input = next
	}

	e.fail(ctx, exec, "max iterations")
}

// validate calls the configured Validator, if any, over the agent's
// consensus config. A nil Validator or a manifest with no judges
// configured auto-accepts every iteration (see New's doc comment).
func (e *Engine) validate(ctx context.Context, exec *domain.Execution, output interface{}, agent *domain.Agent) (*ConsensusResult, bool) {
	cfg := manifestConsensusConfig(agent.Manifest)
	if len(cfg.Judges) == 0 || e.validator == nil {
		return nil, true
	}
	judgeIDs := make([]domain.AgentID, 0, len(cfg.Judges))
	for _, name := range cfg.Judges {
		judge, err := e.agents.FindByName(ctx, name)
		if err != nil {
			continue
		}
		judgeIDs = append(judgeIDs, judge.ID)
	}
	if len(judgeIDs) == 0 {
		return nil, true
	}
	consensus, err := e.validator.ValidateWithJudges(ctx, exec.ID, output, nil, judgeIDs, cfg)
	if err != nil {
		return nil, false
	}
	return consensus, consensus.Accepted || consensus.FinalScore >= cfg.AcceptThreshold
}

func (e *Engine) complete(ctx context.Context, exec *domain.Execution, output interface{}, iterations int) {
	if err := exec.Transition(domain.ExecutionCompleted); err != nil {
		return
	}
	now := e.now()
	exec.EndedAt = &now
	_ = e.execs.Save(ctx, exec)
	e.events.Publish(events.NewExecutionCompleted(exec.ID.String(), output, iterations))
}

func (e *Engine) fail(ctx context.Context, exec *domain.Execution, reason string) {
	if err := exec.Transition(domain.ExecutionFailed); err != nil {
		return
	}
	now := e.now()
	exec.EndedAt = &now
	exec.Error = reason
	_ = e.execs.Save(ctx, exec)
	e.events.Publish(events.NewExecutionFailed(exec.ID.String(), reason))
}

func (e *Engine) cancel(ctx context.Context, exec *domain.Execution) {
	if err := exec.Transition(domain.ExecutionCancelled); err != nil {
		return
	}
	now := e.now()
	exec.EndedAt = &now
	_ = e.execs.Save(ctx, exec)
	e.events.Publish(events.NewExecutionCancelled(exec.ID.String()))
}

// manifestConsensusConfig derives a ConsensusConfig from the agent
// manifest's judge declaration, falling back to DefaultConsensusConfig
// for threshold/strategy/timeout when the manifest leaves them unset.
func manifestConsensusConfig(m domain.AgentManifest) ConsensusConfig {
	cfg := DefaultConsensusConfig()
	cfg.Judges = m.Judges
	if m.AcceptThreshold > 0 {
		cfg.AcceptThreshold = m.AcceptThreshold
	}
	if m.ConsensusStrategy != "" {
		cfg.Strategy = ConsensusStrategy(m.ConsensusStrategy)
	}
	if len(m.Judges) > 0 {
		cfg.MinJudgesRequired = 1
	}
	return cfg
}

func cloneInput(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
