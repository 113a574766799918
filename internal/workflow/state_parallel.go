package workflow

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// ParallelAgentsStateExecutor fans the same blackboard-derived input
// out to every named agent concurrently and joins per the state's
// JoinPolicy.
type ParallelAgentsStateExecutor struct {
	agents repo.AgentRepository
	runner AgentRunner
}

func NewParallelAgentsStateExecutor(agents repo.AgentRepository, runner AgentRunner) *ParallelAgentsStateExecutor {
	return &ParallelAgentsStateExecutor{agents: agents, runner: runner}
}

func (e *ParallelAgentsStateExecutor) Supports(kind domain.StateKind) bool {
	return kind == domain.StateParallelAgents
}

type parallelOutcome struct {
	AgentName string
	Output    interface{}
	Err       error
}

func (e *ParallelAgentsStateExecutor) Execute(ctx context.Context, we *domain.WorkflowExecution, name string, st domain.State) (interface{}, error) {
	if len(st.ParallelAgentNames) == 0 {
		return nil, apierr.New(apierr.InvalidInput, "workflow.parallel_agents_state", "state %q declares no parallel_agents", name)
	}
	input := resolveAgentInput(we, st)

	outcomes := make([]parallelOutcome, len(st.ParallelAgentNames))
	var wg sync.WaitGroup
	for i, agentName := range st.ParallelAgentNames {
		wg.Add(1)
		go func(i int, agentName string) {
			defer wg.Done()
			outcomes[i] = e.runOne(ctx, agentName, input)
		}(i, agentName)
	}
	wg.Wait()

	joined := make(map[string]interface{}, len(outcomes))
	succeeded := 0
	var firstErr error
	for _, o := range outcomes {
		if o.Err != nil {
			if firstErr == nil {
				firstErr = o.Err
			}
			continue
		}
		succeeded++
		joined[o.AgentName] = o.Output
	}

	policy := st.JoinPolicy
	if policy == "" {
		policy = domain.JoinAll
	}
	switch policy {
	case domain.JoinAll:
		if succeeded != len(outcomes) {
			return joined, apierr.Wrap(apierr.Transient, "workflow.parallel_agents_state", firstErr, "not every parallel agent succeeded (%d/%d)", succeeded, len(outcomes))
		}
	case domain.JoinAny, domain.JoinFirstSuccess:
		if succeeded == 0 {
			return joined, apierr.Wrap(apierr.Transient, "workflow.parallel_agents_state", firstErr, "no parallel agent succeeded")
		}
	}
	return joined, nil
}

func (e *ParallelAgentsStateExecutor) runOne(ctx context.Context, agentName string, input map[string]interface{}) parallelOutcome {
	agent, err := e.agents.FindByName(ctx, agentName)
	if err != nil {
		return parallelOutcome{AgentName: agentName, Err: err}
	}
	exec, err := e.runner.Run(ctx, agent.ID, input)
	if err != nil {
		return parallelOutcome{AgentName: agentName, Err: err}
	}
	if exec.Status != domain.ExecutionCompleted {
		return parallelOutcome{AgentName: agentName, Err: apierr.New(apierr.Transient, "workflow.parallel_agents_state", "agent %q ended in status %s", agentName, exec.Status)}
	}
	var output interface{}
	if len(exec.Iterations) > 0 {
		output = exec.Iterations[len(exec.Iterations)-1].Output
	}
	return parallelOutcome{AgentName: agentName, Output: output}
}
