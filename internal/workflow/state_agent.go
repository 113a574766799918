package workflow

import (
	"context"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// AgentRunner is the slice of internal/execengine.Engine the Agent and
// ParallelAgents executors need: run one agent to completion and
// return its final Execution.
type AgentRunner interface {
	Run(ctx context.Context, agentID domain.AgentID, input map[string]interface{}) (*domain.Execution, error)
}

// AgentStateExecutor runs a single named agent via internal/execengine
// and surfaces its last iteration's output as the state's output.
type AgentStateExecutor struct {
	agents repo.AgentRepository
	runner AgentRunner
}

func NewAgentStateExecutor(agents repo.AgentRepository, runner AgentRunner) *AgentStateExecutor {
	return &AgentStateExecutor{agents: agents, runner: runner}
}

func (e *AgentStateExecutor) Supports(kind domain.StateKind) bool { return kind == domain.StateAgent }

func (e *AgentStateExecutor) Execute(ctx context.Context, we *domain.WorkflowExecution, name string, st domain.State) (interface{}, error) {
	agent, err := e.agents.FindByName(ctx, st.AgentName)
	if err != nil {
		return nil, err
	}
	input := resolveAgentInput(we, st)
	exec, err := e.runner.Run(ctx, agent.ID, input)
	if err != nil {
		return nil, err
	}
	if exec.Status != domain.ExecutionCompleted {
		return nil, apierr.New(apierr.Transient, "workflow.agent_state", "agent %q ended in status %s", st.AgentName, exec.Status)
	}
	if len(exec.Iterations) == 0 {
		return nil, nil
	}
	return exec.Iterations[len(exec.Iterations)-1].Output, nil
}

// resolveAgentInput builds the agent's execution input from the
// workflow's current blackboard plus the state's literal agent_input,
// so downstream states can reference upstream outputs by name.
// agent_input is expanded as a template first, so a state can write
// "{{ triage.category }}" to interpolate a prior state's output
// rather than only ever passing the literal string through.
func resolveAgentInput(we *domain.WorkflowExecution, st domain.State) map[string]interface{} {
	input := make(map[string]interface{}, len(we.Blackboard)+1)
	for k, v := range we.Blackboard {
		input[k] = v
	}
	if st.AgentInput != "" {
		input["task"] = expandTemplate(st.AgentInput, we.Blackboard)
	}
	return input
}
