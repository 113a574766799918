package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
	"github.com/aegis-run/orchestrator/internal/workflow"
)

// fakeRunner always completes the requested agent with a fixed output,
// keyed by agent ID, so tests can drive transition conditions
// deterministically without a real execengine.Engine.
type fakeRunner struct {
	outputByAgent map[string]interface{}
}

func (f *fakeRunner) Run(_ context.Context, agentID domain.AgentID, _ map[string]interface{}) (*domain.Execution, error) {
	return &domain.Execution{
		ID:         domain.NewExecutionID(),
		AgentID:    agentID,
		Status:     domain.ExecutionCompleted,
		Iterations: []domain.Iteration{{Number: 1, Output: f.outputByAgent[string(agentID)]}},
	}, nil
}

func seedWorkflow(t *testing.T, workflows *memory.WorkflowRepository, spec domain.WorkflowSpec) domain.WorkflowID {
	t.Helper()
	wf := &domain.Workflow{
		ID:       domain.NewWorkflowID(),
		Metadata: domain.WorkflowMetadata{Name: "test-workflow", Version: "1"},
		Spec:     spec,
	}
	require.NoError(t, workflows.Save(context.Background(), wf))
	return wf.ID
}

func TestEngine_LinearAgentChainCompletes(t *testing.T) {
	agents := memory.NewAgentRepository()
	a1 := &domain.Agent{ID: domain.NewAgentID(), Name: "writer", Status: domain.AgentActive}
	a2 := &domain.Agent{ID: domain.NewAgentID(), Name: "reviewer", Status: domain.AgentActive}
	require.NoError(t, agents.Save(context.Background(), a1))
	require.NoError(t, agents.Save(context.Background(), a2))

	runner := &fakeRunner{outputByAgent: map[string]interface{}{
		string(a1.ID): "draft",
		string(a2.ID): "approved",
	}}

	dispatcher := workflow.NewDispatcher(workflow.NewAgentStateExecutor(agents, runner))
	workflows := memory.NewWorkflowRepository()
	weRepo := memory.NewWorkflowExecutionRepository()
	execs := memory.NewExecutionRepository()
	engine := workflow.New(workflows, weRepo, execs, nil, dispatcher, events.New())

	wfID := seedWorkflow(t, workflows, domain.WorkflowSpec{
		InitialState: "write",
		States: map[string]domain.State{
			"write": {
				Kind:      domain.StateAgent,
				AgentName: "writer",
				Transitions: []domain.Transition{
					{Condition: domain.Condition{Kind: domain.ConditionAlways}, TargetState: "review"},
				},
			},
			"review": {
				Kind:      domain.StateAgent,
				AgentName: "reviewer",
				// No transitions: the state graph ends here and the
				// workflow completes.
			},
		},
	})

	we, err := engine.Start(context.Background(), wfID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.WorkflowCompleted, we.Status)
	require.Equal(t, "draft", we.StateOutputs["write"])
	require.Equal(t, "approved", we.StateOutputs["review"])
}

func TestEngine_ConditionalTransitionOnThreshold(t *testing.T) {
	agents := memory.NewAgentRepository()
	judge := &domain.Agent{ID: domain.NewAgentID(), Name: "judge", Status: domain.AgentActive}
	require.NoError(t, agents.Save(context.Background(), judge))

	runner := &fakeRunner{outputByAgent: map[string]interface{}{
		string(judge.ID): map[string]interface{}{"score": 0.9},
	}}

	dispatcher := workflow.NewDispatcher(workflow.NewAgentStateExecutor(agents, runner), workflow.NewSystemStateExecutor())
	workflows := memory.NewWorkflowRepository()
	weRepo := memory.NewWorkflowExecutionRepository()
	execs := memory.NewExecutionRepository()
	engine := workflow.New(workflows, weRepo, execs, nil, dispatcher, events.New())

	wfID := seedWorkflow(t, workflows, domain.WorkflowSpec{
		InitialState: "score",
		States: map[string]domain.State{
			"score": {
				Kind:      domain.StateAgent,
				AgentName: "judge",
				Transitions: []domain.Transition{
					{Condition: domain.Condition{Kind: domain.ConditionGreaterThan, Path: "score.score", Threshold: 0.8}, TargetState: "accept"},
					{Condition: domain.Condition{Kind: domain.ConditionAlways}, TargetState: "reject"},
				},
			},
			"accept": {Kind: domain.StateSystem, Command: "true"},
			"reject": {Kind: domain.StateSystem, Command: "false"},
		},
	})

	we, err := engine.Start(context.Background(), wfID, nil)
	require.NoError(t, err)
	require.Equal(t, "accept", we.CurrentState)
}

func TestEngine_NoTransitionSatisfiedFails(t *testing.T) {
	workflows := memory.NewWorkflowRepository()
	weRepo := memory.NewWorkflowExecutionRepository()
	execs := memory.NewExecutionRepository()
	dispatcher := workflow.NewDispatcher(workflow.NewSystemStateExecutor())
	engine := workflow.New(workflows, weRepo, execs, nil, dispatcher, events.New())

	wfID := seedWorkflow(t, workflows, domain.WorkflowSpec{
		InitialState: "fails",
		States: map[string]domain.State{
			"fails": {
				Kind:    domain.StateSystem,
				Command: "exit 1",
				Transitions: []domain.Transition{
					{Condition: domain.Condition{Kind: domain.ConditionEquals, Path: "fails.exit_code", Value: float64(0)}, TargetState: "fails"},
				},
			},
		},
	})

	we, err := engine.Start(context.Background(), wfID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.WorkflowFailed, we.Status)
}
