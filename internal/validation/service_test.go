package validation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/execengine"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
	"github.com/aegis-run/orchestrator/internal/validation"
)

// fakeExecutor scripts one completed judge execution per call, stepping
// through a fixed set of scores so tests can control disagreement.
type fakeExecutor struct {
	outputs []string // JSON bodies, one per call, last one repeated if exhausted
	calls   int
}

func (f *fakeExecutor) RunJudge(_ context.Context, parentHierarchy domain.Hierarchy, parentExecID domain.ExecutionID, judgeAgentID domain.AgentID, _ map[string]interface{}) (*domain.Execution, error) {
	idx := f.calls
	if idx >= len(f.outputs) {
		idx = len(f.outputs) - 1
	}
	f.calls++
	hierarchy, err := domain.ChildHierarchy(parentHierarchy, parentExecID)
	if err != nil {
		return nil, err
	}
	return &domain.Execution{
		ID:        domain.NewExecutionID(),
		AgentID:   judgeAgentID,
		Status:    domain.ExecutionCompleted,
		Hierarchy: hierarchy,
		Iterations: []domain.Iteration{
			{Number: 1, Output: f.outputs[idx]},
		},
	}, nil
}

func newParentExecution(t *testing.T, execs *memory.ExecutionRepository) domain.ExecutionID {
	t.Helper()
	id := domain.NewExecutionID()
	exec := &domain.Execution{
		ID:        id,
		AgentID:   domain.NewAgentID(),
		Status:    domain.ExecutionRunning,
		Hierarchy: domain.RootHierarchy(id),
		StartedAt: time.Now(),
	}
	require.NoError(t, execs.Save(context.Background(), exec))
	return id
}

func TestValidateWithJudges_AgreeingJudgesAccept(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	executor := &fakeExecutor{outputs: []string{
		`{"score": 0.9, "confidence": 0.8}`,
		`{"score": 0.92, "confidence": 0.85}`,
	}}
	svc := validation.New(execs, executor, events.New())

	cfg := execengine.DefaultConsensusConfig()
	cfg.AcceptThreshold = 0.8
	result, err := svc.ValidateWithJudges(context.Background(), parentID, "some output", []string{"criterion"}, []domain.AgentID{domain.NewAgentID(), domain.NewAgentID()}, cfg)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.InDelta(t, 0.91, result.FinalScore, 0.01)
	require.Greater(t, result.ConsensusConfidence, 0.8)
}

func TestValidateWithJudges_DisagreeingJudgesLowerConfidence(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	executor := &fakeExecutor{outputs: []string{
		`{"score": 0.1, "confidence": 0.9}`,
		`{"score": 0.9, "confidence": 0.9}`,
	}}
	svc := validation.New(execs, executor, events.New())

	cfg := execengine.DefaultConsensusConfig()
	result, err := svc.ValidateWithJudges(context.Background(), parentID, "some output", nil, []domain.AgentID{domain.NewAgentID(), domain.NewAgentID()}, cfg)
	require.NoError(t, err)
	require.InDelta(t, 0.5, result.FinalScore, 0.01)
	// variance = 0.16, disagreement = 0.64, agreement = 0.36
	// consensus = 0.36*0.7 + 0.9*0.3 = 0.522
	require.InDelta(t, 0.522, result.ConsensusConfidence, 0.01)
}

func TestValidateWithJudges_MarkdownFencedOutput(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	executor := &fakeExecutor{outputs: []string{
		"Here is my assessment:\n```json\n{\"score\": 0.95, \"confidence\": 0.7}\n```\n",
	}}
	svc := validation.New(execs, executor, events.New())

	result, err := svc.ValidateWithJudges(context.Background(), parentID, "output", nil, []domain.AgentID{domain.NewAgentID()}, execengine.DefaultConsensusConfig())
	require.NoError(t, err)
	require.InDelta(t, 0.95, result.FinalScore, 0.001)
}

func TestValidateWithJudges_NoJudgesIsInvalidInput(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	svc := validation.New(execs, &fakeExecutor{}, events.New())

	_, err := svc.ValidateWithJudges(context.Background(), parentID, "output", nil, nil, execengine.DefaultConsensusConfig())
	require.Error(t, err)
}

func TestValidateWithJudges_AllJudgesFailIsNoConsensus(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	executor := &fakeExecutor{outputs: []string{"not json at all"}}
	svc := validation.New(execs, executor, events.New())

	_, err := svc.ValidateWithJudges(context.Background(), parentID, "output", nil, []domain.AgentID{domain.NewAgentID()}, execengine.DefaultConsensusConfig())
	require.Error(t, err)
}

func TestValidateWithJudges_MajorityStrategy(t *testing.T) {
	execs := memory.NewExecutionRepository()
	parentID := newParentExecution(t, execs)
	executor := &fakeExecutor{outputs: []string{
		`{"score": 0.9, "confidence": 0.9}`,
		`{"score": 0.85, "confidence": 0.9}`,
		`{"score": 0.2, "confidence": 0.9}`,
	}}
	svc := validation.New(execs, executor, events.New())

	cfg := execengine.DefaultConsensusConfig()
	cfg.Strategy = execengine.StrategyMajority
	cfg.AcceptThreshold = 0.8
	result, err := svc.ValidateWithJudges(context.Background(), parentID, "output", nil, []domain.AgentID{domain.NewAgentID(), domain.NewAgentID(), domain.NewAgentID()}, cfg)
	require.NoError(t, err)
	require.Equal(t, "majority", result.StrategyName)
	require.True(t, result.Accepted)
}
