package execengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/execengine"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
)

// fakeRuntime returns a scripted sequence of results, one per call to
// Execute, looping the last entry if exhausted, enough to drive both
// the happy-path and refine-then-accept scenarios.
type fakeRuntime struct {
	results []interface{}
	calls   int
}

func (f *fakeRuntime) Spawn(context.Context, execengine.RuntimeConfig) (string, error) {
	return "instance-1", nil
}

func (f *fakeRuntime) Execute(context.Context, string, map[string]interface{}) (execengine.TaskOutput, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	return execengine.TaskOutput{Result: f.results[idx]}, nil
}

func (f *fakeRuntime) Stop(context.Context, string) error { return nil }

func newAgent(t *testing.T, agents *memory.AgentRepository, name string, maxIter int) domain.AgentID {
	t.Helper()
	a := &domain.Agent{
		ID:     domain.NewAgentID(),
		Name:   name,
		Status: domain.AgentActive,
		Manifest: domain.AgentManifest{
			RuntimeImage:  "example/agent:latest",
			InitialIntent: "print 42",
			MaxIterations: maxIter,
		},
	}
	require.NoError(t, agents.Save(context.Background(), a))
	return a.ID
}

func TestEngine_HappyPathSingleIteration(t *testing.T) {
	agents := memory.NewAgentRepository()
	execs := memory.NewExecutionRepository()
	bus := events.New()
	sub := bus.Subscribe()

	agentID := newAgent(t, agents, "printer", 3)
	runtime := &fakeRuntime{results: []interface{}{map[string]interface{}{"result": "42"}}}
	engine := execengine.New(execs, agents, runtime, nil, bus)

	exec, err := engine.Run(context.Background(), agentID, map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, domain.ExecutionCompleted, exec.Status)
	require.Len(t, exec.Iterations, 1)

	var types []string
	for {
		select {
		case ev := <-sub.C():
			types = append(types, ev.Type())
		default:
			goto done
		}
	}
done:
	require.Contains(t, types, "execution_started")
	require.Contains(t, types, "iteration_started")
	require.Contains(t, types, "iteration_completed")
	require.Contains(t, types, "execution_completed")
}

func TestEngine_SingleIterationWithoutValidatorCompletes(t *testing.T) {
	// With no Validator wired there is nothing to refine against, so an
	// agent with MaxIterations=1 completes on its first iteration.
	agents := memory.NewAgentRepository()
	execs := memory.NewExecutionRepository()
	bus := events.New()

	agentID := newAgent(t, agents, "printer2", 1)
	runtime := &fakeRuntime{results: []interface{}{map[string]interface{}{"result": "4"}}}
	engine := execengine.New(execs, agents, runtime, nil, bus)

	exec, err := engine.Run(context.Background(), agentID, map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, domain.ExecutionCompleted, exec.Status)
}

func TestEngine_CancelExecution(t *testing.T) {
	agents := memory.NewAgentRepository()
	execs := memory.NewExecutionRepository()
	bus := events.New()
	sub := bus.Subscribe()

	agentID := newAgent(t, agents, "slow", 5)
	runtime := &fakeRuntime{results: []interface{}{"ok", "ok", "ok", "ok", "ok"}}
	engine := execengine.New(execs, agents, runtime, nil, bus)

	id, err := engine.StartExecution(context.Background(), agentID, map[string]interface{}{})
	require.NoError(t, err)

	require.NoError(t, engine.CancelExecution(context.Background(), id))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.C():
			if ev.Type() == "execution_cancelled" || ev.Type() == "execution_completed" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for a terminal event")
		}
	}
}
