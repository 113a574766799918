package execengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/ids"
	"github.com/aegis-run/orchestrator/internal/llm"
)

// InProcessRuntime is a Runtime that drives an agent turn through
// internal/llm.Generator directly instead of spawning a container: the
// agent's instructions become the system message, the task input
// becomes the user message, and the model's reply is parsed as the
// iteration's Result the same way DockerRuntime parses an
// agent-entrypoint's final stdout line. Intended for agents whose
// RuntimeImage names a prompt-only behavior rather than a tool-driven
// sandbox, and for local development without a container runtime.
type InProcessRuntime struct {
	generator llm.Generator

	mu        sync.Mutex
	instances map[string]RuntimeConfig
}

func NewInProcessRuntime(generator llm.Generator) *InProcessRuntime {
	return &InProcessRuntime{generator: generator, instances: make(map[string]RuntimeConfig)}
}

func (r *InProcessRuntime) Spawn(_ context.Context, cfg RuntimeConfig) (string, error) {
	instanceID := ids.NewWithPrefix("inproc")
	r.mu.Lock()
	r.instances[instanceID] = cfg
	r.mu.Unlock()
	return instanceID, nil
}

func (r *InProcessRuntime) Execute(ctx context.Context, instanceID string, taskInput map[string]interface{}) (TaskOutput, error) {
	r.mu.Lock()
	cfg, ok := r.instances[instanceID]
	r.mu.Unlock()
	if !ok {
		return TaskOutput{}, fmt.Errorf("execengine: inprocess runtime: unknown instance %q", instanceID)
	}

	payload, err := json.Marshal(taskInput)
	if err != nil {
		return TaskOutput{}, fmt.Errorf("execengine: inprocess runtime: marshal task input: %w", err)
	}

	req := llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: cfg.InitialIntent},
			{Role: "user", Content: string(payload)},
		},
	}
	resp, err := r.generator.Generate(ctx, req)
	if err != nil {
		return TaskOutput{}, fmt.Errorf("execengine: inprocess runtime: generate: %w", err)
	}

	interaction := domain.LLMInteraction{
		Provider:   "inprocess",
		Model:      cfg.RuntimeImage,
		Prompt:     string(payload),
		Response:   resp.Text,
		OccurredAt: time.Now(),
	}

	var result interface{}
	if err := json.Unmarshal([]byte(resp.Text), &result); err != nil {
		result = resp.Text
	}

	return TaskOutput{
		Result:          result,
		LLMInteractions: []domain.LLMInteraction{interaction},
	}, nil
}

func (r *InProcessRuntime) Stop(_ context.Context, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, instanceID)
	return nil
}
