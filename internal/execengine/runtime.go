// Package execengine implements the iterative execution engine: run an
// agent to completion by producing output, scoring it via judges, and
// refining or completing, bounded by max_iterations and the recursive
// depth cap.
package execengine

import (
	"context"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// RuntimeConfig is what the engine hands the container runtime to spawn
// an instance for one agent, derived from the agent's manifest.
type RuntimeConfig struct {
	RuntimeImage   string
	InitialIntent  string
	Env            map[string]string
	TimeoutSeconds int
}

// ToolCallRecord is one tool invocation the runtime observed an agent
// make during an iteration. The engine does not route it (that is
// internal/toolrouter's job against an already-established SMCP
// session); it only records it on the Iteration/LlmInteraction trail.
type ToolCallRecord struct {
	ToolName string
	Args     map[string]interface{}
	Result   interface{}
}

// TaskOutput is one runtime turn's (result, logs, tool_calls) triple,
// plus the LLM interactions observed during the call so the engine can
// record them on the Iteration and emit LlmInteraction events.
type TaskOutput struct {
	Result          interface{}
	Logs            []string
	ToolCalls       []ToolCallRecord
	LLMInteractions []domain.LLMInteraction
}

// Runtime is the container-runtime seam: spawn an instance, execute
// one task turn in it, stop it. Everything past this interface (image
// pulls, sandbox lifecycle, Firecracker vs Docker) belongs to the
// implementation.
type Runtime interface {
	Spawn(ctx context.Context, cfg RuntimeConfig) (instanceID string, err error)
	Execute(ctx context.Context, instanceID string, taskInput map[string]interface{}) (TaskOutput, error)
	Stop(ctx context.Context, instanceID string) error
}

// pollInterval/pollCap describe a 500ms poll repeated up to 120 times
// (60s). Nothing in this package references them: Runtime.Execute and
// RunJudge are synchronous calls, so the engine does no completion
// polling.
const (
	pollInterval = 500 * time.Millisecond
	pollCap      = 120
)
