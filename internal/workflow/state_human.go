package workflow

import (
	"context"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// HumanInputProvider is asked for a response to a Human state's
// prompt. Implementations typically block on an external channel
// (chat reply, ticket comment, approval UI) until a response arrives
// or ctx is cancelled.
type HumanInputProvider interface {
	RequestInput(ctx context.Context, workflowExecutionID, prompt string) (string, error)
}

// HumanStateExecutor waits for a human response up to the state's
// timeout, falling back to default_response on expiry rather than
// failing the workflow. A Human state with no default_response and no
// timely reply fails the state instead.
type HumanStateExecutor struct {
	provider HumanInputProvider
}

func NewHumanStateExecutor(provider HumanInputProvider) *HumanStateExecutor {
	return &HumanStateExecutor{provider: provider}
}

func (e *HumanStateExecutor) Supports(kind domain.StateKind) bool { return kind == domain.StateHuman }

func (e *HumanStateExecutor) Execute(ctx context.Context, we *domain.WorkflowExecution, name string, st domain.State) (interface{}, error) {
	timeout := defaultHumanTimeout
	if st.TimeoutSeconds > 0 {
		timeout = time.Duration(st.TimeoutSeconds) * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := e.provider.RequestInput(wctx, we.ID.String(), st.Prompt)
	if err != nil {
		if wctx.Err() != nil && st.DefaultResponse != "" {
			return st.DefaultResponse, nil
		}
		return nil, err
	}
	return response, nil
}

const defaultHumanTimeout = 300 * time.Second
