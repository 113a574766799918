package workflow

import (
	"context"
	"sync"
)

// ChannelHumanInputProvider implements HumanInputProvider by parking
// each Human state on a per-execution channel until an external
// caller (an httpapi route) delivers a response via Respond, or ctx
// is cancelled / the state's timeout elapses.
type ChannelHumanInputProvider struct {
	mu      sync.Mutex
	pending map[string]chan string
}

func NewChannelHumanInputProvider() *ChannelHumanInputProvider {
	return &ChannelHumanInputProvider{pending: make(map[string]chan string)}
}

func (p *ChannelHumanInputProvider) RequestInput(ctx context.Context, workflowExecutionID, prompt string) (string, error) {
	ch := make(chan string, 1)
	p.mu.Lock()
	p.pending[workflowExecutionID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, workflowExecutionID)
		p.mu.Unlock()
	}()

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Respond delivers a human response to whichever Human state is
// currently waiting on workflowExecutionID. It reports false if no
// state is waiting (already timed out, or the workflow never reached
// a Human state).
func (p *ChannelHumanInputProvider) Respond(workflowExecutionID, response string) bool {
	p.mu.Lock()
	ch, ok := p.pending[workflowExecutionID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- response:
		return true
	default:
		return false
	}
}

