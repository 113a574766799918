// Package toolrouter selects a ToolServer for a tool name and drives
// the Requested -> Running -> {Completed, Failed} ToolInvocation
// lifecycle.
package toolrouter

import (
	"context"
	"fmt"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// ToolServerLookup is the subset of internal/repo's ToolServerRepository
// the router needs.
type ToolServerLookup interface {
	Running(ctx context.Context) ([]*domain.ToolServer, error)
}

// ErrNoMatch is returned when no Running server advertises the tool.
// ErrAmbiguous is returned when more than one does; routing requires the
// unique matching server.
var (
	ErrNoMatch   = fmt.Errorf("no running tool server matches")
	ErrAmbiguous = fmt.Errorf("more than one running tool server matches")
)

// Router resolves a tool name to the unique eligible ToolServer.
type Router struct {
	servers ToolServerLookup
}

func NewRouter(servers ToolServerLookup) *Router {
	return &Router{servers: servers}
}

// Route selects the unique Running server whose capabilities contain
// an exact or "prefix.*" match for toolName.
func (r *Router) Route(ctx context.Context, toolName string) (*domain.ToolServer, error) {
	running, err := r.servers.Running(ctx)
	if err != nil {
		return nil, err
	}
	var match *domain.ToolServer
	for _, s := range running {
		if s.Matches(toolName) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguous, toolName)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, toolName)
	}
	return match, nil
}
