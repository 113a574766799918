package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type ToolServerRepository struct {
	mu   sync.RWMutex
	byID map[domain.ToolServerID]*domain.ToolServer
}

func NewToolServerRepository() *ToolServerRepository {
	return &ToolServerRepository{byID: make(map[domain.ToolServerID]*domain.ToolServer)}
}

func (r *ToolServerRepository) Save(_ context.Context, s *domain.ToolServer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *ToolServerRepository) FindByID(_ context.Context, id domain.ToolServerID) (*domain.ToolServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("tool_server.find_by_id", "tool server %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (r *ToolServerRepository) List(_ context.Context) ([]*domain.ToolServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ToolServer, 0, len(r.byID))
	for _, s := range r.byID {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ToolServerRepository) Running(_ context.Context) ([]*domain.ToolServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ToolServer
	for _, s := range r.byID {
		if s.Status == domain.ToolServerRunning {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}
