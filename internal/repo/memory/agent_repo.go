// Package memory implements every repository contract over plain
// sync.RWMutex-guarded maps: reader-preferring on list/find,
// writer-exclusive on mutate.
package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type AgentRepository struct {
	mu     sync.RWMutex
	byID   map[domain.AgentID]*domain.Agent
	byName map[string]domain.AgentID
}

func NewAgentRepository() *AgentRepository {
	return &AgentRepository{
		byID:   make(map[domain.AgentID]*domain.Agent),
		byName: make(map[string]domain.AgentID),
	}
}

func (r *AgentRepository) Save(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *agent
	r.byID[agent.ID] = &cp
	r.byName[agent.Name] = agent.ID
	return nil
}

func (r *AgentRepository) FindByID(_ context.Context, id domain.AgentID) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("agent.find_by_id", "agent %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (r *AgentRepository) FindByName(_ context.Context, name string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, repo.NotFound("agent.find_by_name", "agent %q not found", name)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *AgentRepository) List(_ context.Context) ([]*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Agent, 0, len(r.byID))
	for _, a := range r.byID {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AgentRepository) Delete(_ context.Context, id domain.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repo.NotFound("agent.delete", "agent %s not found", id)
	}
	delete(r.byName, a.Name)
	delete(r.byID, id)
	return nil
}
