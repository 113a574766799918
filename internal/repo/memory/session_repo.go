package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type SessionRepository struct {
	mu   sync.RWMutex
	byID map[domain.SessionID]*domain.SmcpSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byID: make(map[domain.SessionID]*domain.SmcpSession)}
}

func (r *SessionRepository) Save(_ context.Context, s *domain.SmcpSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *SessionRepository) FindByID(_ context.Context, id domain.SessionID) (*domain.SmcpSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("session.find_by_id", "session %s not found", id)
	}
	cp := *s
	return &cp, nil
}

// ActiveFor enforces the "at most one Active session per (agent_id,
// execution_id)" invariant at the read side: it returns whichever
// session for the pair is currently Active, if any.
func (r *SessionRepository) ActiveFor(_ context.Context, agentID domain.AgentID, executionID domain.ExecutionID) (*domain.SmcpSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.AgentID == agentID && s.ExecutionID == executionID && s.Status.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repo.NotFound("session.active_for", "no active session for agent %s execution %s", agentID, executionID)
}
