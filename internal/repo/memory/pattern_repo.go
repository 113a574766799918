package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type PatternRepository struct {
	mu   sync.RWMutex
	byID map[domain.PatternID]*domain.CortexPattern
}

func NewPatternRepository() *PatternRepository {
	return &PatternRepository{byID: make(map[domain.PatternID]*domain.CortexPattern)}
}

func (r *PatternRepository) Save(_ context.Context, p *domain.CortexPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PatternRepository) FindByID(_ context.Context, id domain.PatternID) (*domain.CortexPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("pattern.find_by_id", "pattern %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *PatternRepository) FindByErrorSignature(_ context.Context, sig domain.ErrorSignature) ([]*domain.CortexPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.CortexPattern
	for _, p := range r.byID {
		if p.ErrorSignature == sig {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PatternRepository) All(_ context.Context) ([]*domain.CortexPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.CortexPattern, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *PatternRepository) Delete(_ context.Context, id domain.PatternID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.NotFound("pattern.delete", "pattern %s not found", id)
	}
	delete(r.byID, id)
	return nil
}
