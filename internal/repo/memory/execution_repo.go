package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type eventRecord struct {
	SequenceNumber  int64
	EventType       string
	Payload         []byte
	IterationNumber *int
}

type ExecutionRepository struct {
	mu      sync.RWMutex
	byID    map[domain.ExecutionID]*domain.Execution
	events  map[domain.ExecutionID][]eventRecord
	seqSeen map[domain.ExecutionID]map[int64]struct{}
}

func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{
		byID:    make(map[domain.ExecutionID]*domain.Execution),
		events:  make(map[domain.ExecutionID][]eventRecord),
		seqSeen: make(map[domain.ExecutionID]map[int64]struct{}),
	}
}

func (r *ExecutionRepository) Save(_ context.Context, exec *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *exec
	r.byID[exec.ID] = &cp
	return nil
}

func (r *ExecutionRepository) FindByID(_ context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("execution.find_by_id", "execution %s not found", id)
	}
	cp := *e
	return &cp, nil
}

func (r *ExecutionRepository) FindByAgent(_ context.Context, agentID domain.AgentID) ([]*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Execution
	for _, e := range r.byID {
		if e.AgentID == agentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *ExecutionRepository) Recent(_ context.Context, limit int) ([]*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Execution, 0, len(r.byID))
	for _, e := range r.byID {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ExecutionRepository) AppendEvent(_ context.Context, executionID domain.ExecutionID, sequenceNumber int64, eventType string, payload []byte, iterationNumber *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := r.seqSeen[executionID]
	if seen == nil {
		seen = make(map[int64]struct{})
		r.seqSeen[executionID] = seen
	}
	if _, dup := seen[sequenceNumber]; dup {
		return repo.Conflict("execution.append_event", "duplicate (execution_id=%s, sequence_number=%d)", executionID, sequenceNumber)
	}
	seen[sequenceNumber] = struct{}{}
	r.events[executionID] = append(r.events[executionID], eventRecord{
		SequenceNumber: sequenceNumber, EventType: eventType, Payload: payload, IterationNumber: iterationNumber,
	})
	return nil
}

// Events returns the persisted event-sourcing trace for executionID,
// ordered by sequence number. It is not part of
// repo.ExecutionRepository; only this package's tests call it.
func (r *ExecutionRepository) Events(executionID domain.ExecutionID) []eventRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]eventRecord, len(r.events[executionID]))
	copy(out, r.events[executionID])
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}
