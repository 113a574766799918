package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type WorkflowRepository struct {
	mu     sync.RWMutex
	byID   map[domain.WorkflowID]*domain.Workflow
	byName map[string]domain.WorkflowID
}

func NewWorkflowRepository() *WorkflowRepository {
	return &WorkflowRepository{byID: make(map[domain.WorkflowID]*domain.Workflow), byName: make(map[string]domain.WorkflowID)}
}

func (r *WorkflowRepository) Save(_ context.Context, wf *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *wf
	r.byID[wf.ID] = &cp
	r.byName[wf.Metadata.Name] = wf.ID
	return nil
}

func (r *WorkflowRepository) FindByID(_ context.Context, id domain.WorkflowID) (*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("workflow.find_by_id", "workflow %s not found", id)
	}
	cp := *wf
	return &cp, nil
}

func (r *WorkflowRepository) FindByName(_ context.Context, name string) (*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, repo.NotFound("workflow.find_by_name", "workflow %q not found", name)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *WorkflowRepository) List(_ context.Context) ([]*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Workflow, 0, len(r.byID))
	for _, wf := range r.byID {
		cp := *wf
		out = append(out, &cp)
	}
	return out, nil
}

type WorkflowExecutionRepository struct {
	mu   sync.RWMutex
	byID map[domain.ExecutionID]*domain.WorkflowExecution
}

func NewWorkflowExecutionRepository() *WorkflowExecutionRepository {
	return &WorkflowExecutionRepository{byID: make(map[domain.ExecutionID]*domain.WorkflowExecution)}
}

func (r *WorkflowExecutionRepository) Save(_ context.Context, we *domain.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *we
	r.byID[we.ID] = &cp
	return nil
}

func (r *WorkflowExecutionRepository) FindByID(_ context.Context, id domain.ExecutionID) (*domain.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	we, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("workflow_execution.find_by_id", "workflow execution %s not found", id)
	}
	cp := *we
	return &cp, nil
}

func (r *WorkflowExecutionRepository) Active(_ context.Context) ([]*domain.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.WorkflowExecution
	for _, we := range r.byID {
		if !we.Status.Terminal() {
			cp := *we
			out = append(out, &cp)
		}
	}
	return out, nil
}
