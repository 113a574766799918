package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type WorkflowExecutionRepository struct {
	db *DB
}

func NewWorkflowExecutionRepository(db *DB) *WorkflowExecutionRepository {
	return &WorkflowExecutionRepository{db: db}
}

func (r *WorkflowExecutionRepository) Save(ctx context.Context, we *domain.WorkflowExecution) error {
	data, err := json.Marshal(we)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, status, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, data=excluded.data
	`, string(we.ID), string(we.WorkflowID), string(we.Status), data)
	return err
}

func (r *WorkflowExecutionRepository) FindByID(ctx context.Context, id domain.ExecutionID) (*domain.WorkflowExecution, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM workflow_executions WHERE id = ?`, string(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound("workflow_execution.find_by_id", "workflow execution %s not found", id)
		}
		return nil, err
	}
	var we domain.WorkflowExecution
	if err := json.Unmarshal(data, &we); err != nil {
		return nil, err
	}
	return &we, nil
}

func (r *WorkflowExecutionRepository) Active(ctx context.Context) ([]*domain.WorkflowExecution, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT data FROM workflow_executions WHERE status NOT IN (?, ?, ?)
	`, string(domain.WorkflowCompleted), string(domain.WorkflowFailed), string(domain.WorkflowCancelled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.WorkflowExecution
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var we domain.WorkflowExecution
		if err := json.Unmarshal(data, &we); err != nil {
			return nil, err
		}
		out = append(out, &we)
	}
	return out, rows.Err()
}
