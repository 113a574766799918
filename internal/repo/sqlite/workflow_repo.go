package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type WorkflowRepository struct {
	db *DB
}

func NewWorkflowRepository(db *DB) *WorkflowRepository { return &WorkflowRepository{db: db} }

func (r *WorkflowRepository) Save(ctx context.Context, wf *domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO workflows (id, name, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data
	`, string(wf.ID), wf.Metadata.Name, data)
	return err
}

func (r *WorkflowRepository) FindByID(ctx context.Context, id domain.WorkflowID) (*domain.Workflow, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM workflows WHERE id = ?`, string(id))
	return scanWorkflow(row, "workflow.find_by_id", "workflow %s not found", string(id))
}

func (r *WorkflowRepository) FindByName(ctx context.Context, name string) (*domain.Workflow, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM workflows WHERE name = ?`, name)
	return scanWorkflow(row, "workflow.find_by_name", "workflow %q not found", name)
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*domain.Workflow, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM workflows`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Workflow
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var wf domain.Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, err
		}
		out = append(out, &wf)
	}
	return out, rows.Err()
}

func scanWorkflow(row *sql.Row, op, format, arg string) (*domain.Workflow, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound(op, format, arg)
		}
		return nil, err
	}
	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}
