package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// ExecutionRepository is the sqlite-backed repo.ExecutionRepository:
// the domain.Execution document plus its event-sourcing trail in
// execution_events, mirroring internal/repo/memory's two-table split.
type ExecutionRepository struct {
	db *DB
}

func NewExecutionRepository(db *DB) *ExecutionRepository { return &ExecutionRepository{db: db} }

func (r *ExecutionRepository) Save(ctx context.Context, exec *domain.Execution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO executions (id, agent_id, status, data, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, data=excluded.data
	`, string(exec.ID), string(exec.AgentID), string(exec.Status), data, exec.StartedAt)
	return err
}

func (r *ExecutionRepository) FindByID(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM executions WHERE id = ?`, string(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound("execution.find_by_id", "execution %s not found", id)
		}
		return nil, err
	}
	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepository) FindByAgent(ctx context.Context, agentID domain.AgentID) ([]*domain.Execution, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM executions WHERE agent_id = ? ORDER BY started_at DESC`, string(agentID))
	if err != nil {
		return nil, err
	}
	return scanExecutions(rows)
}

func (r *ExecutionRepository) Recent(ctx context.Context, limit int) ([]*domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM executions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanExecutions(rows)
}

func scanExecutions(rows *sql.Rows) ([]*domain.Execution, error) {
	defer rows.Close()
	var out []*domain.Execution
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var exec domain.Execution
		if err := json.Unmarshal(data, &exec); err != nil {
			return nil, err
		}
		out = append(out, &exec)
	}
	return out, rows.Err()
}

// AppendEvent enforces the unique (execution_id, sequence_number)
// invariant through the table's primary key: a duplicate insert
// reports as repo.Conflict rather than a raw driver error.
func (r *ExecutionRepository) AppendEvent(ctx context.Context, executionID domain.ExecutionID, sequenceNumber int64, eventType string, payload []byte, iterationNumber *int) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO execution_events (execution_id, sequence_number, event_type, payload, iteration_number)
		VALUES (?, ?, ?, ?, ?)
	`, string(executionID), sequenceNumber, eventType, payload, iterationNumber)
	if err != nil && isUniqueViolation(err) {
		return repo.Conflict("execution.append_event", "duplicate (execution_id=%s, sequence_number=%d)", executionID, sequenceNumber)
	}
	return err
}
