package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// AgentRepository is the sqlite-backed repo.AgentRepository: the full
// domain.Agent is stored as a JSON document, with name/status broken
// out into their own columns for FindByName and any future
// status-filtered listing.
type AgentRepository struct {
	db *DB
}

func NewAgentRepository(db *DB) *AgentRepository { return &AgentRepository{db: db} }

func (r *AgentRepository) Save(ctx context.Context, agent *domain.Agent) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO agents (id, name, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, status=excluded.status, data=excluded.data, updated_at=excluded.updated_at
	`, string(agent.ID), agent.Name, string(agent.Status), data, agent.CreatedAt, agent.UpdatedAt)
	return err
}

func scanAgent(row *sql.Row) (*domain.Agent, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	var agent domain.Agent
	if err := json.Unmarshal(data, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepository) FindByID(ctx context.Context, id domain.AgentID) (*domain.Agent, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM agents WHERE id = ?`, string(id))
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.NotFound("agent.find_by_id", "agent %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *AgentRepository) FindByName(ctx context.Context, name string) (*domain.Agent, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM agents WHERE name = ?`, name)
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.NotFound("agent.find_by_name", "agent %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Agent
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var agent domain.Agent
		if err := json.Unmarshal(data, &agent); err != nil {
			return nil, err
		}
		out = append(out, &agent)
	}
	return out, rows.Err()
}

func (r *AgentRepository) Delete(ctx context.Context, id domain.AgentID) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.NotFound("agent.delete", "agent %s not found", id)
	}
	return nil
}
