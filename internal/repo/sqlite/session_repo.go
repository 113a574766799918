package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository { return &SessionRepository{db: db} }

func (r *SessionRepository) Save(ctx context.Context, s *domain.SmcpSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO smcp_sessions (id, agent_id, execution_id, status, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, data=excluded.data
	`, string(s.ID), string(s.AgentID), string(s.ExecutionID), s.Status.String(), data)
	return err
}

func (r *SessionRepository) FindByID(ctx context.Context, id domain.SessionID) (*domain.SmcpSession, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM smcp_sessions WHERE id = ?`, string(id))
	return scanSession(row, "session.find_by_id", string(id))
}

// ActiveFor implements repo.SessionRepository's "at most one Active
// session per (agent_id, execution_id)" lookup: the row matching both
// IDs with status "active", ordered by rowid so a stale duplicate
// (which Save's upsert should prevent) doesn't surface
// nondeterministically.
func (r *SessionRepository) ActiveFor(ctx context.Context, agentID domain.AgentID, executionID domain.ExecutionID) (*domain.SmcpSession, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT data FROM smcp_sessions
		WHERE agent_id = ? AND execution_id = ? AND status = 'active'
		ORDER BY rowid DESC LIMIT 1
	`, string(agentID), string(executionID))
	return scanSession(row, "session.active_for", string(agentID)+"/"+string(executionID))
}

func scanSession(row *sql.Row, op, key string) (*domain.SmcpSession, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound(op, "no active smcp session for %s", key)
		}
		return nil, err
	}
	var s domain.SmcpSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
