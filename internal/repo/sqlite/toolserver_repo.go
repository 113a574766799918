package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aegis-run/orchestrator/internal/domain"
)

type ToolServerRepository struct {
	db *DB
}

func NewToolServerRepository(db *DB) *ToolServerRepository { return &ToolServerRepository{db: db} }

func (r *ToolServerRepository) Save(ctx context.Context, s *domain.ToolServer) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO tool_servers (id, status, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, data=excluded.data
	`, string(s.ID), string(s.Status), data)
	return err
}

func (r *ToolServerRepository) FindByID(ctx context.Context, id domain.ToolServerID) (*domain.ToolServer, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM tool_servers WHERE id = ?`, string(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	var s domain.ToolServer
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ToolServerRepository) List(ctx context.Context) ([]*domain.ToolServer, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM tool_servers`)
	if err != nil {
		return nil, err
	}
	return scanToolServers(rows)
}

// Running returns the servers currently eligible for routing, per
// internal/toolrouter.Router's dependency on this exact query.
func (r *ToolServerRepository) Running(ctx context.Context) ([]*domain.ToolServer, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM tool_servers WHERE status = ?`, string(domain.ToolServerRunning))
	if err != nil {
		return nil, err
	}
	return scanToolServers(rows)
}

func scanToolServers(rows *sql.Rows) ([]*domain.ToolServer, error) {
	defer rows.Close()
	var out []*domain.ToolServer
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var s domain.ToolServer
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
