package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type PatternRepository struct {
	db *DB
}

func NewPatternRepository(db *DB) *PatternRepository { return &PatternRepository{db: db} }

func signatureKey(sig domain.ErrorSignature) string {
	return sig.ErrorType + "|" + sig.ErrorMessageHash
}

func (r *PatternRepository) Save(ctx context.Context, p *domain.CortexPattern) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO cortex_patterns (id, error_signature, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET error_signature=excluded.error_signature, data=excluded.data
	`, string(p.ID), signatureKey(p.ErrorSignature), data)
	return err
}

func (r *PatternRepository) FindByID(ctx context.Context, id domain.PatternID) (*domain.CortexPattern, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM cortex_patterns WHERE id = ?`, string(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound("pattern.find_by_id", "pattern %s not found", id)
		}
		return nil, err
	}
	var p domain.CortexPattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatternRepository) FindByErrorSignature(ctx context.Context, sig domain.ErrorSignature) ([]*domain.CortexPattern, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM cortex_patterns WHERE error_signature = ?`, signatureKey(sig))
	if err != nil {
		return nil, err
	}
	return scanPatterns(rows)
}

func (r *PatternRepository) All(ctx context.Context) ([]*domain.CortexPattern, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM cortex_patterns`)
	if err != nil {
		return nil, err
	}
	return scanPatterns(rows)
}

func (r *PatternRepository) Delete(ctx context.Context, id domain.PatternID) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM cortex_patterns WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.NotFound("pattern.delete", "pattern %s not found", id)
	}
	return nil
}

func scanPatterns(rows *sql.Rows) ([]*domain.CortexPattern, error) {
	defer rows.Close()
	var out []*domain.CortexPattern
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p domain.CortexPattern
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
