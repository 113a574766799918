package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type VolumeRepository struct {
	db *DB
}

func NewVolumeRepository(db *DB) *VolumeRepository { return &VolumeRepository{db: db} }

func (r *VolumeRepository) Save(ctx context.Context, v *domain.Volume) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO volumes (id, tenant_id, ownership, data, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET tenant_id=excluded.tenant_id, ownership=excluded.ownership, data=excluded.data, expires_at=excluded.expires_at
	`, string(v.ID), v.TenantID, string(v.Ownership.Kind), data, v.ExpiresAt)
	return err
}

func (r *VolumeRepository) FindByID(ctx context.Context, id domain.VolumeID) (*domain.Volume, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM volumes WHERE id = ?`, string(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.NotFound("volume.find_by_id", "volume %s not found", id)
		}
		return nil, err
	}
	var v domain.Volume
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VolumeRepository) FindByTenant(ctx context.Context, tenantID string) ([]*domain.Volume, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM volumes WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, err
	}
	return scanVolumes(rows)
}

func (r *VolumeRepository) FindByOwnership(ctx context.Context, ownership domain.Ownership) ([]*domain.Volume, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM volumes WHERE ownership = ?`, string(ownership.Kind))
	if err != nil {
		return nil, err
	}
	all, err := scanVolumes(rows)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if v.Ownership == ownership {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *VolumeRepository) Expired(ctx context.Context, asOf time.Time) ([]*domain.Volume, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT data FROM volumes WHERE expires_at IS NOT NULL AND expires_at <= ?`, asOf)
	if err != nil {
		return nil, err
	}
	return scanVolumes(rows)
}

func (r *VolumeRepository) Delete(ctx context.Context, id domain.VolumeID) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM volumes WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.NotFound("volume.delete", "volume %s not found", id)
	}
	return nil
}

func scanVolumes(rows *sql.Rows) ([]*domain.Volume, error) {
	defer rows.Close()
	var out []*domain.Volume
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v domain.Volume
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
