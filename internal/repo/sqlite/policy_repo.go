package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// PolicyRepository is the sqlite-backed fsal.PolicyLookup. A volume
// with no row set denies every path, matching
// internal/repo/memory.PolicyRepository's fail-closed default.
type PolicyRepository struct {
	db *DB
}

func NewPolicyRepository(db *DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) Set(ctx context.Context, volumeID domain.VolumeID, policy domain.FilesystemPolicy) error {
	data, err := json.Marshal(policy)
	if err != nil {
		return err
	}
	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO volume_policies (volume_id, data) VALUES (?, ?)
		ON CONFLICT(volume_id) DO UPDATE SET data=excluded.data
	`, string(volumeID), data)
	return err
}

func (r *PolicyRepository) PolicyFor(ctx context.Context, volumeID domain.VolumeID) (domain.FilesystemPolicy, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT data FROM volume_policies WHERE volume_id = ?`, string(volumeID))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FilesystemPolicy{}, nil
		}
		return domain.FilesystemPolicy{}, err
	}
	var policy domain.FilesystemPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return domain.FilesystemPolicy{}, err
	}
	return policy, nil
}
