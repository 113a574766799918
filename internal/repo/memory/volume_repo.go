package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

type VolumeRepository struct {
	mu   sync.RWMutex
	byID map[domain.VolumeID]*domain.Volume
}

func NewVolumeRepository() *VolumeRepository {
	return &VolumeRepository{byID: make(map[domain.VolumeID]*domain.Volume)}
}

func (r *VolumeRepository) Save(_ context.Context, v *domain.Volume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.byID {
		if id != v.ID && existing.RemotePath == v.RemotePath {
			return repo.Conflict("volume.save", "remote_path %q already in use by volume %s", v.RemotePath, id)
		}
	}
	cp := *v
	r.byID[v.ID] = &cp
	return nil
}

func (r *VolumeRepository) FindByID(_ context.Context, id domain.VolumeID) (*domain.Volume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return nil, repo.NotFound("volume.find_by_id", "volume %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (r *VolumeRepository) FindByTenant(_ context.Context, tenantID string) ([]*domain.Volume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Volume
	for _, v := range r.byID {
		if v.TenantID == tenantID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *VolumeRepository) FindByOwnership(_ context.Context, ownership domain.Ownership) ([]*domain.Volume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Volume
	for _, v := range r.byID {
		if v.Ownership == ownership {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *VolumeRepository) Expired(_ context.Context, asOf time.Time) ([]*domain.Volume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Volume
	for _, v := range r.byID {
		if v.ExpiresAt != nil && v.ExpiresAt.Before(asOf) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *VolumeRepository) Delete(_ context.Context, id domain.VolumeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.NotFound("volume.delete", "volume %s not found", id)
	}
	delete(r.byID, id)
	return nil
}
