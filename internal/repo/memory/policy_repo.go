package memory

import (
	"context"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// PolicyRepository is the simplest production implementation of
// fsal.PolicyLookup: a per-volume FilesystemPolicy set once when a
// volume is provisioned. A volume with no policy set
// denies every path (the empty allowlist FilesystemPolicy default),
// matching FSAL's fail-closed posture.
type PolicyRepository struct {
	mu   sync.RWMutex
	byID map[domain.VolumeID]domain.FilesystemPolicy
}

func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{byID: make(map[domain.VolumeID]domain.FilesystemPolicy)}
}

// Set records the policy in force for volumeID, replacing any prior one.
func (r *PolicyRepository) Set(volumeID domain.VolumeID, policy domain.FilesystemPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[volumeID] = policy
}

// PolicyFor implements fsal.PolicyLookup.
func (r *PolicyRepository) PolicyFor(_ context.Context, volumeID domain.VolumeID) (domain.FilesystemPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[volumeID], nil
}
