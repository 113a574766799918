// Package nfsgateway maps NFSv3-shaped file operations onto
// internal/fsal for each mounted agent volume. The NFSv3 wire encoding
// itself lives in a framework: this package exposes a plain Go API,
// and a wire-protocol front end translates inbound RPCs to these calls
// and their returned Status back to nfsstat3 codes.
package nfsgateway

import (
	"fmt"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// VolumeContext is the execution-specific metadata an NFS export needs
// to route a request into FSAL: which execution owns the volume,
// which container identity GETATTR should stamp onto returned
// attributes, and the filesystem policy in force.
type VolumeContext struct {
	ExecutionID  domain.ExecutionID
	VolumeID     domain.VolumeID
	ContainerUID uint32
	ContainerGID uint32
	Policy       domain.FilesystemPolicy
}

// VolumeRegistry maps a VolumeID to the context an NFS export for it
// should use. Registered when a volume is attached to a running
// execution (e.g. by the container runtime boundary) and deregistered
// on detach/completion. Thread-safe for concurrent NFS request
// handlers.
type VolumeRegistry struct {
	mu       sync.RWMutex
	contexts map[domain.VolumeID]VolumeContext
}

// NewVolumeRegistry builds an empty registry.
func NewVolumeRegistry() *VolumeRegistry {
	return &VolumeRegistry{contexts: make(map[domain.VolumeID]VolumeContext)}
}

// Register records the export context for volumeID.
func (r *VolumeRegistry) Register(ctx VolumeContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[ctx.VolumeID] = ctx
}

// Deregister removes volumeID's export context, e.g. once its owning
// execution reaches a terminal status.
func (r *VolumeRegistry) Deregister(volumeID domain.VolumeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, volumeID)
}

// Lookup returns the context registered for volumeID, if any.
func (r *VolumeRegistry) Lookup(volumeID domain.VolumeID) (VolumeContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contexts[volumeID]
	return c, ok
}

// Volumes lists every currently-registered VolumeID.
func (r *VolumeRegistry) Volumes() []domain.VolumeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.VolumeID, 0, len(r.contexts))
	for id := range r.contexts {
		ids = append(ids, id)
	}
	return ids
}

// Count reports how many volumes are currently registered.
func (r *VolumeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contexts)
}

// ErrVolumeNotRegistered is returned when an export path names a
// volume that has no registered context, the NFS-layer analogue of
// an unknown export.
type ErrVolumeNotRegistered struct {
	VolumeID domain.VolumeID
}

func (e *ErrVolumeNotRegistered) Error() string {
	return fmt.Sprintf("volume %s is not registered for NFS export", e.VolumeID)
}
