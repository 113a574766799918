package nfsgateway

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/fsal"
)

// DefaultPort is the standard NFSv3 bind port.
const DefaultPort = 2049

// Gateway is the always-on application service that owns one Adapter
// per mounted volume export (`/{tenant_id}/{volume_id}`) and routes to
// it. It has no wire-protocol concerns of its own: a
// framework-provided NFSv3 server is expected to call Mount once per
// incoming mount request and then dispatch RPCs to the returned
// Adapter.
type Gateway struct {
	fsal     *fsal.FSAL
	registry *VolumeRegistry
	log      *slog.Logger

	mu     sync.Mutex
	mounts map[domain.VolumeID]*Adapter
}

// NewGateway builds a Gateway over fsal and a fresh VolumeRegistry.
func NewGateway(fs *fsal.FSAL, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		fsal:     fs,
		registry: NewVolumeRegistry(),
		log:      log,
		mounts:   make(map[domain.VolumeID]*Adapter),
	}
}

// Registry exposes the volume registry for introspection/registration
// by the component that attaches volumes to executions.
func (g *Gateway) Registry() *VolumeRegistry { return g.registry }

// RegisterVolume records the export context for volumeID, called
// once a Volume transitions to Attached for a running execution.
func (g *Gateway) RegisterVolume(volCtx VolumeContext) {
	g.registry.Register(volCtx)
	g.log.Debug("nfs volume registered", "volume_id", volCtx.VolumeID, "execution_id", volCtx.ExecutionID)
}

// DeregisterVolume removes volumeID's export context and unmounts any
// active Adapter for it.
func (g *Gateway) DeregisterVolume(volumeID domain.VolumeID) {
	g.registry.Deregister(volumeID)
	g.Unmount(volumeID)
	g.log.Debug("nfs volume deregistered", "volume_id", volumeID)
}

// Mount returns the Adapter for volumeID, creating it on first use.
// A wire front end calls this when a client mounts
// `/{tenant_id}/{volume_id}`.
func (g *Gateway) Mount(volumeID domain.VolumeID) (*Adapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if a, ok := g.mounts[volumeID]; ok {
		return a, nil
	}
	volCtx, ok := g.registry.Lookup(volumeID)
	if !ok {
		return nil, &ErrVolumeNotRegistered{VolumeID: volumeID}
	}
	a := NewAdapter(g.fsal, volCtx)
	g.mounts[volumeID] = a
	g.log.Info("nfs export mounted", "volume_id", volumeID)
	return a, nil
}

// Unmount drops the Adapter for volumeID, if any; its FileID table
// is discarded; a subsequent Mount starts fresh.
func (g *Gateway) Unmount(volumeID domain.VolumeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.mounts[volumeID]; ok {
		delete(g.mounts, volumeID)
		g.log.Info("nfs export unmounted", "volume_id", volumeID)
	}
}

// ActiveMounts lists the volumes with a live Adapter.
func (g *Gateway) ActiveMounts() []domain.VolumeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]domain.VolumeID, 0, len(g.mounts))
	for id := range g.mounts {
		ids = append(ids, id)
	}
	return ids
}

// ExportPath builds the canonical `/{tenant_id}/{volume_id}` export
// path for a wire front end to advertise.
func ExportPath(tenantID string, volumeID domain.VolumeID) string {
	return fmt.Sprintf("/%s/%s", tenantID, volumeID)
}
