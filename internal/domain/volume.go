package domain

import "time"

// VolumeStatus is the lifecycle state of a Volume.
type VolumeStatus string

const (
	VolumePending   VolumeStatus = "pending"
	VolumeAvailable VolumeStatus = "available"
	VolumeAttached  VolumeStatus = "attached"
	VolumeDetached  VolumeStatus = "detached"
	VolumeDeleting  VolumeStatus = "deleting"
	VolumeDeleted   VolumeStatus = "deleted"
)

// Usable reports whether FSAL may operate against a volume in this
// status: only Available and Attached qualify.
func (s VolumeStatus) Usable() bool {
	return s == VolumeAvailable || s == VolumeAttached
}

// OwnershipKind tags the sum type of Volume ownership.
type OwnershipKind string

const (
	OwnedByExecution         OwnershipKind = "execution"
	OwnedByWorkflowExecution OwnershipKind = "workflow_execution"
	OwnedByPersistent        OwnershipKind = "persistent"
)

// Ownership is immutable after a Volume is created.
type Ownership struct {
	Kind                OwnershipKind `json:"kind"`
	ExecutionID         ExecutionID   `json:"execution_id,omitempty"`
	WorkflowExecutionID ExecutionID   `json:"workflow_execution_id,omitempty"`
}

func ExecutionOwnership(id ExecutionID) Ownership {
	return Ownership{Kind: OwnedByExecution, ExecutionID: id}
}

// MatchesExecution reports whether this ownership is an exact
// Execution{execution_id} match, the only ownership path FSAL's
// authorize step accepts.
func (o Ownership) MatchesExecution(id ExecutionID) bool {
	return o.Kind == OwnedByExecution && o.ExecutionID == id
}

// Volume is a unit of per-execution (or per-workflow, or persistent)
// storage mounted under a remote path.
type Volume struct {
	ID             VolumeID     `json:"id"`
	Name           string       `json:"name"`
	TenantID       string       `json:"tenant_id"`
	StorageClass   string       `json:"storage_class"`
	RemotePath     string       `json:"remote_path"`
	SizeLimitBytes int64        `json:"size_limit_bytes"`
	Status         VolumeStatus `json:"status"`
	Ownership      Ownership    `json:"ownership"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
}

// FilesystemPolicy is the per-volume/execution allowlist pair checked
// by FSAL before any read or write.
type FilesystemPolicy struct {
	Read  []string `json:"read"`
	Write []string `json:"write"`
}
