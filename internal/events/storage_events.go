package events

// StorageEvent is the audit record FSAL emits for every operation,
// success or failure.
type StorageEvent struct {
	base
	Op          string `json:"op"`
	ExecutionID string `json:"execution_id"`
	VolumeID    string `json:"volume_id"`
	Path        string `json:"path,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	Bytes       int64  `json:"bytes,omitempty"`
	Outcome     string `json:"outcome"` // "ok" or a Kind string
	Detail      string `json:"detail,omitempty"`
}

func (e StorageEvent) Type() string          { return "storage_event." + e.Op }
func (e StorageEvent) ExecutionScope() string { return e.ExecutionID }

// NewStorageEvent builds a successful audit record.
func NewStorageEvent(op, executionID, volumeID, path string, durationMs, bytes int64) StorageEvent {
	return StorageEvent{
		base: newBase(), Op: op, ExecutionID: executionID, VolumeID: volumeID,
		Path: path, DurationMs: durationMs, Bytes: bytes, Outcome: "ok",
	}
}

// NewStorageAuditFailure builds the audit record for a failed
// operation, emitted instead of, never in addition to, the success
// shape, matching the FSAL invariant that every op emits exactly one
// StorageEvent.
func NewStorageAuditFailure(op, executionID, volumeID, path, outcome, detail string) StorageEvent {
	return StorageEvent{
		base: newBase(), Op: op, ExecutionID: executionID, VolumeID: volumeID,
		Path: path, Outcome: outcome, Detail: detail,
	}
}
