// Package fsal is the File System Abstraction Layer: the single
// enforcement point for agent file I/O. It composes a storage
// provider, a volume repository, and an event publisher, and
// authorizes, canonicalizes, policy-checks, quota-checks, and audits
// every operation.
package fsal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/fsal/storage"
)

// VolumeRepository is the subset of internal/repo's Volume aggregate
// FSAL needs to authorize against.
type VolumeRepository interface {
	FindByID(ctx context.Context, id domain.VolumeID) (*domain.Volume, error)
}

// EventPublisher is the subset of internal/events.Bus FSAL needs;
// satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// FSAL is the file system abstraction layer.
type FSAL struct {
	storage    storage.Provider
	volumes    VolumeRepository
	sanitizer  *PathSanitizer
	publisher  EventPublisher
	policies   PolicyLookup
	now        func() time.Time
}

// PolicyLookup resolves the FilesystemPolicy in force for a volume;
// in the simplest deployment this is the volume's own static policy;
// orchestrator-side code may wire a richer per-execution override.
type PolicyLookup interface {
	PolicyFor(ctx context.Context, volumeID domain.VolumeID) (domain.FilesystemPolicy, error)
}

// New builds an FSAL over its three collaborators plus a policy
// lookup (spec names the policy as per volume/execution, so it is
// modeled as its own small seam rather than baked into Volume).
func New(provider storage.Provider, volumes VolumeRepository, publisher EventPublisher, policies PolicyLookup) *FSAL {
	return &FSAL{
		storage:   provider,
		volumes:   volumes,
		sanitizer: NewPathSanitizer(),
		publisher: publisher,
		policies:  policies,
		now:       time.Now,
	}
}

// AuthError tags an authorization failure kind, used to pick the
// correct audit outcome and NFS status mapping.
type AuthError struct {
	Kind string // "volume_not_found" | "volume_not_attached" | "unauthorized_access"
	Msg  string
}

func (e *AuthError) Error() string { return e.Msg }

// QuotaError is returned by Write when the proactive usage check
// would push a volume over its
// SizeLimitBytes. Distinguished from a plain IO failure so callers
// (the NFS gateway, the HTTP API) can map it to NFS3ERR_NOSPC / 507.
type QuotaError struct {
	VolumeID domain.VolumeID
	Usage    int64
	Want     int64
	Limit    int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded on volume %s: usage %d + %d > limit %d", e.VolumeID, e.Usage, e.Want, e.Limit)
}

// IsQuotaExceeded reports whether err (or one it wraps) is a *QuotaError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// authorize resolves and ownership-checks the volume for executionID.
func (f *FSAL) authorize(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID) (*domain.Volume, error) {
	vol, err := f.volumes.FindByID(ctx, volumeID)
	if err != nil || vol == nil {
		f.publisher.Publish(events.NewStorageAuditFailure("volume_not_found", string(executionID), string(volumeID), "", "volume_not_found", "volume lookup failed"))
		return nil, &AuthError{Kind: "volume_not_found", Msg: fmt.Sprintf("volume %s not found", volumeID)}
	}
	if !vol.Status.Usable() {
		f.publisher.Publish(events.NewStorageAuditFailure("volume_not_attached", string(executionID), string(volumeID), "", "volume_not_attached", fmt.Sprintf("volume status %s", vol.Status)))
		return nil, &AuthError{Kind: "volume_not_attached", Msg: fmt.Sprintf("volume %s is %s, not available/attached", volumeID, vol.Status)}
	}
	if !vol.Ownership.MatchesExecution(executionID) {
		f.publisher.Publish(events.NewStorageAuditFailure("unauthorized_access", string(executionID), string(volumeID), "", "unauthorized_access", "ownership mismatch"))
		return nil, &AuthError{Kind: "unauthorized_access", Msg: fmt.Sprintf("execution %s is not the owner of volume %s", executionID, volumeID)}
	}
	return vol, nil
}

func (f *FSAL) audit(op string, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, start time.Time, bytes int64) {
	f.publisher.Publish(events.NewStorageEvent(op, string(executionID), string(volumeID), path, time.Since(start).Milliseconds(), bytes))
}

func (f *FSAL) auditFailure(op string, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, outcome, detail string) {
	f.publisher.Publish(events.NewStorageAuditFailure(op, string(executionID), string(volumeID), path, outcome, detail))
}

func fullPath(vol *domain.Volume, relative string) string {
	trimmed := relative
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	return vol.RemotePath + "/" + trimmed
}

// Lookup resolves a child path under parent and returns a handle for
// it, without touching the storage provider. Existence is verified by
// the caller's next op (Read/Stat/etc.); the handle is built purely
// from the sanitized child path.
func (f *FSAL) Lookup(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, parentPath, name string) (AegisFileHandle, string, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return AegisFileHandle{}, "", err
	}
	childPath := parentPath
	if childPath == "" || childPath == "/" {
		childPath = "/" + name
	} else {
		childPath = childPath + "/" + name
	}
	canonical, err := f.sanitizer.Canonicalize(childPath, "/")
	if err != nil {
		f.auditFailure("lookup", executionID, volumeID, childPath, "policy", err.Error())
		return AegisFileHandle{}, "", err
	}
	h := NewAegisFileHandle(executionID, vol.ID, canonical, f.now())
	f.audit("lookup", executionID, volumeID, canonical, start, 0)
	return h, canonical, nil
}

// Read reads length bytes at offset from path under (executionID,
// volumeID), after authorization, canonicalization, and a read-policy
// check.
func (f *FSAL) Read(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, offset int64, length int) ([]byte, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return nil, err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure("read", executionID, volumeID, path, "policy", err.Error())
		return nil, err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	if err := EnforceRead(Policy{Read: policy.Read, Write: policy.Write}, canonical); err != nil {
		f.auditFailure("read", executionID, volumeID, canonical, "policy", err.Error())
		return nil, err
	}

	full := fullPath(vol, canonical)
	h, err := f.storage.OpenFile(ctx, full, storage.ReadOnly)
	if err != nil {
		f.auditFailure("read", executionID, volumeID, canonical, "io", err.Error())
		return nil, err
	}
	defer f.storage.CloseFile(ctx, h)

	data, err := f.storage.ReadAt(ctx, h, offset, length)
	if err != nil {
		f.auditFailure("read", executionID, volumeID, canonical, "io", err.Error())
		return nil, err
	}
	f.audit("read", executionID, volumeID, canonical, start, int64(len(data)))
	return data, nil
}

// Write writes data at offset to path, after authorization,
// canonicalization, a write-policy check, and a proactive quota check.
func (f *FSAL) Write(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, offset int64, data []byte) (int, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return 0, err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure("write", executionID, volumeID, path, "policy", err.Error())
		return 0, err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return 0, err
	}
	if err := EnforceWrite(Policy{Read: policy.Read, Write: policy.Write}, canonical); err != nil {
		f.auditFailure("write", executionID, volumeID, canonical, "policy", err.Error())
		return 0, err
	}

	full := fullPath(vol, canonical)

	usage, err := f.storage.GetUsage(ctx, vol.RemotePath)
	if err != nil {
		return 0, err
	}
	if usage+int64(len(data)) > vol.SizeLimitBytes {
		f.auditFailure("write", executionID, volumeID, canonical, "quota", "quota exceeded")
		return 0, &QuotaError{VolumeID: volumeID, Usage: usage, Want: int64(len(data)), Limit: vol.SizeLimitBytes}
	}

	h, err := f.storage.OpenFile(ctx, full, storage.ReadWrite)
	if err != nil {
		f.auditFailure("write", executionID, volumeID, canonical, "io", err.Error())
		return 0, err
	}
	defer f.storage.CloseFile(ctx, h)

	n, err := f.storage.WriteAt(ctx, h, offset, data)
	if err != nil {
		f.auditFailure("write", executionID, volumeID, canonical, "io", err.Error())
		return 0, err
	}
	f.audit("write", executionID, volumeID, canonical, start, int64(n))
	return n, nil
}

// CreateFile creates path with default mode 0o644 and returns a handle.
func (f *FSAL) CreateFile(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string) (AegisFileHandle, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return AegisFileHandle{}, err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure("create_file", executionID, volumeID, path, "policy", err.Error())
		return AegisFileHandle{}, err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return AegisFileHandle{}, err
	}
	if err := EnforceWrite(Policy{Read: policy.Read, Write: policy.Write}, canonical); err != nil {
		f.auditFailure("create_file", executionID, volumeID, canonical, "policy", err.Error())
		return AegisFileHandle{}, err
	}
	if err := f.storage.CreateFile(ctx, fullPath(vol, canonical), 0o644); err != nil {
		f.auditFailure("create_file", executionID, volumeID, canonical, "io", err.Error())
		return AegisFileHandle{}, err
	}
	f.audit("create_file", executionID, volumeID, canonical, start, 0)
	return NewAegisFileHandle(executionID, volumeID, canonical, f.now()), nil
}

// GetAttr stats path and overwrites uid/gid with the container's
// identity (permission squashing), eliminating kernel-side checks.
func (f *FSAL) GetAttr(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, containerUID, containerGID uint32) (storage.FileAttributes, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return storage.FileAttributes{}, err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure("getattr", executionID, volumeID, path, "policy", err.Error())
		return storage.FileAttributes{}, err
	}
	attrs, err := f.storage.Stat(ctx, fullPath(vol, canonical))
	if err != nil {
		f.auditFailure("getattr", executionID, volumeID, canonical, "io", err.Error())
		return storage.FileAttributes{}, err
	}
	attrs.Uid = containerUID
	attrs.Gid = containerGID
	f.audit("getattr", executionID, volumeID, canonical, start, 0)
	return attrs, nil
}

// Readdir lists entries under path after a read-policy check.
func (f *FSAL) Readdir(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string) ([]storage.DirEntry, error) {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return nil, err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure("readdir", executionID, volumeID, path, "policy", err.Error())
		return nil, err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	if err := EnforceRead(Policy{Read: policy.Read, Write: policy.Write}, canonical); err != nil {
		f.auditFailure("readdir", executionID, volumeID, canonical, "policy", err.Error())
		return nil, err
	}
	entries, err := f.storage.Readdir(ctx, fullPath(vol, canonical))
	if err != nil {
		f.auditFailure("readdir", executionID, volumeID, canonical, "io", err.Error())
		return nil, err
	}
	f.audit("directory_listed", executionID, volumeID, canonical, start, 0)
	return entries, nil
}

// CreateDirectory creates path after a write-policy check.
func (f *FSAL) CreateDirectory(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string) error {
	return f.writeOp(ctx, "create_directory", executionID, volumeID, path, func(full string) error {
		return f.storage.CreateDirectory(ctx, full)
	})
}

// DeleteFile removes path after a write-policy check.
func (f *FSAL) DeleteFile(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string) error {
	return f.writeOp(ctx, "delete_file", executionID, volumeID, path, func(full string) error {
		return f.storage.DeleteFile(ctx, full)
	})
}

// DeleteDirectory removes path after a write-policy check.
func (f *FSAL) DeleteDirectory(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, path string) error {
	return f.writeOp(ctx, "delete_directory", executionID, volumeID, path, func(full string) error {
		return f.storage.DeleteDirectory(ctx, full)
	})
}

func (f *FSAL) writeOp(ctx context.Context, op string, executionID domain.ExecutionID, volumeID domain.VolumeID, path string, do func(full string) error) error {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return err
	}
	canonical, err := f.sanitizer.Canonicalize(path, "/")
	if err != nil {
		f.auditFailure(op, executionID, volumeID, path, "policy", err.Error())
		return err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return err
	}
	if err := EnforceWrite(Policy{Read: policy.Read, Write: policy.Write}, canonical); err != nil {
		f.auditFailure(op, executionID, volumeID, canonical, "policy", err.Error())
		return err
	}
	if err := do(fullPath(vol, canonical)); err != nil {
		f.auditFailure(op, executionID, volumeID, canonical, "io", err.Error())
		return err
	}
	f.audit(op, executionID, volumeID, canonical, start, 0)
	return nil
}

// Rename moves fromPath to toPath, policy-checking both source and
// target against the write allowlist.
func (f *FSAL) Rename(ctx context.Context, executionID domain.ExecutionID, volumeID domain.VolumeID, fromPath, toPath string) error {
	start := f.now()
	vol, err := f.authorize(ctx, executionID, volumeID)
	if err != nil {
		return err
	}
	fromCanonical, err := f.sanitizer.Canonicalize(fromPath, "/")
	if err != nil {
		f.auditFailure("rename", executionID, volumeID, fromPath, "policy", err.Error())
		return err
	}
	toCanonical, err := f.sanitizer.Canonicalize(toPath, "/")
	if err != nil {
		f.auditFailure("rename", executionID, volumeID, toPath, "policy", err.Error())
		return err
	}
	policy, err := f.policies.PolicyFor(ctx, volumeID)
	if err != nil {
		return err
	}
	p := Policy{Read: policy.Read, Write: policy.Write}
	if err := EnforceWrite(p, fromCanonical); err != nil {
		f.auditFailure("rename", executionID, volumeID, fromCanonical, "policy", err.Error())
		return err
	}
	if err := EnforceWrite(p, toCanonical); err != nil {
		f.auditFailure("rename", executionID, volumeID, toCanonical, "policy", err.Error())
		return err
	}
	if err := f.storage.Rename(ctx, fullPath(vol, fromCanonical), fullPath(vol, toCanonical)); err != nil {
		f.auditFailure("rename", executionID, volumeID, fromCanonical, "io", err.Error())
		return err
	}
	f.audit("rename", executionID, volumeID, fromCanonical, start, 0)
	return nil
}
