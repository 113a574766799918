// Package storage provides the StorageProvider abstraction FSAL
// composes with a volume repository and event publisher, and its
// default afero-backed implementation.
package storage

import (
	"context"
	"time"
)

// OpenMode selects read/write/create semantics for OpenFile.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	ReadWrite
	Create
)

// FileAttributes mirrors the subset of stat(2) FSAL's getattr needs;
// Uid/Gid are overwritten by the caller with container identity before
// being handed back (permission squashing).
type FileAttributes struct {
	Size    int64
	Mode    uint32
	ModTime time.Time
	IsDir   bool
	Uid     uint32
	Gid     uint32
}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Handle is an opaque provider-side open-file reference. Its lifetime
// is bounded by a CloseFile call.
type Handle interface{}

// Provider is the storage collaborator FSAL authorizes against and
// delegates actual bytes to. Every method is suspension-capable and
// must never block a scheduler goroutine pool thread indefinitely.
type Provider interface {
	OpenFile(ctx context.Context, fullPath string, mode OpenMode) (Handle, error)
	ReadAt(ctx context.Context, h Handle, offset int64, length int) ([]byte, error)
	WriteAt(ctx context.Context, h Handle, offset int64, data []byte) (int, error)
	CloseFile(ctx context.Context, h Handle) error
	Stat(ctx context.Context, fullPath string) (FileAttributes, error)
	Readdir(ctx context.Context, fullPath string) ([]DirEntry, error)
	CreateFile(ctx context.Context, fullPath string, mode uint32) error
	DeleteFile(ctx context.Context, fullPath string) error
	CreateDirectory(ctx context.Context, fullPath string) error
	DeleteDirectory(ctx context.Context, fullPath string) error
	Rename(ctx context.Context, fromPath, toPath string) error
	SetQuota(ctx context.Context, root string, limitBytes int64) error
	GetUsage(ctx context.Context, root string) (int64, error)
	HealthCheck(ctx context.Context) error
}
