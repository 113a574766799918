package nfsgateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/fsal"
	"github.com/aegis-run/orchestrator/internal/fsal/storage"
)

// FileID is the NFSv3 fileid3 equivalent: an opaque, monotonically
// assigned handle the wire layer hands back to clients. 1 is reserved
// for the export root.
type FileID uint64

// RootFileID is reserved for the root of every mounted export.
const RootFileID FileID = 1

// ErrHandleNotFound is returned when a FileID has no entry in the
// adapter's table; the client is holding a stale or forged handle.
type ErrHandleNotFound struct {
	ID FileID
}

func (e *ErrHandleNotFound) Error() string { return fmt.Sprintf("nfs file id %d not registered", e.ID) }

// entry is what a FileID resolves to: the path it names (relative to
// the volume root, "/" for the export root itself) and the
// fsal.AegisFileHandle minted for it.
type entry struct {
	path   string
	handle fsal.AegisFileHandle
}

// Adapter binds one mounted NFS export (one volume) to FSAL. It owns
// the bidirectional FileID ↔ (path, AegisFileHandle) table a wire
// front end needs to translate stateless NFSv3 fileid3s into FSAL
// calls.
type Adapter struct {
	fsal *fsal.FSAL
	ctx  VolumeContext

	mu     sync.Mutex
	byID   map[FileID]entry
	byPath map[string]FileID
	nextID FileID
}

// NewAdapter binds fsal to volCtx's volume and pre-registers the
// export root at RootFileID.
func NewAdapter(fs *fsal.FSAL, volCtx VolumeContext) *Adapter {
	a := &Adapter{
		fsal:   fs,
		ctx:    volCtx,
		byID:   make(map[FileID]entry),
		byPath: make(map[string]FileID),
		nextID: RootFileID + 1,
	}
	a.byID[RootFileID] = entry{path: "/"}
	a.byPath["/"] = RootFileID
	return a
}

// VolumeID is the volume this adapter serves.
func (a *Adapter) VolumeID() domain.VolumeID { return a.ctx.VolumeID }

func (a *Adapter) register(path string, h fsal.AegisFileHandle) FileID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.byPath[path]; ok {
		a.byID[id] = entry{path: path, handle: h}
		return id
	}
	id := a.nextID
	a.nextID++
	a.byID[id] = entry{path: path, handle: h}
	a.byPath[path] = id
	return id
}

func (a *Adapter) resolve(id FileID) (entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.byID[id]
	if !ok {
		return entry{}, &ErrHandleNotFound{ID: id}
	}
	return e, nil
}

func (a *Adapter) forget(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.byPath[path]; ok {
		delete(a.byID, id)
		delete(a.byPath, path)
	}
}

// Lookup resolves name under the directory named by dirID and returns
// a (possibly newly minted) FileID for it. Maps to FSAL.Lookup.
func (a *Adapter) Lookup(ctx context.Context, dirID FileID, name string) (FileID, error) {
	dir, err := a.resolve(dirID)
	if err != nil {
		return 0, err
	}
	h, canonical, err := a.fsal.Lookup(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, dir.path, name)
	if err != nil {
		return 0, err
	}
	return a.register(canonical, h), nil
}

// GetAttr stats the file named by id, with the adapter's container
// UID/GID squashed onto the result.
func (a *Adapter) GetAttr(ctx context.Context, id FileID) (storage.FileAttributes, error) {
	if id == RootFileID {
		return storage.FileAttributes{IsDir: true, Mode: 0o755, Uid: a.ctx.ContainerUID, Gid: a.ctx.ContainerGID}, nil
	}
	e, err := a.resolve(id)
	if err != nil {
		return storage.FileAttributes{}, err
	}
	return a.fsal.GetAttr(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, e.path, a.ctx.ContainerUID, a.ctx.ContainerGID)
}

// Read reads count bytes at offset from the file named by id.
func (a *Adapter) Read(ctx context.Context, id FileID, offset int64, count int) ([]byte, error) {
	e, err := a.resolve(id)
	if err != nil {
		return nil, err
	}
	return a.fsal.Read(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, e.path, offset, count)
}

// Write writes data at offset to the file named by id.
func (a *Adapter) Write(ctx context.Context, id FileID, offset int64, data []byte) (int, error) {
	e, err := a.resolve(id)
	if err != nil {
		return 0, err
	}
	return a.fsal.Write(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, e.path, offset, data)
}

// Readdir lists entries under the directory named by id.
func (a *Adapter) Readdir(ctx context.Context, id FileID) ([]storage.DirEntry, error) {
	e, err := a.resolve(id)
	if err != nil {
		return nil, err
	}
	return a.fsal.Readdir(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, e.path)
}

// Create creates name under the directory named by dirID and returns
// a FileID for the new file.
func (a *Adapter) Create(ctx context.Context, dirID FileID, name string) (FileID, error) {
	dir, err := a.resolve(dirID)
	if err != nil {
		return 0, err
	}
	path := joinNfsPath(dir.path, name)
	h, err := a.fsal.CreateFile(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, path)
	if err != nil {
		return 0, err
	}
	return a.register(path, h), nil
}

// Mkdir creates directory name under dirID.
func (a *Adapter) Mkdir(ctx context.Context, dirID FileID, name string) (FileID, error) {
	dir, err := a.resolve(dirID)
	if err != nil {
		return 0, err
	}
	path := joinNfsPath(dir.path, name)
	if err := a.fsal.CreateDirectory(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, path); err != nil {
		return 0, err
	}
	return a.register(path, fsal.AegisFileHandle{}), nil
}

// Remove deletes name (a file) under the directory named by dirID.
func (a *Adapter) Remove(ctx context.Context, dirID FileID, name string) error {
	dir, err := a.resolve(dirID)
	if err != nil {
		return err
	}
	path := joinNfsPath(dir.path, name)
	if err := a.fsal.DeleteFile(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, path); err != nil {
		return err
	}
	a.forget(path)
	return nil
}

// Rmdir deletes directory name under the directory named by dirID.
func (a *Adapter) Rmdir(ctx context.Context, dirID FileID, name string) error {
	dir, err := a.resolve(dirID)
	if err != nil {
		return err
	}
	path := joinNfsPath(dir.path, name)
	if err := a.fsal.DeleteDirectory(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, path); err != nil {
		return err
	}
	a.forget(path)
	return nil
}

// Rename moves fromName under fromDirID to toName under toDirID,
// policy-checking both sides (FSAL.Rename).
func (a *Adapter) Rename(ctx context.Context, fromDirID FileID, fromName string, toDirID FileID, toName string) error {
	fromDir, err := a.resolve(fromDirID)
	if err != nil {
		return err
	}
	toDir, err := a.resolve(toDirID)
	if err != nil {
		return err
	}
	fromPath := joinNfsPath(fromDir.path, fromName)
	toPath := joinNfsPath(toDir.path, toName)
	if err := a.fsal.Rename(ctx, a.ctx.ExecutionID, a.ctx.VolumeID, fromPath, toPath); err != nil {
		return err
	}
	a.mu.Lock()
	if id, ok := a.byPath[fromPath]; ok {
		delete(a.byPath, fromPath)
		a.byPath[toPath] = id
		e := a.byID[id]
		e.path = toPath
		a.byID[id] = e
	}
	a.mu.Unlock()
	return nil
}

func joinNfsPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
