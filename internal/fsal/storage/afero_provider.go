package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// AferoProvider is the default Provider implementation, backed by an
// afero.Fs: local disk (afero.NewOsFs()) in production, an in-memory
// fs in tests, matching the afero-abstracted filesystem access
// pattern station uses in pkg/config for its own config directories.
type AferoProvider struct {
	fs afero.Fs

	mu      sync.Mutex
	handles map[Handle]afero.File
	next    int64

	quotaMu sync.Mutex
	quotas  map[string]int64
}

// NewAferoProvider wraps fs as a Provider.
func NewAferoProvider(fs afero.Fs) *AferoProvider {
	return &AferoProvider{
		fs:      fs,
		handles: make(map[Handle]afero.File),
		quotas:  make(map[string]int64),
	}
}

type handleID int64

func (p *AferoProvider) OpenFile(_ context.Context, fullPath string, mode OpenMode) (Handle, error) {
	var f afero.File
	var err error
	switch mode {
	case ReadOnly:
		f, err = p.fs.Open(fullPath)
	case ReadWrite:
		f, err = p.fs.OpenFile(fullPath, os.O_RDWR, 0o644)
	case Create:
		f, err = p.fs.OpenFile(fullPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	default:
		return nil, fmt.Errorf("unknown open mode %d", mode)
	}
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.next++
	h := handleID(p.next)
	p.handles[h] = f
	p.mu.Unlock()
	return h, nil
}

func (p *AferoProvider) file(h Handle) (afero.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.handles[h]
	if !ok {
		return nil, fmt.Errorf("unknown file handle")
	}
	return f, nil
}

func (p *AferoProvider) ReadAt(_ context.Context, h Handle, offset int64, length int) ([]byte, error) {
	f, err := p.file(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil // short read at EOF, per spec
}

func (p *AferoProvider) WriteAt(_ context.Context, h Handle, offset int64, data []byte) (int, error) {
	f, err := p.file(h)
	if err != nil {
		return 0, err
	}
	return f.WriteAt(data, offset)
}

func (p *AferoProvider) CloseFile(_ context.Context, h Handle) error {
	p.mu.Lock()
	f, ok := p.handles[h]
	if ok {
		delete(p.handles, h)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown file handle")
	}
	return f.Close()
}

func (p *AferoProvider) Stat(_ context.Context, fullPath string) (FileAttributes, error) {
	info, err := p.fs.Stat(fullPath)
	if err != nil {
		return FileAttributes{}, err
	}
	return FileAttributes{
		Size:    info.Size(),
		Mode:    uint32(info.Mode().Perm()),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

func (p *AferoProvider) Readdir(_ context.Context, fullPath string) ([]DirEntry, error) {
	infos, err := afero.ReadDir(p.fs, fullPath)
	if err != nil {
		return nil, err
	}
	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, DirEntry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size()})
	}
	return entries, nil
}

func (p *AferoProvider) CreateFile(_ context.Context, fullPath string, mode uint32) error {
	f, err := p.fs.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(mode))
	if err != nil {
		return err
	}
	return f.Close()
}

func (p *AferoProvider) DeleteFile(_ context.Context, fullPath string) error {
	return p.fs.Remove(fullPath)
}

func (p *AferoProvider) CreateDirectory(_ context.Context, fullPath string) error {
	return p.fs.MkdirAll(fullPath, 0o755)
}

func (p *AferoProvider) DeleteDirectory(_ context.Context, fullPath string) error {
	return p.fs.RemoveAll(fullPath)
}

func (p *AferoProvider) Rename(_ context.Context, fromPath, toPath string) error {
	return p.fs.Rename(fromPath, toPath)
}

func (p *AferoProvider) SetQuota(_ context.Context, root string, limitBytes int64) error {
	p.quotaMu.Lock()
	p.quotas[root] = limitBytes
	p.quotaMu.Unlock()
	return nil
}

// GetUsage sums file sizes under root. There is no native quota
// accounting in afero, so usage is computed by walking the tree,
// acceptable at the volume scale this core targets (small,
// per-execution working directories, not bulk object storage).
func (p *AferoProvider) GetUsage(_ context.Context, root string) (int64, error) {
	var total int64
	err := afero.Walk(p.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (p *AferoProvider) HealthCheck(_ context.Context) error {
	_, err := p.fs.Stat(string(filepath.Separator))
	return err
}
