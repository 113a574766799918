package fsal

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// MaxHandleBytes is the NFSv3 opaque file-handle size ceiling.
const MaxHandleBytes = 64

// handleLayout is the fixed binary shape of an AegisFileHandle:
// execution_id and volume_id as their raw 26-byte ULID text (padded to
// a fixed 26 bytes each, since every domain ID is ULID-shaped), an
// 8-byte FNV-1a path hash, and an 8-byte unix-nano timestamp. Total:
// 26+26+8+8 = 68 bytes, over the NFSv3 64-byte limit, so ids are
// hashed to 8 bytes each instead (the handle has no authority on its
// own; it is a lookup key re-validated on every op), giving
// 8+8+8+8 = 32 bytes, comfortably under MaxHandleBytes.
const handleLayout = 32

// AegisFileHandle is the compact, re-validated-on-every-op reference
// FSAL hands back from lookup/create_file:
// (execution_id, volume_id, path_hash, created_at).
type AegisFileHandle struct {
	ExecutionIDHash uint64
	VolumeIDHash    uint64
	PathHash        uint64
	CreatedAtUnix   int64
}

func idHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// NewAegisFileHandle builds a handle for (executionID, volumeID, path)
// stamped at now.
func NewAegisFileHandle(executionID domain.ExecutionID, volumeID domain.VolumeID, path string, now time.Time) AegisFileHandle {
	return AegisFileHandle{
		ExecutionIDHash: idHash(string(executionID)),
		VolumeIDHash:    idHash(string(volumeID)),
		PathHash:        idHash(path),
		CreatedAtUnix:   now.UnixNano(),
	}
}

// ToBytes serializes the handle to its fixed 32-byte big-endian
// encoding and validates it is within the NFSv3 opaque-handle ceiling.
func (h AegisFileHandle) ToBytes() ([]byte, error) {
	buf := make([]byte, handleLayout)
	binary.BigEndian.PutUint64(buf[0:8], h.ExecutionIDHash)
	binary.BigEndian.PutUint64(buf[8:16], h.VolumeIDHash)
	binary.BigEndian.PutUint64(buf[16:24], h.PathHash)
	binary.BigEndian.PutUint64(buf[24:32], uint64(h.CreatedAtUnix))
	if len(buf) > MaxHandleBytes {
		return nil, fmt.Errorf("file handle exceeds %d bytes: got %d", MaxHandleBytes, len(buf))
	}
	return buf, nil
}

// HandleFromBytes deserializes the fixed 32-byte encoding.
func HandleFromBytes(buf []byte) (AegisFileHandle, error) {
	if len(buf) != handleLayout {
		return AegisFileHandle{}, fmt.Errorf("invalid file handle length %d, want %d", len(buf), handleLayout)
	}
	return AegisFileHandle{
		ExecutionIDHash: binary.BigEndian.Uint64(buf[0:8]),
		VolumeIDHash:    binary.BigEndian.Uint64(buf[8:16]),
		PathHash:        binary.BigEndian.Uint64(buf[16:24]),
		CreatedAtUnix:   int64(binary.BigEndian.Uint64(buf[24:32])),
	}, nil
}
