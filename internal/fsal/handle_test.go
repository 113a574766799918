package fsal

import (
	"testing"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestHandleRoundTrip(t *testing.T) {
	h := NewAegisFileHandle("exec_1", "vol_1", "/workspace/out.txt", time.Now())
	buf, err := h.ToBytes()
	require.NoError(t, err)
	require.LessOrEqual(t, len(buf), MaxHandleBytes)

	got, err := HandleFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestHandleDiffersByPath(t *testing.T) {
	now := time.Now()
	a := NewAegisFileHandle(domain.ExecutionID("e"), domain.VolumeID("v"), "/a", now)
	b := NewAegisFileHandle(domain.ExecutionID("e"), domain.VolumeID("v"), "/b", now)
	require.NotEqual(t, a.PathHash, b.PathHash)
}
