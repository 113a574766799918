package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
)

func TestPolicyRepositoryDefaultsToEmptyPolicy(t *testing.T) {
	r := NewPolicyRepository()
	p, err := r.PolicyFor(context.Background(), domain.VolumeID("vol_unset"))
	require.NoError(t, err)
	require.Empty(t, p.Read)
	require.Empty(t, p.Write)
}

func TestPolicyRepositorySetThenGet(t *testing.T) {
	r := NewPolicyRepository()
	want := domain.FilesystemPolicy{Read: []string{"/workspace/**"}, Write: []string{"/workspace/**"}}
	r.Set(domain.VolumeID("vol_1"), want)

	got, err := r.PolicyFor(context.Background(), domain.VolumeID("vol_1"))
	require.NoError(t, err)
	require.Equal(t, want, got)
}
