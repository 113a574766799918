package nfsgateway

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/fsal"
	"github.com/aegis-run/orchestrator/internal/fsal/storage"
)

const (
	testExecutionID = domain.ExecutionID("exec_nfs_1")
	testVolumeID    = domain.VolumeID("vol_nfs_1")
)

type fakeVolumes struct {
	vol *domain.Volume
}

func (f *fakeVolumes) FindByID(_ context.Context, id domain.VolumeID) (*domain.Volume, error) {
	if f.vol == nil || f.vol.ID != id {
		return nil, nil
	}
	return f.vol, nil
}

type fakePolicies struct {
	policy domain.FilesystemPolicy
}

func (f *fakePolicies) PolicyFor(_ context.Context, _ domain.VolumeID) (domain.FilesystemPolicy, error) {
	return f.policy, nil
}

func newTestGateway(t *testing.T) (*Gateway, *fakeVolumes) {
	t.Helper()
	provider := storage.NewAferoProvider(afero.NewMemMapFs())
	require.NoError(t, provider.CreateDirectory(context.Background(), "/remote/vol1"))

	vol := &domain.Volume{
		ID:             testVolumeID,
		RemotePath:     "/remote/vol1",
		Status:         domain.VolumeAttached,
		Ownership:      domain.ExecutionOwnership(testExecutionID),
		SizeLimitBytes: 1 << 20,
	}
	volumes := &fakeVolumes{vol: vol}
	policies := &fakePolicies{policy: domain.FilesystemPolicy{
		Read:  []string{"/workspace/**"},
		Write: []string{"/workspace/**"},
	}}
	f := fsal.New(provider, volumes, events.New(), policies)

	gw := NewGateway(f, nil)
	gw.RegisterVolume(VolumeContext{
		ExecutionID:  testExecutionID,
		VolumeID:     testVolumeID,
		ContainerUID: 1000,
		ContainerGID: 1000,
		Policy:       policies.policy,
	})
	return gw, volumes
}

func TestGatewayMountUnknownVolumeFails(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.Mount(domain.VolumeID("does-not-exist"))
	require.Error(t, err)
	var notReg *ErrVolumeNotRegistered
	require.ErrorAs(t, err, &notReg)
}

func TestAdapterCreateWriteReadRoundTrip(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)

	ctx := context.Background()
	dirID, err := a.Lookup(ctx, RootFileID, "workspace")
	require.NoError(t, err)

	fileID, err := a.Create(ctx, dirID, "out.txt")
	require.NoError(t, err)

	n, err := a.Write(ctx, fileID, 0, []byte("hello aegis"))
	require.NoError(t, err)
	require.Equal(t, len("hello aegis"), n)

	data, err := a.Read(ctx, fileID, 0, 64)
	require.NoError(t, err)
	require.Equal(t, "hello aegis", string(data))
}

func TestAdapterGetAttrSquashesUidGid(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	ctx := context.Background()

	dirID, err := a.Lookup(ctx, RootFileID, "workspace")
	require.NoError(t, err)
	fileID, err := a.Create(ctx, dirID, "out.txt")
	require.NoError(t, err)

	attrs, err := a.GetAttr(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), attrs.Uid)
	require.Equal(t, uint32(1000), attrs.Gid)
}

func TestAdapterReaddir(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	ctx := context.Background()

	dirID, err := a.Lookup(ctx, RootFileID, "workspace")
	require.NoError(t, err)
	_, err = a.Create(ctx, dirID, "a.txt")
	require.NoError(t, err)
	_, err = a.Create(ctx, dirID, "b.txt")
	require.NoError(t, err)

	entries, err := a.Readdir(ctx, dirID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestAdapterRename(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	ctx := context.Background()

	dirID, err := a.Lookup(ctx, RootFileID, "workspace")
	require.NoError(t, err)
	_, err = a.Create(ctx, dirID, "old.txt")
	require.NoError(t, err)

	require.NoError(t, a.Rename(ctx, dirID, "old.txt", dirID, "new.txt"))

	_, err = a.Read(ctx, mustLookup(t, a, dirID, "new.txt"), 0, 1)
	require.NoError(t, err)
}

func mustLookup(t *testing.T, a *Adapter, dirID FileID, name string) FileID {
	t.Helper()
	id, err := a.Lookup(context.Background(), dirID, name)
	require.NoError(t, err)
	return id
}

func TestAdapterPolicyViolationOutsideAllowlist(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Create(ctx, RootFileID, "outside.txt")
	require.Error(t, err)
	require.Equal(t, NFS3ERR_ACCES, ToStatus(err))
}

func TestAdapterQuotaExceededMapsToNoSpace(t *testing.T) {
	gw, vols := newTestGateway(t)
	vols.vol.SizeLimitBytes = 4
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	ctx := context.Background()

	dirID, err := a.Lookup(ctx, RootFileID, "workspace")
	require.NoError(t, err)
	fileID, err := a.Create(ctx, dirID, "big.txt")
	require.NoError(t, err)

	_, err = a.Write(ctx, fileID, 0, []byte("this payload exceeds the quota"))
	require.Error(t, err)
	require.Equal(t, NFS3ERR_NOSPC, ToStatus(err))
}

func TestVolumeRegistryRegisterDeregister(t *testing.T) {
	r := NewVolumeRegistry()
	r.Register(VolumeContext{VolumeID: testVolumeID, ExecutionID: testExecutionID})
	require.Equal(t, 1, r.Count())

	ctx, ok := r.Lookup(testVolumeID)
	require.True(t, ok)
	require.Equal(t, testExecutionID, ctx.ExecutionID)

	r.Deregister(testVolumeID)
	require.Equal(t, 0, r.Count())
}

func TestGatewayDeregisterUnmounts(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.Mount(testVolumeID)
	require.NoError(t, err)
	require.Len(t, gw.ActiveMounts(), 1)

	gw.DeregisterVolume(testVolumeID)
	require.Empty(t, gw.ActiveMounts())
}

func TestStatusMappingDefaults(t *testing.T) {
	require.Equal(t, NFS3_OK, ToStatus(nil))
}

func TestRootFileIDReservedAndSynthetic(t *testing.T) {
	gw, _ := newTestGateway(t)
	a, err := gw.Mount(testVolumeID)
	require.NoError(t, err)

	attrs, err := a.GetAttr(context.Background(), RootFileID)
	require.NoError(t, err)
	require.True(t, attrs.IsDir)
}
