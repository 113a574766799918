package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestAgentRepositoryFindByName(t *testing.T) {
	ctx := context.Background()
	r := NewAgentRepository()
	a := &domain.Agent{ID: "agent_1", Name: "printer", Status: domain.AgentActive, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, r.Save(ctx, a))

	got, err := r.FindByName(ctx, "printer")
	require.NoError(t, err)
	require.Equal(t, domain.AgentID("agent_1"), got.ID)

	_, err = r.FindByName(ctx, "missing")
	require.Error(t, err)
}

func TestExecutionRepositoryAppendEventUniqueSequence(t *testing.T) {
	ctx := context.Background()
	r := NewExecutionRepository()
	require.NoError(t, r.AppendEvent(ctx, "exec_1", 1, "execution_started", nil, nil))
	err := r.AppendEvent(ctx, "exec_1", 1, "execution_started", nil, nil)
	require.Error(t, err)

	require.NoError(t, r.AppendEvent(ctx, "exec_1", 2, "iteration_started", nil, nil))
	events := r.Events("exec_1")
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].SequenceNumber)
	require.Equal(t, int64(2), events[1].SequenceNumber)
}

func TestVolumeRepositoryRejectsDuplicateRemotePath(t *testing.T) {
	ctx := context.Background()
	r := NewVolumeRepository()
	require.NoError(t, r.Save(ctx, &domain.Volume{ID: "vol_1", RemotePath: "/data/a"}))
	err := r.Save(ctx, &domain.Volume{ID: "vol_2", RemotePath: "/data/a"})
	require.Error(t, err)
}
