package toolrouter

import (
	"context"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// RepoVolumeLookup satisfies VolumeForExecution over a plain
// repo.VolumeRepository, resolving the execution-owned volume per
// domain.ExecutionOwnership.
type RepoVolumeLookup struct {
	Volumes repo.VolumeRepository
}

func NewRepoVolumeLookup(volumes repo.VolumeRepository) *RepoVolumeLookup {
	return &RepoVolumeLookup{Volumes: volumes}
}

func (l *RepoVolumeLookup) VolumeFor(ctx context.Context, executionID domain.ExecutionID) (domain.VolumeID, error) {
	matches, err := l.Volumes.FindByOwnership(ctx, domain.ExecutionOwnership(executionID))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", repo.NotFound("volume.for_execution", "no volume owned by execution %s", executionID)
	}
	return matches[0].ID, nil
}
