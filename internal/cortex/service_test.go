package cortex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/cortex"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
)

func TestStorePattern_NewPatternIndexedAndDiscoverable(t *testing.T) {
	repository := memory.NewPatternRepository()
	store := cortex.NewMemoryStore()
	svc := cortex.New(repository, store, events.New())

	sig := domain.ErrorSignature{ErrorType: "timeout", ErrorMessageHash: "abc123"}
	p, err := svc.StorePattern(context.Background(), sig, "retry with backoff", "network", []string{"retry"}, []float64{1, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Weight)
	require.Equal(t, 0.5, p.SuccessScore)

	results, err := svc.SearchPatterns(context.Background(), []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, p.ID, results[0].Pattern.ID)
}

func TestStorePattern_NearDuplicateFoldsIntoExisting(t *testing.T) {
	repository := memory.NewPatternRepository()
	store := cortex.NewMemoryStore()
	svc := cortex.New(repository, store, events.New())

	sig := domain.ErrorSignature{ErrorType: "timeout", ErrorMessageHash: "abc123"}
	first, err := svc.StorePattern(context.Background(), sig, "retry with backoff", "network", nil, []float64{1, 0, 0})
	require.NoError(t, err)

	second, err := svc.StorePattern(context.Background(), sig, "retry with backoff, slight variation", "network", nil, []float64{1, 0, 0})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2.0, second.Weight)

	all, err := repository.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSearchPatterns_ResonanceFavorsFreshSuccessfulOverRawSimilarity(t *testing.T) {
	repository := memory.NewPatternRepository()
	store := cortex.NewMemoryStore()
	svc := cortex.New(repository, store, events.New())
	ctx := context.Background()

	stale := domain.NewCortexPattern(domain.ErrorSignature{ErrorType: "a"}, "old fix", "cat", nil, time.Now().Add(-365*24*time.Hour))
	stale.Embedding = []float64{1, 0, 0}
	stale.SuccessScore = 0.2
	require.NoError(t, repository.Save(ctx, &stale))
	require.NoError(t, store.Index(ctx, stale))

	fresh := domain.NewCortexPattern(domain.ErrorSignature{ErrorType: "b"}, "new fix", "cat", nil, time.Now())
	fresh.Embedding = []float64{0.99, 0.01, 0}
	fresh.SuccessScore = 0.95
	require.NoError(t, repository.Save(ctx, &fresh))
	require.NoError(t, store.Index(ctx, fresh))

	results, err := svc.SearchPatterns(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, fresh.ID, results[0].Pattern.ID)
}

func TestApplyCortisol_WeightFloorsAtMinimum(t *testing.T) {
	repository := memory.NewPatternRepository()
	store := cortex.NewMemoryStore()
	svc := cortex.New(repository, store, events.New())
	ctx := context.Background()

	p := domain.NewCortexPattern(domain.ErrorSignature{ErrorType: "x"}, "fix", "cat", nil, time.Now())
	require.NoError(t, repository.Save(ctx, &p))
	require.NoError(t, store.Index(ctx, p))

	require.NoError(t, svc.ApplyCortisol(ctx, p.ID, 10))

	updated, err := repository.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MinPatternWeight, updated.Weight)
}

func TestPrunePatterns_RemovesUnderweightPatterns(t *testing.T) {
	repository := memory.NewPatternRepository()
	store := cortex.NewMemoryStore()
	svc := cortex.New(repository, store, events.New())
	ctx := context.Background()

	weak := domain.NewCortexPattern(domain.ErrorSignature{ErrorType: "x"}, "fix", "cat", nil, time.Now())
	weak.Weight = 0.05
	require.NoError(t, repository.Save(ctx, &weak))
	require.NoError(t, store.Index(ctx, weak))

	strong := domain.NewCortexPattern(domain.ErrorSignature{ErrorType: "y"}, "fix2", "cat", nil, time.Now())
	strong.Weight = 5.0
	require.NoError(t, repository.Save(ctx, &strong))
	require.NoError(t, store.Index(ctx, strong))

	pruned, err := svc.PrunePatterns(ctx, 0.1, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, pruned)

	all, err := repository.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, strong.ID, all[0].ID)
}
