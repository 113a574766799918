package cortex

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// dedupSimilarityThreshold is the store_pattern dedup bar: a new
// pattern whose nearest existing neighbor clears this similarity is
// folded into that neighbor (a dopamine weight bump) instead of
// creating a duplicate.
const dedupSimilarityThreshold = 0.95

// EventPublisher is satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// RankedPattern is one SearchPatterns result: the stored pattern plus
// the resonance score it was ranked by.
type RankedPattern struct {
	Pattern   domain.CortexPattern
	Resonance float64
}

// Service is the pattern memory service: store/search with resonance
// ranking, reinforcement, and pruning.
type Service struct {
	repo   repo.PatternRepository
	store  Store
	events EventPublisher
	now    func() time.Time
}

func New(repository repo.PatternRepository, store Store, publisher EventPublisher) *Service {
	return &Service{repo: repository, store: store, events: publisher, now: time.Now}
}

// StorePattern indexes a new (error-signature -> solution) pattern,
// folding it into its nearest existing neighbor when that neighbor's
// similarity clears dedupSimilarityThreshold rather than creating a
// near-duplicate entry.
func (s *Service) StorePattern(ctx context.Context, sig domain.ErrorSignature, solution, category string, tags []string, embedding []float64) (*domain.CortexPattern, error) {
	matches, err := s.store.SearchSimilar(ctx, embedding, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 && matches[0].Similarity > dedupSimilarityThreshold {
		existing := matches[0].Pattern
		existing.ApplyDopamine(1.0)
		if err := s.repo.Save(ctx, &existing); err != nil {
			return nil, err
		}
		if err := s.store.Index(ctx, existing); err != nil {
			return nil, err
		}
		s.events.Publish(events.NewPatternWeightIncreased(existing.ID.String(), events.ReasonDeduplication, existing.Weight))
		return &existing, nil
	}

	p := domain.NewCortexPattern(sig, solution, category, tags, s.now())
	p.Embedding = embedding
	if err := s.repo.Save(ctx, &p); err != nil {
		return nil, err
	}
	if err := s.store.Index(ctx, p); err != nil {
		return nil, err
	}
	s.events.Publish(events.NewPatternDiscovered(p.ID.String(), p.TaskCategory))
	return &p, nil
}

// SearchPatterns returns the topK patterns nearest embedding, ranked by
// resonance rather than raw similarity:
//
//	resonance = 0.5*similarity + 0.3*success_score + 0.2*recency
//	recency   = exp(-0.01 * days_since_last_verified)
func (s *Service) SearchPatterns(ctx context.Context, embedding []float64, topK int) ([]RankedPattern, error) {
	// Over-fetch from the vector index since resonance re-ranking can
	// promote a lower-similarity-but-fresher-and-more-successful match
	// above the raw top-topK similarity hits.
	matches, err := s.store.SearchSimilar(ctx, embedding, topK*5)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ranked := make([]RankedPattern, len(matches))
	for i, m := range matches {
		ranked[i] = RankedPattern{Pattern: m.Pattern, Resonance: resonanceScore(m.Similarity, m.Pattern, now)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Resonance > ranked[j].Resonance })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

func resonanceScore(similarity float64, p domain.CortexPattern, now time.Time) float64 {
	daysOld := now.Sub(p.LastVerified).Hours() / 24
	recency := math.Exp(-0.01 * daysOld)
	return 0.5*similarity + 0.3*p.SuccessScore + 0.2*recency
}

// UpdatePatternSuccess folds a fresh outcome observation into id's
// running success_score mean.
func (s *Service) UpdatePatternSuccess(ctx context.Context, id domain.PatternID, outcomeScore float64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.RecordSuccess(outcomeScore, s.now())
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	s.events.Publish(events.NewPatternSuccessUpdated(id.String(), p.SuccessScore))
	return s.store.Index(ctx, *p)
}

// ApplyDopamine is positive reinforcement on a pattern that contributed
// to a successful outcome.
func (s *Service) ApplyDopamine(ctx context.Context, id domain.PatternID, amount float64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.ApplyDopamine(amount)
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	s.events.Publish(events.NewPatternWeightIncreased(id.String(), events.ReasonDopamine, p.Weight))
	return s.store.Index(ctx, *p)
}

// ApplyCortisol is negative reinforcement on a pattern that contributed
// to a failed outcome; weight floors at domain.MinPatternWeight rather
// than going negative or being deleted outright; pruning is a
// separate, explicit decision (PrunePatterns).
func (s *Service) ApplyCortisol(ctx context.Context, id domain.PatternID, penalty float64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.ApplyCortisol(penalty)
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	return s.store.Index(ctx, *p)
}

// PrunePatterns deletes every pattern that meets ShouldPrune's
// underweight-or-stale criterion and returns how many were removed.
func (s *Service) PrunePatterns(ctx context.Context, minWeight float64, maxAge time.Duration) (int, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	pruned := 0
	for _, p := range all {
		if !p.ShouldPrune(minWeight, maxAge, now) {
			continue
		}
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return pruned, err
		}
		if err := s.store.Remove(ctx, p.ID); err != nil {
			return pruned, err
		}
		s.events.Publish(events.NewPatternPruned(p.ID.String()))
		pruned++
	}
	if pruned > 0 {
		s.events.Publish(events.NewPatternsPruned(pruned))
	}
	return pruned, nil
}
