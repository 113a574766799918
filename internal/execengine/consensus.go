package execengine

import (
	"context"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// ConsensusStrategy names the aggregation strategy internal/validation
// applies across judge results.
type ConsensusStrategy string

const (
	StrategyWeightedAverage ConsensusStrategy = "weighted_average"
	StrategyMajority        ConsensusStrategy = "majority"
	StrategyUnanimous       ConsensusStrategy = "unanimous"
	StrategyBestOfN         ConsensusStrategy = "best_of_n"
)

// ConsensusConfig is the judge-validation configuration the engine
// reads off the agent manifest (or the workflow state, when the agent
// is running inside a workflow).
type ConsensusConfig struct {
	Strategy          ConsensusStrategy
	AcceptThreshold   float64
	MinJudgesRequired int
	BestOfN           int
	JudgeTimeout      time.Duration
	Judges            []string // agent names resolved by the caller to AgentIDs
}

// DefaultConsensusConfig is a 60s judge-aggregation timeout with a
// weighted-average policy, a one-judge minimum, and a 0.8 accept
// threshold. manifestConsensusConfig starts every agent's config from
// it and overrides the fields the manifest sets; an agent whose
// manifest declares no judges is not validated at all.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		Strategy:          StrategyWeightedAverage,
		AcceptThreshold:   0.8,
		MinJudgesRequired: 1,
		JudgeTimeout:      60 * time.Second,
	}
}

// ConsensusResult is the narrow view of validation's MultiJudgeConsensus
// the engine needs to decide refine-vs-complete, returned across the
// execengine/validation package boundary without either package
// depending on the other's richer internal types.
type ConsensusResult struct {
	FinalScore          float64
	ConsensusConfidence float64
	Accepted            bool
	Reasoning           string
	StrategyName        string
}

// Validator is implemented by internal/validation.Service. Defined here
// (rather than imported) so execengine has zero dependency on
// internal/validation; validation depends on execengine instead, for
// the Executor half of this same recursive relationship (see
// internal/validation/service.go).
type Validator interface {
	ValidateWithJudges(ctx context.Context, executionID domain.ExecutionID, content interface{}, criteria []string, judgeAgentIDs []domain.AgentID, cfg ConsensusConfig) (*ConsensusResult, error)
}
