package validation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/execengine"
	"github.com/aegis-run/orchestrator/internal/repo"
)

var errNoOutput = errors.New("judge completed but produced no output")

// EventPublisher is satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// Service implements execengine.Validator: it runs every judge in
// parallel via Executor.RunJudge, parses each one's GradientResult,
// and aggregates survivors per the configured ConsensusStrategy. A
// judge that errors, times out, or is cancelled is dropped rather than
// failing the whole validation; validation fails only when no judge,
// or fewer than cfg.MinJudgesRequired judges, produced a usable result.
type Service struct {
	execs    repo.ExecutionRepository
	executor Executor
	events   EventPublisher
	now      func() time.Time
}

// New builds a Service. execs is used to look up the calling
// execution's Hierarchy so RunJudge can place each judge one level
// deeper in the same recursion tree.
func New(execs repo.ExecutionRepository, executor Executor, publisher EventPublisher) *Service {
	return &Service{execs: execs, executor: executor, events: publisher, now: time.Now}
}

// ValidateWithJudges satisfies execengine.Validator.
func (s *Service) ValidateWithJudges(ctx context.Context, executionID domain.ExecutionID, content interface{}, criteria []string, judgeAgentIDs []domain.AgentID, cfg execengine.ConsensusConfig) (*execengine.ConsensusResult, error) {
	if len(judgeAgentIDs) == 0 {
		return nil, apierr.New(apierr.InvalidInput, "validation.validate_with_judges", "no judges provided for validation")
	}
	if cfg.MinJudgesRequired <= 0 {
		cfg.MinJudgesRequired = 1
	}

	parent, err := s.execs.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	request := domain.ValidationRequest{Content: content, Criteria: criteria}
	outcomes := s.runJudges(ctx, parent, request, judgeAgentIDs, cfg.JudgeTimeout)

	succeeded := 0
	for i, o := range outcomes {
		if o.Result != nil {
			succeeded++
			s.events.Publish(events.NewGradientValidationPerformed(executionID.String(), i, o.Result.Score, o.Result.Confidence))
		}
	}
	if succeeded == 0 {
		return nil, apierr.New(apierr.Integrity, "validation.validate_with_judges", "all judges failed to produce a result")
	}
	if succeeded < cfg.MinJudgesRequired {
		return nil, apierr.New(apierr.Integrity, "validation.validate_with_judges", "only %d of %d required judges produced a result", succeeded, cfg.MinJudgesRequired)
	}

	consensus := aggregate(cfg.Strategy, outcomes, cfg.AcceptThreshold)
	s.events.Publish(events.NewMultiJudgeConsensusReached(executionID.String(), consensus.FinalScore, consensus.ConsensusConfidence, consensus.Strategy))

	return &execengine.ConsensusResult{
		FinalScore:          consensus.FinalScore,
		ConsensusConfidence: consensus.ConsensusConfidence,
		Accepted:            consensus.Accepted,
		StrategyName:        consensus.Strategy,
	}, nil
}

// runJudges fans request out to every judge concurrently, each as a
// RunJudge call one hierarchy level below parent, with a soft
// per-judge timeout that drops (rather than fails) a slow judge.
func (s *Service) runJudges(ctx context.Context, parent *domain.Execution, request domain.ValidationRequest, judgeAgentIDs []domain.AgentID, timeout time.Duration) []domain.JudgeOutcome {
	if timeout <= 0 {
		timeout = execengine.DefaultConsensusConfig().JudgeTimeout
	}
	payload := map[string]interface{}{"content": request.Content, "criteria": request.Criteria}

	outcomes := make([]domain.JudgeOutcome, len(judgeAgentIDs))
	var wg sync.WaitGroup
	for i, judgeID := range judgeAgentIDs {
		wg.Add(1)
		go func(i int, judgeID domain.AgentID) {
			defer wg.Done()
			outcomes[i] = s.runOneJudge(ctx, parent, judgeID, payload, timeout)
		}(i, judgeID)
	}
	wg.Wait()
	return outcomes
}

func (s *Service) runOneJudge(ctx context.Context, parent *domain.Execution, judgeID domain.AgentID, payload map[string]interface{}, timeout time.Duration) domain.JudgeOutcome {
	jctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exec, err := s.executor.RunJudge(jctx, parent.Hierarchy, parent.ID, judgeID, payload)
	if err != nil {
		return domain.JudgeOutcome{JudgeAgentID: judgeID, Err: err}
	}
	if exec.Status != domain.ExecutionCompleted {
		return domain.JudgeOutcome{JudgeAgentID: judgeID, Err: apierr.New(apierr.Transient, "validation.run_judge", "judge execution ended in status %s", exec.Status)}
	}
	if len(exec.Iterations) == 0 {
		return domain.JudgeOutcome{JudgeAgentID: judgeID, Err: errNoOutput}
	}
	last := exec.Iterations[len(exec.Iterations)-1]
	result, err := parseGradientResult(last.Output)
	if err != nil {
		return domain.JudgeOutcome{JudgeAgentID: judgeID, Err: err}
	}
	return domain.JudgeOutcome{JudgeAgentID: judgeID, Result: result}
}

func aggregate(strategy execengine.ConsensusStrategy, outcomes []domain.JudgeOutcome, acceptThreshold float64) domain.MultiJudgeConsensus {
	switch strategy {
	case execengine.StrategyMajority:
		return majorityConsensus(outcomes, acceptThreshold)
	case execengine.StrategyUnanimous:
		return unanimousConsensus(outcomes, acceptThreshold)
	case execengine.StrategyBestOfN:
		return bestOfNConsensus(outcomes, acceptThreshold)
	default:
		return computeConsensus(outcomes, acceptThreshold)
	}
}
