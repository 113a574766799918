package validation

import (
	"github.com/aegis-run/orchestrator/internal/domain"
)

// computeConsensus aggregates the judges that produced a result: an
// unweighted mean score, and a confidence that drops as judges disagree
// (variance-penalized) blended with the judges' own stated confidence.
//
// variance          = sum((score - mean)^2) / n
// disagreement      = min(variance / 0.25, 1.0)     // 0.25 is max variance on [0,1]
// agreement         = 1 - disagreement
// consensusConfidence = agreement*0.7 + avgJudgeConfidence*0.3
// finalScore        = mean(score)
func computeConsensus(outcomes []domain.JudgeOutcome, acceptThreshold float64) domain.MultiJudgeConsensus {
	var succeeded []domain.JudgeOutcome
	for _, o := range outcomes {
		if o.Result != nil {
			succeeded = append(succeeded, o)
		}
	}
	if len(succeeded) == 0 {
		return domain.MultiJudgeConsensus{Strategy: "none", Individual: outcomes}
	}

	n := float64(len(succeeded))
	var total, totalConfidence float64
	for _, o := range succeeded {
		total += o.Result.Score
		totalConfidence += o.Result.Confidence
	}
	mean := total / n
	avgConfidence := totalConfidence / n

	var variance float64
	for _, o := range succeeded {
		d := o.Result.Score - mean
		variance += d * d
	}
	variance /= n

	disagreement := variance / 0.25
	if disagreement > 1.0 {
		disagreement = 1.0
	}
	agreement := 1.0 - disagreement
	consensusConfidence := agreement*0.7 + avgConfidence*0.3

	return domain.MultiJudgeConsensus{
		FinalScore:          mean,
		ConsensusConfidence: consensusConfidence,
		Accepted:            mean >= acceptThreshold,
		Strategy:            "average_with_variance_penalty",
		Individual:          outcomes,
	}
}

// majorityConsensus accepts iff more than half the succeeding judges
// individually clear acceptThreshold; final score is still the mean so
// callers get a continuous signal alongside the boolean verdict.
func majorityConsensus(outcomes []domain.JudgeOutcome, acceptThreshold float64) domain.MultiJudgeConsensus {
	c := computeConsensus(outcomes, acceptThreshold)
	if len(c.Individual) == 0 {
		return c
	}
	passing, total := 0, 0
	for _, o := range c.Individual {
		if o.Result == nil {
			continue
		}
		total++
		if o.Result.Score >= acceptThreshold {
			passing++
		}
	}
	c.Strategy = "majority"
	c.Accepted = total > 0 && passing*2 > total
	return c
}

// unanimousConsensus accepts only if every succeeding judge clears
// acceptThreshold.
func unanimousConsensus(outcomes []domain.JudgeOutcome, acceptThreshold float64) domain.MultiJudgeConsensus {
	c := computeConsensus(outcomes, acceptThreshold)
	accepted := len(c.Individual) > 0
	for _, o := range c.Individual {
		if o.Result == nil || o.Result.Score < acceptThreshold {
			accepted = false
			break
		}
	}
	c.Strategy = "unanimous"
	c.Accepted = accepted
	return c
}

// bestOfNConsensus reports the single highest-scoring judge result as
// the consensus. Used when judges
// are expected to disagree in kind (e.g. independent candidate
// generations) rather than in degree.
func bestOfNConsensus(outcomes []domain.JudgeOutcome, acceptThreshold float64) domain.MultiJudgeConsensus {
	var best *domain.JudgeOutcome
	for i := range outcomes {
		o := outcomes[i]
		if o.Result == nil {
			continue
		}
		if best == nil || o.Result.Score > best.Result.Score {
			best = &o
		}
	}
	if best == nil {
		return domain.MultiJudgeConsensus{Strategy: "best_of_n", Individual: outcomes}
	}
	return domain.MultiJudgeConsensus{
		FinalScore:          best.Result.Score,
		ConsensusConfidence: best.Result.Confidence,
		Accepted:            best.Result.Score >= acceptThreshold,
		Strategy:            "best_of_n",
		Individual:          outcomes,
	}
}
