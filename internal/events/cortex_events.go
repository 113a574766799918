package events

type WeightIncreaseReason string

const (
	ReasonDeduplication WeightIncreaseReason = "deduplication"
	ReasonDopamine      WeightIncreaseReason = "dopamine"
)

type PatternDiscovered struct {
	base
	PatternID    string `json:"pattern_id"`
	TaskCategory string `json:"task_category"`
}

func NewPatternDiscovered(patternID, category string) PatternDiscovered {
	return PatternDiscovered{base: newBase(), PatternID: patternID, TaskCategory: category}
}
func (e PatternDiscovered) Type() string { return "pattern_discovered" }

type PatternWeightIncreased struct {
	base
	PatternID string                `json:"pattern_id"`
	Reason    WeightIncreaseReason  `json:"reason"`
	NewWeight float64               `json:"new_weight"`
}

func NewPatternWeightIncreased(patternID string, reason WeightIncreaseReason, newWeight float64) PatternWeightIncreased {
	return PatternWeightIncreased{base: newBase(), PatternID: patternID, Reason: reason, NewWeight: newWeight}
}
func (e PatternWeightIncreased) Type() string { return "pattern_weight_increased" }

type PatternSuccessUpdated struct {
	base
	PatternID       string  `json:"pattern_id"`
	NewSuccessScore float64 `json:"new_success_score"`
}

func NewPatternSuccessUpdated(patternID string, newScore float64) PatternSuccessUpdated {
	return PatternSuccessUpdated{base: newBase(), PatternID: patternID, NewSuccessScore: newScore}
}
func (e PatternSuccessUpdated) Type() string { return "pattern_success_updated" }

type PatternPruned struct {
	base
	PatternID string `json:"pattern_id"`
}

func NewPatternPruned(patternID string) PatternPruned {
	return PatternPruned{base: newBase(), PatternID: patternID}
}
func (e PatternPruned) Type() string { return "pattern_pruned" }

type PatternsPruned struct {
	base
	Count int `json:"count"`
}

func NewPatternsPruned(count int) PatternsPruned {
	return PatternsPruned{base: newBase(), Count: count}
}
func (e PatternsPruned) Type() string { return "patterns_pruned" }

type GradientValidationPerformed struct {
	base
	ExecutionID string  `json:"execution_id"`
	JudgeIndex  int     `json:"judge_index"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
}

func NewGradientValidationPerformed(executionID string, judgeIndex int, score, confidence float64) GradientValidationPerformed {
	return GradientValidationPerformed{base: newBase(), ExecutionID: executionID, JudgeIndex: judgeIndex, Score: score, Confidence: confidence}
}
func (e GradientValidationPerformed) Type() string          { return "gradient_validation_performed" }
func (e GradientValidationPerformed) ExecutionScope() string { return e.ExecutionID }

type MultiJudgeConsensusReached struct {
	base
	ExecutionID string  `json:"execution_id"`
	FinalScore  float64 `json:"final_score"`
	Confidence  float64 `json:"consensus_confidence"`
	Strategy    string  `json:"strategy_name"`
}

func NewMultiJudgeConsensusReached(executionID string, finalScore, confidence float64, strategy string) MultiJudgeConsensusReached {
	return MultiJudgeConsensusReached{base: newBase(), ExecutionID: executionID, FinalScore: finalScore, Confidence: confidence, Strategy: strategy}
}
func (e MultiJudgeConsensusReached) Type() string          { return "multi_judge_consensus_reached" }
func (e MultiJudgeConsensusReached) ExecutionScope() string { return e.ExecutionID }
