package domain

// ValidationRequest is the payload handed to a judge agent: the content
// under review plus the criteria it should be scored against, per spec
// §4.H. It is serialized verbatim into the judge execution's input.
type ValidationRequest struct {
	Content  interface{} `json:"content"`
	Criteria []string    `json:"criteria,omitempty"`
}

// GradientResult is a single judge's scored opinion of a
// ValidationRequest, parsed back out of that judge's final iteration
// output.
type GradientResult struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// JudgeOutcome pairs a judge's identity with the result it produced, or
// the reason it produced none.
type JudgeOutcome struct {
	JudgeAgentID AgentID
	Result       *GradientResult
	Err          error
}

// MultiJudgeConsensus is the aggregated verdict across every judge that
// returned a result.
type MultiJudgeConsensus struct {
	FinalScore          float64
	ConsensusConfidence float64
	Accepted            bool
	Reasoning           string
	Strategy            string
	Individual          []JudgeOutcome
}
