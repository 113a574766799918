package domain

import "time"

// MinPatternWeight is the floor applied by ApplyCortisol. The pruner
// compares against its own caller-supplied min_weight instead.
const MinPatternWeight = 0.1

// ErrorSignature identifies the class of failure a pattern's solution
// addresses.
type ErrorSignature struct {
	ErrorType        string `json:"error_type"`
	ErrorMessageHash string `json:"error_message_hash"`
}

// CortexPattern is a stored (error-signature -> solution) association,
// paired with an embedding vector held by the pattern store.
type CortexPattern struct {
	ID             PatternID      `json:"id"`
	ErrorSignature ErrorSignature `json:"error_signature"`
	SolutionCode   string         `json:"solution_code"`
	TaskCategory   string         `json:"task_category"`
	SuccessScore   float64        `json:"success_score"`
	ExecutionCount uint64         `json:"execution_count"`
	Weight         float64        `json:"weight"`
	LastVerified   time.Time      `json:"last_verified"`
	CreatedAt      time.Time      `json:"created_at"`
	Tags           []string       `json:"tags"`
	Embedding      []float64      `json:"embedding,omitempty"`
}

// NewCortexPattern constructs a freshly-discovered pattern per the
// store_pattern operation's defaults (weight 1.0, success_score 0.5,
// execution_count 0).
func NewCortexPattern(sig ErrorSignature, solution, category string, tags []string, now time.Time) CortexPattern {
	return CortexPattern{
		ID:             NewPatternID(),
		ErrorSignature: sig,
		SolutionCode:   solution,
		TaskCategory:   category,
		SuccessScore:   0.5,
		ExecutionCount: 0,
		Weight:         1.0,
		LastVerified:   now,
		CreatedAt:      now,
		Tags:           tags,
	}
}

// RecordSuccess folds a new success observation into the running mean
// over ExecutionCount samples.
func (p *CortexPattern) RecordSuccess(newScore float64, now time.Time) {
	total := p.SuccessScore * float64(p.ExecutionCount)
	p.ExecutionCount++
	p.SuccessScore = (total + newScore) / float64(p.ExecutionCount)
	p.LastVerified = now
}

// ApplyDopamine is positive reinforcement: weight increases unbounded.
func (p *CortexPattern) ApplyDopamine(amount float64) {
	p.Weight += amount
}

// ApplyCortisol is negative reinforcement: weight decreases but never
// below MinPatternWeight.
func (p *CortexPattern) ApplyCortisol(penalty float64) {
	p.Weight -= penalty
	if p.Weight < MinPatternWeight {
		p.Weight = MinPatternWeight
	}
}

// ShouldPrune reports whether the pattern meets either deletion
// criterion: underweight or stale.
func (p *CortexPattern) ShouldPrune(minWeight float64, maxAge time.Duration, now time.Time) bool {
	if p.Weight < minWeight {
		return true
	}
	return now.Sub(p.CreatedAt) > maxAge
}
