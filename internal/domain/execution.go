package domain

import (
	"fmt"
	"time"
)

// MaxRecursiveDepth bounds how deep a judge-of-a-judge chain can run
// before a child execution is refused.
const MaxRecursiveDepth = 3

// ExecutionStatus is the lifecycle state of a single execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// terminal reports whether s is one of the statuses an Execution can
// never leave once reached.
func (s ExecutionStatus) terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the monotonic status-transition invariant:
// Running may move to any terminal status; nothing may move back to
// Pending; a terminal status is final.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	if s.terminal() {
		return false
	}
	if next == ExecutionPending {
		return false
	}
	if s == ExecutionPending {
		return next == ExecutionRunning || next.terminal()
	}
	return true
}

// Hierarchy places an Execution within a judge-recursion tree.
type Hierarchy struct {
	RootExecutionID   ExecutionID  `json:"root_execution_id"`
	ParentExecutionID *ExecutionID `json:"parent_execution_id,omitempty"`
	Depth             int          `json:"depth"`
}

// RootHierarchy builds the hierarchy for a brand-new, non-recursive
// execution: it is its own root at depth 0.
func RootHierarchy(id ExecutionID) Hierarchy {
	return Hierarchy{RootExecutionID: id, Depth: 0}
}

// ChildHierarchy builds the hierarchy for an execution spawned as a
// judge of parent. Returns an error if the resulting depth would exceed
// MaxRecursiveDepth.
func ChildHierarchy(parent Hierarchy, parentID ExecutionID) (Hierarchy, error) {
	depth := parent.Depth + 1
	if depth > MaxRecursiveDepth {
		return Hierarchy{}, fmt.Errorf("max depth exceeded: depth %d > %d", depth, MaxRecursiveDepth)
	}
	pid := parentID
	return Hierarchy{RootExecutionID: parent.RootExecutionID, ParentExecutionID: &pid, Depth: depth}, nil
}

// LLMInteraction records one model call observed during an iteration.
type LLMInteraction struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	TokensIn    int       `json:"tokens_in"`
	TokensOut   int       `json:"tokens_out"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Iteration is one refine cycle within an Execution.
type Iteration struct {
	Number          int               `json:"number"`
	Action          string            `json:"action"`
	Output          interface{}       `json:"output,omitempty"`
	Error           string            `json:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	LLMInteractions []LLMInteraction  `json:"llm_interactions,omitempty"`
}

// Execution is the full refinement trace of one agent run.
type Execution struct {
	ID            ExecutionID     `json:"id"`
	AgentID       AgentID         `json:"agent_id"`
	Status        ExecutionStatus `json:"status"`
	Input         map[string]interface{} `json:"input"`
	Iterations    []Iteration     `json:"iterations"`
	MaxIterations int             `json:"max_iterations"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	Hierarchy     Hierarchy       `json:"hierarchy"`
}

// Transition attempts the status change and reports whether it was
// legal; illegal transitions are a no-op on the receiver.
func (e *Execution) Transition(next ExecutionStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal execution status transition %s -> %s", e.Status, next)
	}
	e.Status = next
	return nil
}

// AppendIteration adds it to the refinement trace.
func (e *Execution) AppendIteration(it Iteration) {
	e.Iterations = append(e.Iterations, it)
}
