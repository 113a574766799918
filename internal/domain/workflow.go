package domain

import "time"

// WorkflowExecutionStatus mirrors ExecutionStatus but is kept distinct
// because a WorkflowExecution's terminal causes differ (NoTransitionSatisfied,
// max-iteration cycles) from a plain Execution's.
type WorkflowExecutionStatus string

const (
	WorkflowRunning   WorkflowExecutionStatus = "running"
	WorkflowCompleted WorkflowExecutionStatus = "completed"
	WorkflowFailed    WorkflowExecutionStatus = "failed"
	WorkflowCancelled WorkflowExecutionStatus = "cancelled"
)

func (s WorkflowExecutionStatus) Terminal() bool {
	switch s {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	default:
		return false
	}
}

// ConditionKind tags the sum type of transition conditions.
type ConditionKind string

const (
	ConditionAlways      ConditionKind = "always"
	ConditionEquals      ConditionKind = "equals"
	ConditionGreaterThan ConditionKind = "greater_than"
	ConditionLessThan    ConditionKind = "less_than"
	ConditionFailed      ConditionKind = "failed"
)

// Condition is evaluated against a WorkflowExecution's blackboard and,
// for Failed, the outcome of the state that just ran.
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Path      string        `json:"path,omitempty"`
	Value     interface{}   `json:"value,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
}

// Transition is one edge out of a state.
type Transition struct {
	Condition    Condition `json:"condition"`
	TargetState  string    `json:"target_state"`
	FeedbackPath string    `json:"feedback_path,omitempty"`
}

// StateKind tags the sum type of a state's executable shape.
type StateKind string

const (
	StateAgent          StateKind = "agent"
	StateSystem         StateKind = "system"
	StateHuman          StateKind = "human"
	StateParallelAgents StateKind = "parallel_agents"
)

// JoinPolicy governs how a ParallelAgents state's fan-out is joined.
type JoinPolicy string

const (
	JoinAll          JoinPolicy = "all"
	JoinAny          JoinPolicy = "any"
	JoinFirstSuccess JoinPolicy = "first_success"
)

// State is one node of a workflow's FSM. Exactly one of the Kind-
// specific fields is meaningful, selected by Kind.
type State struct {
	Kind StateKind `json:"kind"`

	// Agent
	AgentName  string `json:"agent_name,omitempty"`
	AgentInput string `json:"agent_input,omitempty"`

	// System
	Command string            `json:"command,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Workdir string            `json:"workdir,omitempty"`

	// Human
	Prompt          string `json:"prompt,omitempty"`
	DefaultResponse string `json:"default_response,omitempty"`

	// ParallelAgents
	ParallelAgentNames []string   `json:"parallel_agents,omitempty"`
	JoinPolicy         JoinPolicy `json:"join_policy,omitempty"`

	Transitions    []Transition `json:"transitions"`
	TimeoutSeconds int          `json:"timeout_seconds,omitempty"`
}

// WorkflowSpec is the declarative body of a workflow.
type WorkflowSpec struct {
	InitialState string                 `json:"initial_state"`
	Context      map[string]interface{} `json:"context"`
	States       map[string]State       `json:"states"`
}

// WorkflowMetadata carries the workflow's name/version for lookup.
type WorkflowMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Workflow is the immutable definition loaded by name or id.
type Workflow struct {
	ID       WorkflowID       `json:"id"`
	Metadata WorkflowMetadata `json:"metadata"`
	Spec     WorkflowSpec     `json:"spec"`
}

// UnreachableStates walks the state graph from InitialState and returns
// the names of any state never reached by a transition. This is a warning,
// not a validation failure, per spec.
func (w *Workflow) UnreachableStates() []string {
	visited := map[string]bool{w.Spec.InitialState: true}
	queue := []string{w.Spec.InitialState}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		st, ok := w.Spec.States[name]
		if !ok {
			continue
		}
		for _, t := range st.Transitions {
			if !visited[t.TargetState] {
				visited[t.TargetState] = true
				queue = append(queue, t.TargetState)
			}
		}
	}
	var unreached []string
	for name := range w.Spec.States {
		if !visited[name] {
			unreached = append(unreached, name)
		}
	}
	return unreached
}

// Validate checks structural invariants at load time (initial_state
// exists, every target_state exists). Unreachable
// states are reported separately via UnreachableStates and never cause
// Validate to fail.
func (w *Workflow) Validate() error {
	if _, ok := w.Spec.States[w.Spec.InitialState]; !ok {
		return &missingStateError{field: "initial_state", name: w.Spec.InitialState}
	}
	for name, st := range w.Spec.States {
		for _, t := range st.Transitions {
			if _, ok := w.Spec.States[t.TargetState]; !ok {
				return &missingStateError{field: "transition target (from " + name + ")", name: t.TargetState}
			}
		}
	}
	return nil
}

type missingStateError struct {
	field string
	name  string
}

func (e *missingStateError) Error() string {
	return "workflow " + e.field + " references undefined state " + e.name
}

// WorkflowExecution is one traversal of a Workflow's FSM.
type WorkflowExecution struct {
	ID               ExecutionID                  `json:"id"`
	WorkflowID       WorkflowID                    `json:"workflow_id"`
	Status           WorkflowExecutionStatus       `json:"status"`
	CurrentState     string                        `json:"current_state"`
	Blackboard       map[string]interface{}        `json:"blackboard"`
	Input            map[string]interface{}        `json:"input"`
	StateOutputs     map[string]interface{}        `json:"state_outputs"`
	StartedAt        time.Time                     `json:"started_at"`
	LastTransitionAt time.Time                     `json:"last_transition_at"`
	Artifacts        map[string]interface{}        `json:"artifacts,omitempty"`
}

// RecordStateOutput appends state_outputs monotonically; it never
// removes a prior entry, only adds or overwrites the named key.
func (we *WorkflowExecution) RecordStateOutput(state string, output interface{}) {
	if we.StateOutputs == nil {
		we.StateOutputs = make(map[string]interface{})
	}
	we.StateOutputs[state] = output
}
