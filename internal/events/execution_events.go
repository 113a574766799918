package events

import "time"

// base is embedded by every concrete event to provide OccurredAt.
type base struct {
	Timestamp time.Time `json:"timestamp"`
}

func (b base) OccurredAt() time.Time { return b.Timestamp }

func newBase() base { return base{Timestamp: time.Now()} }

type ExecutionStarted struct {
	base
	ExecutionID string `json:"execution_id"`
	AgentID     string `json:"agent_id"`
}

func NewExecutionStarted(executionID, agentID string) ExecutionStarted {
	return ExecutionStarted{base: newBase(), ExecutionID: executionID, AgentID: agentID}
}
func (e ExecutionStarted) Type() string            { return "execution_started" }
func (e ExecutionStarted) ExecutionScope() string   { return e.ExecutionID }

type IterationStarted struct {
	base
	ExecutionID string `json:"execution_id"`
	Number      int    `json:"number"`
	Action      string `json:"action"`
}

func NewIterationStarted(executionID string, number int, action string) IterationStarted {
	return IterationStarted{base: newBase(), ExecutionID: executionID, Number: number, Action: action}
}
func (e IterationStarted) Type() string          { return "iteration_started" }
func (e IterationStarted) ExecutionScope() string { return e.ExecutionID }

type IterationCompleted struct {
	base
	ExecutionID string      `json:"execution_id"`
	Number      int         `json:"number"`
	Output      interface{} `json:"output"`
}

func NewIterationCompleted(executionID string, number int, output interface{}) IterationCompleted {
	return IterationCompleted{base: newBase(), ExecutionID: executionID, Number: number, Output: output}
}
func (e IterationCompleted) Type() string          { return "iteration_completed" }
func (e IterationCompleted) ExecutionScope() string { return e.ExecutionID }

type IterationFailed struct {
	base
	ExecutionID string `json:"execution_id"`
	Number      int    `json:"number"`
	Error       string `json:"error"`
}

func NewIterationFailed(executionID string, number int, err string) IterationFailed {
	return IterationFailed{base: newBase(), ExecutionID: executionID, Number: number, Error: err}
}
func (e IterationFailed) Type() string          { return "iteration_failed" }
func (e IterationFailed) ExecutionScope() string { return e.ExecutionID }

type RefinementApplied struct {
	base
	ExecutionID string      `json:"execution_id"`
	Iteration   int         `json:"iteration"`
	CodeDiff    interface{} `json:"code_diff"`
}

func NewRefinementApplied(executionID string, iteration int, codeDiff interface{}) RefinementApplied {
	return RefinementApplied{base: newBase(), ExecutionID: executionID, Iteration: iteration, CodeDiff: codeDiff}
}
func (e RefinementApplied) Type() string          { return "refinement_applied" }
func (e RefinementApplied) ExecutionScope() string { return e.ExecutionID }

type ExecutionCompleted struct {
	base
	ExecutionID    string      `json:"execution_id"`
	Output         interface{} `json:"output"`
	TotalIterations int        `json:"total_iterations"`
}

func NewExecutionCompleted(executionID string, output interface{}, totalIterations int) ExecutionCompleted {
	return ExecutionCompleted{base: newBase(), ExecutionID: executionID, Output: output, TotalIterations: totalIterations}
}
func (e ExecutionCompleted) Type() string          { return "execution_completed" }
func (e ExecutionCompleted) ExecutionScope() string { return e.ExecutionID }

type ExecutionFailed struct {
	base
	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason"`
}

func NewExecutionFailed(executionID, reason string) ExecutionFailed {
	return ExecutionFailed{base: newBase(), ExecutionID: executionID, Reason: reason}
}
func (e ExecutionFailed) Type() string          { return "execution_failed" }
func (e ExecutionFailed) ExecutionScope() string { return e.ExecutionID }

type ExecutionCancelled struct {
	base
	ExecutionID string `json:"execution_id"`
}

func NewExecutionCancelled(executionID string) ExecutionCancelled {
	return ExecutionCancelled{base: newBase(), ExecutionID: executionID}
}
func (e ExecutionCancelled) Type() string          { return "execution_cancelled" }
func (e ExecutionCancelled) ExecutionScope() string { return e.ExecutionID }

type ConsoleOutput struct {
	base
	ExecutionID string `json:"execution_id"`
	Stream      string `json:"stream"`
	Line        string `json:"line"`
}

func NewConsoleOutput(executionID, stream, line string) ConsoleOutput {
	return ConsoleOutput{base: newBase(), ExecutionID: executionID, Stream: stream, Line: line}
}
func (e ConsoleOutput) Type() string          { return "console_output" }
func (e ConsoleOutput) ExecutionScope() string { return e.ExecutionID }

type LlmInteraction struct {
	base
	ExecutionID string `json:"execution_id"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
}

func NewLlmInteraction(executionID, provider, model string) LlmInteraction {
	return LlmInteraction{base: newBase(), ExecutionID: executionID, Provider: provider, Model: model}
}
func (e LlmInteraction) Type() string          { return "llm_interaction" }
func (e LlmInteraction) ExecutionScope() string { return e.ExecutionID }
