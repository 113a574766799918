package events

type ToolInvocationRequested struct {
	base
	ExecutionID string `json:"execution_id"`
	ToolServer  string `json:"tool_server_id"`
	ToolName    string `json:"tool_name"`
}

func NewToolInvocationRequested(executionID, toolServerID, toolName string) ToolInvocationRequested {
	return ToolInvocationRequested{base: newBase(), ExecutionID: executionID, ToolServer: toolServerID, ToolName: toolName}
}
func (e ToolInvocationRequested) Type() string           { return "tool_invocation_requested" }
func (e ToolInvocationRequested) ExecutionScope() string { return e.ExecutionID }

type ToolInvocationCompleted struct {
	base
	ExecutionID string `json:"execution_id"`
	ToolServer  string `json:"tool_server_id"`
	ToolName    string `json:"tool_name"`
	DurationMs  int64  `json:"duration_ms"`
}

func NewToolInvocationCompleted(executionID, toolServerID, toolName string, durationMs int64) ToolInvocationCompleted {
	return ToolInvocationCompleted{base: newBase(), ExecutionID: executionID, ToolServer: toolServerID, ToolName: toolName, DurationMs: durationMs}
}
func (e ToolInvocationCompleted) Type() string           { return "tool_invocation_completed" }
func (e ToolInvocationCompleted) ExecutionScope() string { return e.ExecutionID }

type ToolInvocationFailed struct {
	base
	ExecutionID string `json:"execution_id"`
	ToolServer  string `json:"tool_server_id"`
	ToolName    string `json:"tool_name"`
	Reason      string `json:"reason"`
	DurationMs  int64  `json:"duration_ms"`
}

func NewToolInvocationFailed(executionID, toolServerID, toolName, reason string, durationMs int64) ToolInvocationFailed {
	return ToolInvocationFailed{base: newBase(), ExecutionID: executionID, ToolServer: toolServerID, ToolName: toolName, Reason: reason, DurationMs: durationMs}
}
func (e ToolInvocationFailed) Type() string           { return "tool_invocation_failed" }
func (e ToolInvocationFailed) ExecutionScope() string { return e.ExecutionID }
