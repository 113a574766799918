package events

type WorkflowExecutionStarted struct {
	base
	WorkflowExecutionID string `json:"workflow_execution_id"`
	WorkflowID           string `json:"workflow_id"`
}

func NewWorkflowExecutionStarted(weID, workflowID string) WorkflowExecutionStarted {
	return WorkflowExecutionStarted{base: newBase(), WorkflowExecutionID: weID, WorkflowID: workflowID}
}
func (e WorkflowExecutionStarted) Type() string          { return "workflow_execution_started" }
func (e WorkflowExecutionStarted) ExecutionScope() string { return e.WorkflowExecutionID }

type StateEntered struct {
	base
	WorkflowExecutionID string `json:"workflow_execution_id"`
	StateName           string `json:"state_name"`
}

func NewStateEntered(weID, state string) StateEntered {
	return StateEntered{base: newBase(), WorkflowExecutionID: weID, StateName: state}
}
func (e StateEntered) Type() string          { return "state_entered" }
func (e StateEntered) ExecutionScope() string { return e.WorkflowExecutionID }

type StateExited struct {
	base
	WorkflowExecutionID string      `json:"workflow_execution_id"`
	StateName           string      `json:"state_name"`
	Output              interface{} `json:"output"`
}

func NewStateExited(weID, state string, output interface{}) StateExited {
	return StateExited{base: newBase(), WorkflowExecutionID: weID, StateName: state, Output: output}
}
func (e StateExited) Type() string          { return "state_exited" }
func (e StateExited) ExecutionScope() string { return e.WorkflowExecutionID }

type WorkflowExecutionCompleted struct {
	base
	WorkflowExecutionID string                 `json:"workflow_execution_id"`
	FinalBlackboard      map[string]interface{} `json:"final_blackboard"`
	Artifacts            map[string]interface{} `json:"artifacts,omitempty"`
}

func NewWorkflowExecutionCompleted(weID string, finalBlackboard, artifacts map[string]interface{}) WorkflowExecutionCompleted {
	return WorkflowExecutionCompleted{base: newBase(), WorkflowExecutionID: weID, FinalBlackboard: finalBlackboard, Artifacts: artifacts}
}
func (e WorkflowExecutionCompleted) Type() string          { return "workflow_execution_completed" }
func (e WorkflowExecutionCompleted) ExecutionScope() string { return e.WorkflowExecutionID }

type WorkflowExecutionFailed struct {
	base
	WorkflowExecutionID string `json:"workflow_execution_id"`
	Reason              string `json:"reason"`
}

func NewWorkflowExecutionFailed(weID, reason string) WorkflowExecutionFailed {
	return WorkflowExecutionFailed{base: newBase(), WorkflowExecutionID: weID, Reason: reason}
}
func (e WorkflowExecutionFailed) Type() string          { return "workflow_execution_failed" }
func (e WorkflowExecutionFailed) ExecutionScope() string { return e.WorkflowExecutionID }

type WorkflowExecutionCancelled struct {
	base
	WorkflowExecutionID string `json:"workflow_execution_id"`
}

func NewWorkflowExecutionCancelled(weID string) WorkflowExecutionCancelled {
	return WorkflowExecutionCancelled{base: newBase(), WorkflowExecutionID: weID}
}
func (e WorkflowExecutionCancelled) Type() string          { return "workflow_execution_cancelled" }
func (e WorkflowExecutionCancelled) ExecutionScope() string { return e.WorkflowExecutionID }
