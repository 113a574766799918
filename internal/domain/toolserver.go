package domain

import "time"

// ToolServerStatus is the lifecycle state of a registered tool server.
// Only a Running server is eligible for routing.
type ToolServerStatus string

const (
	ToolServerStarting ToolServerStatus = "starting"
	ToolServerRunning  ToolServerStatus = "running"
	ToolServerStopped  ToolServerStatus = "stopped"
	ToolServerFailed   ToolServerStatus = "failed"
)

// ExecutionMode decides how ToolRouter dispatches a matched call.
type ExecutionMode string

const (
	ExecutionModeLocal  ExecutionMode = "local"
	ExecutionModeRemote ExecutionMode = "remote"
)

// TransportKind is the wire transport used for a Remote tool server.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
	TransportSSE   TransportKind = "sse"
)

// ToolServer is a registered provider of one or more tools, identified
// by the capability patterns it advertises (exact tool name or a
// "prefix.*" wildcard).
type ToolServer struct {
	ID            ToolServerID     `json:"id"`
	Name          string           `json:"name"`
	Status        ToolServerStatus `json:"status"`
	ExecutionMode ExecutionMode    `json:"execution_mode"`
	Transport     TransportKind    `json:"transport,omitempty"`
	Command       string           `json:"command,omitempty"`
	Args          []string         `json:"args,omitempty"`
	URL           string           `json:"url,omitempty"`
	Capabilities  []string         `json:"capabilities"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Matches reports whether toolName is covered by one of the server's
// advertised capability patterns: an exact match or a "prefix.*"
// wildcard, mirroring the capability-pattern matching used in
// SecurityContext.
func (s *ToolServer) Matches(toolName string) bool {
	for _, cap := range s.Capabilities {
		if cap == "*" || cap == toolName {
			return true
		}
		if len(cap) > 2 && cap[len(cap)-2:] == ".*" {
			prefix := cap[:len(cap)-1] // keep trailing dot
			if len(toolName) > len(prefix) && toolName[:len(prefix)] == prefix {
				return true
			}
		}
	}
	return false
}

// ToolInvocationStatus tracks the Requested -> Running -> {Completed,
// Failed} lifecycle of a single tool call.
type ToolInvocationStatus string

const (
	ToolInvocationRequested ToolInvocationStatus = "requested"
	ToolInvocationRunning   ToolInvocationStatus = "running"
	ToolInvocationCompleted ToolInvocationStatus = "completed"
	ToolInvocationFailed    ToolInvocationStatus = "failed"
)

func (s ToolInvocationStatus) terminal() bool {
	return s == ToolInvocationCompleted || s == ToolInvocationFailed
}

// ToolInvocation is the audit record of one routed tool call.
type ToolInvocation struct {
	ID          string                `json:"id"`
	ExecutionID ExecutionID           `json:"execution_id"`
	ToolServer  ToolServerID          `json:"tool_server_id"`
	ToolName    string                `json:"tool_name"`
	Status      ToolInvocationStatus  `json:"status"`
	Result      interface{}           `json:"result,omitempty"`
	Error       string                `json:"error,omitempty"`
	RequestedAt time.Time             `json:"requested_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	EndedAt     *time.Time            `json:"ended_at,omitempty"`
	DurationMs  int64                 `json:"duration_ms,omitempty"`
}

// NewToolInvocation starts a new invocation record in Requested state.
func NewToolInvocation(executionID ExecutionID, serverID ToolServerID, toolName string, now time.Time) *ToolInvocation {
	return &ToolInvocation{
		ID:          NewExecutionID().String() + "-inv",
		ExecutionID: executionID,
		ToolServer:  serverID,
		ToolName:    toolName,
		Status:      ToolInvocationRequested,
		RequestedAt: now,
	}
}

// Start transitions Requested -> Running.
func (i *ToolInvocation) Start(now time.Time) {
	if i.Status != ToolInvocationRequested {
		return
	}
	i.Status = ToolInvocationRunning
	i.StartedAt = &now
}

// Complete transitions Running -> Completed and stamps duration_ms.
// A no-op once the invocation has already reached a terminal state.
func (i *ToolInvocation) Complete(result interface{}, now time.Time) {
	if i.Status.terminal() {
		return
	}
	i.Status = ToolInvocationCompleted
	i.Result = result
	i.finish(now)
}

// Fail transitions Running -> Failed and stamps duration_ms. A no-op
// once the invocation has already reached a terminal state.
func (i *ToolInvocation) Fail(cause string, now time.Time) {
	if i.Status.terminal() {
		return
	}
	i.Status = ToolInvocationFailed
	i.Error = cause
	i.finish(now)
}

func (i *ToolInvocation) finish(now time.Time) {
	i.EndedAt = &now
	start := i.RequestedAt
	if i.StartedAt != nil {
		start = *i.StartedAt
	}
	i.DurationMs = now.Sub(start).Milliseconds()
}
