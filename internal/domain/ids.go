package domain

import "github.com/aegis-run/orchestrator/internal/ids"

// Opaque identifiers. Each is a distinct type over a ULID string so the
// compiler catches an AgentID passed where an ExecutionID is expected.
// All are comparable, hashable as map keys, and Stringers.

type AgentID string
type ExecutionID string
type VolumeID string
type WorkflowID string
type SessionID string
type PatternID string
type ToolServerID string

func (id AgentID) String() string      { return string(id) }
func (id ExecutionID) String() string  { return string(id) }
func (id VolumeID) String() string     { return string(id) }
func (id WorkflowID) String() string   { return string(id) }
func (id SessionID) String() string    { return string(id) }
func (id PatternID) String() string    { return string(id) }
func (id ToolServerID) String() string { return string(id) }

func NewAgentID() AgentID           { return AgentID(ids.NewWithPrefix("agent")) }
func NewExecutionID() ExecutionID   { return ExecutionID(ids.NewWithPrefix("exec")) }
func NewVolumeID() VolumeID         { return VolumeID(ids.NewWithPrefix("vol")) }
func NewWorkflowID() WorkflowID     { return WorkflowID(ids.NewWithPrefix("wf")) }
func NewSessionID() SessionID       { return SessionID(ids.NewWithPrefix("sess")) }
func NewPatternID() PatternID       { return PatternID(ids.NewWithPrefix("pat")) }
func NewToolServerID() ToolServerID { return ToolServerID(ids.NewWithPrefix("tsrv")) }
