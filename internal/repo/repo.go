// Package repo defines the repository contracts for every aggregate
// in the system. Implementations live in repo/memory (single-process,
// hash-map backed) and repo/sqlite (relational, JSONB-equivalent
// columns, goose-migrated).
package repo

import (
	"context"
	"time"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/domain"
)

// NotFound/Conflict are convenience constructors every implementation
// should use so callers can branch on apierr.KindOf uniformly.
func NotFound(op, format string, args ...interface{}) error {
	return apierr.New(apierr.NotFound, op, format, args...)
}

func Conflict(op, format string, args ...interface{}) error {
	return apierr.New(apierr.Conflict, op, format, args...)
}

type AgentRepository interface {
	Save(ctx context.Context, agent *domain.Agent) error
	FindByID(ctx context.Context, id domain.AgentID) (*domain.Agent, error)
	FindByName(ctx context.Context, name string) (*domain.Agent, error)
	List(ctx context.Context) ([]*domain.Agent, error)
	Delete(ctx context.Context, id domain.AgentID) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, exec *domain.Execution) error
	FindByID(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error)
	FindByAgent(ctx context.Context, agentID domain.AgentID) ([]*domain.Execution, error)
	Recent(ctx context.Context, limit int) ([]*domain.Execution, error)
	// AppendEvent is the event-sourcing path: a unique
	// (execution_id, sequence_number) pair, used by the workflow
	// engine's durability layer.
	AppendEvent(ctx context.Context, executionID domain.ExecutionID, sequenceNumber int64, eventType string, payload []byte, iterationNumber *int) error
}

type WorkflowRepository interface {
	Save(ctx context.Context, wf *domain.Workflow) error
	FindByID(ctx context.Context, id domain.WorkflowID) (*domain.Workflow, error)
	FindByName(ctx context.Context, name string) (*domain.Workflow, error)
	List(ctx context.Context) ([]*domain.Workflow, error)
}

type WorkflowExecutionRepository interface {
	Save(ctx context.Context, we *domain.WorkflowExecution) error
	FindByID(ctx context.Context, id domain.ExecutionID) (*domain.WorkflowExecution, error)
	Active(ctx context.Context) ([]*domain.WorkflowExecution, error)
}

type VolumeRepository interface {
	Save(ctx context.Context, v *domain.Volume) error
	FindByID(ctx context.Context, id domain.VolumeID) (*domain.Volume, error)
	FindByTenant(ctx context.Context, tenantID string) ([]*domain.Volume, error)
	FindByOwnership(ctx context.Context, ownership domain.Ownership) ([]*domain.Volume, error)
	Expired(ctx context.Context, asOf time.Time) ([]*domain.Volume, error)
	Delete(ctx context.Context, id domain.VolumeID) error
}

type SessionRepository interface {
	Save(ctx context.Context, s *domain.SmcpSession) error
	FindByID(ctx context.Context, id domain.SessionID) (*domain.SmcpSession, error)
	// ActiveFor returns the session matching the "at most one Active
	// session per (agent_id, execution_id)" invariant, if any.
	ActiveFor(ctx context.Context, agentID domain.AgentID, executionID domain.ExecutionID) (*domain.SmcpSession, error)
}

type PatternRepository interface {
	Save(ctx context.Context, p *domain.CortexPattern) error
	FindByID(ctx context.Context, id domain.PatternID) (*domain.CortexPattern, error)
	FindByErrorSignature(ctx context.Context, sig domain.ErrorSignature) ([]*domain.CortexPattern, error)
	All(ctx context.Context) ([]*domain.CortexPattern, error)
	Delete(ctx context.Context, id domain.PatternID) error
}

type ToolServerRepository interface {
	Save(ctx context.Context, s *domain.ToolServer) error
	FindByID(ctx context.Context, id domain.ToolServerID) (*domain.ToolServer, error)
	List(ctx context.Context) ([]*domain.ToolServer, error)
	// Running returns the servers currently eligible for routing.
	Running(ctx context.Context) ([]*domain.ToolServer, error)
}
