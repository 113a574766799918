package toolrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/smcp"
)

// SessionLookup is the subset of internal/repo's SessionRepository the
// service needs to find the Active session for an agent.
type SessionLookup interface {
	ActiveFor(ctx context.Context, agentID domain.AgentID, executionID domain.ExecutionID) (*domain.SmcpSession, error)
}

// EventPublisher is satisfied directly by *events.Bus.
type EventPublisher interface {
	Publish(events.DomainEvent)
}

// Service implements spec 4.F's tool invocation service: Invoke for
// signed SMCP calls, InvokeInternal for orchestrator-initiated ones.
type Service struct {
	sessions SessionLookup
	router   *Router
	local    Dispatcher
	remote   Dispatcher
	events   EventPublisher
	now      func() time.Time
}

func NewService(sessions SessionLookup, router *Router, local, remote Dispatcher, publisher EventPublisher) *Service {
	return &Service{sessions: sessions, router: router, local: local, remote: remote, events: publisher, now: time.Now}
}

// Invoke handles a signed SMCP call:
//  1. look up the agent's Active session
//  2. EvaluateCall (session status, expiry, signature, payload decode,
//     capability evaluation)
//  3. route and dispatch
//  4. observe the Requested -> Running -> {Completed, Failed} lifecycle
func (s *Service) Invoke(ctx context.Context, agentID domain.AgentID, executionID domain.ExecutionID, envelope smcp.Envelope) (*domain.ToolInvocation, interface{}, error) {
	session, err := s.sessions.ActiveFor(ctx, agentID, executionID)
	if err != nil {
		return nil, nil, err
	}

	call, err := smcp.EvaluateCall(session, envelope, s.now())
	if err != nil {
		return nil, nil, err
	}

	return s.dispatch(ctx, executionID, call.ToolName, call.Args)
}

// InvokeInternal handles an orchestrator-initiated call that carries no
// SMCP signature. Capabilities are still re-evaluated against the
// execution's attached SecurityContext here: trusting the orchestrator
// caller does not extend to trusting the tool arguments it relays.
func (s *Service) InvokeInternal(ctx context.Context, agentID domain.AgentID, executionID domain.ExecutionID, toolName string, args map[string]interface{}) (*domain.ToolInvocation, interface{}, error) {
	session, err := s.sessions.ActiveFor(ctx, agentID, executionID)
	if err != nil {
		return nil, nil, err
	}
	if reason := session.SecurityContext.Evaluate(toolName, args); reason != domain.FailNone {
		return nil, nil, fmt.Errorf("toolrouter: internal call denied: %s", reason)
	}

	return s.dispatch(ctx, executionID, toolName, args)
}

func (s *Service) dispatch(ctx context.Context, executionID domain.ExecutionID, toolName string, args map[string]interface{}) (*domain.ToolInvocation, interface{}, error) {
	server, err := s.router.Route(ctx, toolName)
	if err != nil {
		return nil, nil, err
	}

	inv := domain.NewToolInvocation(executionID, server.ID, toolName, s.now())
	s.events.Publish(events.NewToolInvocationRequested(executionID.String(), server.ID.String(), toolName))

	inv.Start(s.now())

	dispatcher := s.local
	if server.ExecutionMode == domain.ExecutionModeRemote {
		dispatcher = s.remote
	}
	if dispatcher == nil {
		err := fmt.Errorf("toolrouter: no dispatcher configured for execution mode %q", server.ExecutionMode)
		inv.Fail(err.Error(), s.now())
		s.events.Publish(events.NewToolInvocationFailed(executionID.String(), server.ID.String(), toolName, err.Error(), inv.DurationMs))
		return inv, nil, err
	}

	result, err := dispatcher.Dispatch(ctx, executionID, server, toolName, args)
	if err != nil {
		inv.Fail(err.Error(), s.now())
		s.events.Publish(events.NewToolInvocationFailed(executionID.String(), server.ID.String(), toolName, err.Error(), inv.DurationMs))
		return inv, nil, err
	}

	inv.Complete(result, s.now())
	s.events.Publish(events.NewToolInvocationCompleted(executionID.String(), server.ID.String(), toolName, inv.DurationMs))
	return inv, result, nil
}
