package smcp

import (
	"crypto/ed25519"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// CallError is the tagged failure EvaluateCall returns; Kind
// identifies which of the five ordered checks failed.
type CallError struct {
	Kind   string // session_inactive | session_expired | signature_verification_failed | malformed_payload | policy:<EvalFailure>
	Detail string
}

func (e *CallError) Error() string { return e.Kind + ": " + e.Detail }

func fail(kind, detail string) *CallError { return &CallError{Kind: kind, Detail: detail} }

// EvaluateCall is the single enforcement point for a signed tool call,
// applying five ordered checks and returning the first failure:
//  1. session must be Active
//  2. now must be <= expires_at
//  3. envelope signature must verify (constant-time)
//  4. inner MCP payload must decode to a (tool, args) pair
//  5. security_context.Evaluate(tool, args) must not report a failure
func EvaluateCall(session *domain.SmcpSession, envelope Envelope, now time.Time) (ToolCall, error) {
	if !session.Status.Active {
		return ToolCall{}, fail("session_inactive", session.Status.String())
	}
	if now.After(session.ExpiresAt) {
		return ToolCall{}, fail("session_expired", "")
	}
	if !envelope.VerifySignature(ed25519.PublicKey(session.AgentPublicKey[:])) {
		return ToolCall{}, fail("signature_verification_failed", "")
	}
	call, err := envelope.ExtractToolCall()
	if err != nil {
		return ToolCall{}, fail("malformed_payload", err.Error())
	}
	if reason := session.SecurityContext.Evaluate(call.ToolName, call.Args); reason != domain.FailNone {
		return ToolCall{}, fail("policy:"+string(reason), call.ToolName)
	}
	return call, nil
}
