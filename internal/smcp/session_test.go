package smcp

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/stretchr/testify/require"
)

func signedEnvelope(t *testing.T, priv ed25519.PrivateKey, method string, params interface{}) Envelope {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)
	inner, err := json.Marshal(map[string]interface{}{
		"method": method,
		"params": json.RawMessage(paramsJSON),
	})
	require.NoError(t, err)
	sig := ed25519.Sign(priv, inner)
	return Envelope{InnerMCP: inner, Signature: sig}
}

func newTestSession(t *testing.T, sc domain.SecurityContext) (*domain.SmcpSession, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var pk [32]byte
	copy(pk[:], pub)
	s := domain.NewSmcpSession("agent_1", "exec_1", pk, "tok", sc, time.Now())
	return s, priv
}

func TestEvaluateCallHappyPath(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", []domain.Capability{{ToolPattern: "*"}}, nil)
	session, priv := newTestSession(t, sc)
	env := signedEnvelope(t, priv, "tools/call", map[string]interface{}{
		"name":      "fs.read",
		"arguments": map[string]interface{}{"path": "/workspace/a.txt"},
	})

	call, err := EvaluateCall(session, env, time.Now())
	require.NoError(t, err)
	require.Equal(t, "fs.read", call.ToolName)
}

func TestEvaluateCallRejectsExpired(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", []domain.Capability{{ToolPattern: "*"}}, nil)
	session, priv := newTestSession(t, sc)
	env := signedEnvelope(t, priv, "tools/call", map[string]interface{}{"name": "fs.read", "arguments": map[string]interface{}{}})

	_, err := EvaluateCall(session, env, time.Now().Add(2*time.Hour))
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "session_expired", ce.Kind)
}

func TestEvaluateCallRejectsBadSignature(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", []domain.Capability{{ToolPattern: "*"}}, nil)
	session, _ := newTestSession(t, sc)
	_, otherPriv, _ := ed25519.GenerateKey(nil)
	env := signedEnvelope(t, otherPriv, "tools/call", map[string]interface{}{"name": "fs.read", "arguments": map[string]interface{}{}})

	_, err := EvaluateCall(session, env, time.Now())
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "signature_verification_failed", ce.Kind)
}

func TestEvaluateCallDenyListOverridesWildcard(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", []domain.Capability{{ToolPattern: "*"}}, []string{"cmd.run"})
	session, priv := newTestSession(t, sc)
	env := signedEnvelope(t, priv, "cmd.run", map[string]interface{}{"command": "rm -rf /"})

	_, err := EvaluateCall(session, env, time.Now())
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Kind, "tool_explicitly_denied")
}

func TestEvaluateCallPathOutsideBoundary(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", []domain.Capability{
		{ToolPattern: "fs.*", PathAllowlist: []string{"/workspace"}},
	}, nil)
	session, priv := newTestSession(t, sc)
	env := signedEnvelope(t, priv, "tools/call", map[string]interface{}{
		"name":      "fs.read",
		"arguments": map[string]interface{}{"path": "/etc/passwd"},
	})

	_, err := EvaluateCall(session, env, time.Now())
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Kind, "path_outside_boundary")
}

func TestRevokeIsMonotonic(t *testing.T) {
	sc := domain.NewSecurityContext("default", "", nil, nil)
	session, _ := newTestSession(t, sc)
	session.Revoke("compromised")
	session.Revoke("second reason")
	require.Equal(t, "compromised", session.Status.Reason)
}
