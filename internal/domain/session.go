package domain

import "time"

// SessionStatus is the lifecycle state of an SmcpSession. Once it
// leaves Active it never returns; revocation and expiry are terminal.
type SessionStatus struct {
	Active  bool
	Expired bool
	Revoked bool
	Reason  string
}

func ActiveStatus() SessionStatus  { return SessionStatus{Active: true} }
func ExpiredStatus() SessionStatus { return SessionStatus{Expired: true} }
func RevokedStatus(reason string) SessionStatus {
	return SessionStatus{Revoked: true, Reason: reason}
}

func (s SessionStatus) String() string {
	switch {
	case s.Revoked:
		return "revoked:" + s.Reason
	case s.Expired:
		return "expired"
	case s.Active:
		return "active"
	default:
		return "unknown"
	}
}

// SessionTTL is the fixed lifetime of every SmcpSession from creation.
const SessionTTL = time.Hour

// SmcpSession is the attested, capability-bearing session an agent's
// container holds for the lifetime of one execution.
type SmcpSession struct {
	ID              SessionID       `json:"id"`
	AgentID         AgentID         `json:"agent_id"`
	ExecutionID     ExecutionID     `json:"execution_id"`
	AgentPublicKey  [32]byte        `json:"agent_public_key"`
	IssuedToken     string          `json:"issued_token"`
	SecurityContext SecurityContext `json:"security_context"`
	Status          SessionStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// NewSmcpSession constructs an Active session with a 1h TTL from now.
func NewSmcpSession(agentID AgentID, executionID ExecutionID, publicKey [32]byte, issuedToken string, sc SecurityContext, now time.Time) *SmcpSession {
	return &SmcpSession{
		ID:              NewSessionID(),
		AgentID:         agentID,
		ExecutionID:     executionID,
		AgentPublicKey:  publicKey,
		IssuedToken:     issuedToken,
		SecurityContext: sc,
		Status:          ActiveStatus(),
		CreatedAt:       now,
		ExpiresAt:       now.Add(SessionTTL),
	}
}

// Revoke transitions the session to Revoked{reason}. A session already
// out of Active is left unchanged; revocation is monotonic.
func (s *SmcpSession) Revoke(reason string) {
	if !s.Status.Active {
		return
	}
	s.Status = RevokedStatus(reason)
}

// Expire transitions the session to Expired if it is still Active.
func (s *SmcpSession) Expire() {
	if !s.Status.Active {
		return
	}
	s.Status = ExpiredStatus()
}
