package smcp

import (
	"crypto/ed25519"
	"time"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// IssuedSession pairs a freshly created SmcpSession with the ed25519
// private key the caller must hold to sign future envelopes. The key
// is generated here, never persisted, since only the public half is
// bound into the session.
type IssuedSession struct {
	Session    *domain.SmcpSession
	PrivateKey ed25519.PrivateKey
}

// Bootstrap generates a fresh keypair and an HMAC-signed security
// token, then constructs the Active session a session repository can
// persist. ttl is the session lifetime the caller chooses
// (internal/httpapi passes its DefaultTokenTTL); a zero or negative ttl
// falls back to domain.SessionTTL, domain.NewSmcpSession's default.
func Bootstrap(agentID domain.AgentID, executionID domain.ExecutionID, sc domain.SecurityContext, tokenSecret []byte, now time.Time, ttl time.Duration) (*IssuedSession, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	var pubArr [32]byte
	copy(pubArr[:], pub)

	if ttl <= 0 {
		ttl = domain.SessionTTL
	}
	expires := now.Add(ttl)
	claims := Claims{
		Issuer:          "aegis-run",
		Audience:        string(agentID),
		ExpiresAt:       expires.Unix(),
		IssuedAt:        now.Unix(),
		AgentID:         string(agentID),
		ExecutionID:     string(executionID),
		SecurityContext: sc.Name,
	}
	token, err := IssueToken(claims, tokenSecret)
	if err != nil {
		return nil, err
	}

	session := domain.NewSmcpSession(agentID, executionID, pubArr, token, sc, now)
	session.ExpiresAt = expires
	return &IssuedSession{Session: session, PrivateKey: priv}, nil
}
