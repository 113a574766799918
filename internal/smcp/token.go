package smcp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Claims is the SMCP security_token shape: standard
// JWT-ish fields plus the agent/execution/security-context attestation
// bound into the token at session creation.
type Claims struct {
	Issuer          string      `json:"iss"`
	Audience        interface{} `json:"aud"` // string or []string
	ExpiresAt       int64       `json:"exp"`
	IssuedAt        int64       `json:"iat"`
	AgentID         string      `json:"agent_id"`
	ExecutionID     string      `json:"execution_id"`
	SecurityContext string      `json:"security_context"`
}

// IssueToken builds and HMAC-SHA256-signs a compact
// header.payload.signature token, base64url-encoded with no padding.
// This is a narrow claims codec, not a general JWT implementation.
// EvaluateCall never needs to parse it; only attestation bookkeeping
// does.
func IssueToken(claims Claims, secret []byte) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "SMCP"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	headerPart := b64(headerJSON)
	payloadPart := b64(payloadJSON)
	signingInput := headerPart + "." + payloadPart
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	sig := mac.Sum(nil)
	return signingInput + "." + b64(sig), nil
}

// ParseToken verifies the HMAC and decodes Claims, failing closed on
// any mismatch.
func ParseToken(token string, secret []byte) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("malformed token: expected 3 parts, got %d", len(parts))
	}
	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	expected := mac.Sum(nil)
	got, err := unb64(parts[2])
	if err != nil {
		return Claims{}, fmt.Errorf("malformed signature: %w", err)
	}
	if !hmac.Equal(expected, got) {
		return Claims{}, fmt.Errorf("token signature mismatch")
	}
	payloadJSON, err := unb64(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("malformed payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Claims{}, fmt.Errorf("invalid claims json: %w", err)
	}
	return claims, nil
}

// Expired reports whether claims.ExpiresAt has passed as of now.
func (c Claims) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
func unb64(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
