package domain

import "time"

// AgentStatus is the lifecycle state of a deployed agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentPaused   AgentStatus = "paused"
	AgentArchived AgentStatus = "archived"
	AgentFailed   AgentStatus = "failed"
)

// ResourceLimits bounds the container an agent runs in.
type ResourceLimits struct {
	CPUShares   int64 `json:"cpu_shares,omitempty"`
	MemoryBytes int64 `json:"memory_bytes,omitempty"`
}

// AgentManifest is the value object describing how an agent is run. It
// is immutable once attached to an Agent between updates; a new
// manifest means a new deploy, not a mutation in place.
type AgentManifest struct {
	RuntimeImage        string          `json:"runtime_image"`
	InitialIntent       string          `json:"initial_intent"`
	SecurityContextName string          `json:"security_context_name"`
	ToolAllowlist       []string        `json:"tool_allowlist"`
	ResourceLimits      ResourceLimits  `json:"resource_limits"`
	TimeoutSeconds      int             `json:"timeout_seconds"`
	MaxIterations       int             `json:"max_iterations,omitempty"`

	// Judges names the agents invoked to score this agent's output at
	// each iteration; empty means no validation is
	// configured and every iteration is auto-accepted.
	Judges            []string `json:"judges,omitempty"`
	AcceptThreshold   float64  `json:"accept_threshold,omitempty"`
	ConsensusStrategy string   `json:"consensus_strategy,omitempty"`
}

// SecurityContext derives the capability set an SMCP session for this
// manifest should carry: one exact-match or "prefix.*" capability per
// tool_allowlist entry, unconstrained otherwise. A manifest with an
// empty allowlist yields a single "*" capability: an absent allowlist
// means no restriction declared, not deny-all.
func (m AgentManifest) SecurityContext() SecurityContext {
	patterns := m.ToolAllowlist
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	caps := make([]Capability, len(patterns))
	for i, p := range patterns {
		caps[i] = Capability{ToolPattern: p}
	}
	return NewSecurityContext(m.SecurityContextName, "derived from agent manifest", caps, nil)
}

// Agent is a deployed, addressable unit of work.
type Agent struct {
	ID        AgentID       `json:"id"`
	Name      string        `json:"name"`
	Manifest  AgentManifest `json:"manifest"`
	Status    AgentStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
