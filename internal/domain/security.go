package domain

import (
	"strings"
	"time"
)

// RateLimit is declared on a Capability but enforced only
// advisory-best-effort in this core. A full sliding-window counter is
// a separable concern.
type RateLimit struct {
	CallsPerSecond float64 `json:"calls_per_second"`
}

// Capability is one entry in a SecurityContext granting a tool pattern
// with optional path/command/domain constraints.
type Capability struct {
	ToolPattern     string     `json:"tool_pattern"`
	PathAllowlist   []string   `json:"path_allowlist,omitempty"`
	CommandAllowlist []string  `json:"command_allowlist,omitempty"`
	DomainAllowlist []string   `json:"domain_allowlist,omitempty"`
	RateLimit       *RateLimit `json:"rate_limit,omitempty"`
	MaxResponseSize int64      `json:"max_response_size,omitempty"`
}

// MatchesTool reports whether tool matches this capability's
// tool_pattern: "*", an exact match, or a "prefix.*" pattern.
func (c Capability) MatchesTool(tool string) bool {
	if c.ToolPattern == "*" {
		return true
	}
	if c.ToolPattern == tool {
		return true
	}
	if strings.HasSuffix(c.ToolPattern, ".*") {
		prefix := strings.TrimSuffix(c.ToolPattern, "*")
		return strings.HasPrefix(tool, prefix)
	}
	return false
}

// EvalFailure tags why Capability.Allows rejected a call.
type EvalFailure string

const (
	FailNone                EvalFailure = ""
	FailToolNotAllowed      EvalFailure = "tool_not_allowed"
	FailToolExplicitlyDenied EvalFailure = "tool_explicitly_denied"
	FailPathOutsideBoundary EvalFailure = "path_outside_boundary"
	FailDomainNotAllowed    EvalFailure = "domain_not_allowed"
	FailMissingRequiredArg  EvalFailure = "missing_required_argument"
)

// Allows evaluates this capability's constraints for (tool, args),
// assuming MatchesTool(tool) already held. Constraints are evaluated
// only for fs./filesystem., cmd.run, and web./web-search. tool
// prefixes; any other tool passes once matched.
func (c Capability) Allows(tool string, args map[string]interface{}) EvalFailure {
	switch {
	case strings.HasPrefix(tool, "fs.") || strings.HasPrefix(tool, "filesystem."):
		if len(c.PathAllowlist) == 0 {
			return FailNone
		}
		path, ok := args["path"].(string)
		if !ok {
			// A set path_allowlist is unconditional: a call missing the
			// path argument it would have checked fails the boundary
			// check rather than silently passing.
			return FailPathOutsideBoundary
		}
		for _, allowed := range c.PathAllowlist {
			if strings.HasPrefix(path, allowed) {
				return FailNone
			}
		}
		return FailPathOutsideBoundary

	case tool == "cmd.run":
		if len(c.CommandAllowlist) == 0 {
			return FailNone
		}
		cmd, ok := args["command"].(string)
		if !ok {
			return FailToolNotAllowed
		}
		base := baseExecutable(cmd)
		for _, allowed := range c.CommandAllowlist {
			if allowed == base {
				return FailNone
			}
		}
		return FailToolNotAllowed

	case strings.HasPrefix(tool, "web.") || strings.HasPrefix(tool, "web-search."):
		if len(c.DomainAllowlist) == 0 {
			return FailNone
		}
		rawURL, ok := args["url"].(string)
		if !ok {
			return FailDomainNotAllowed
		}
		host := extractHost(rawURL)
		for _, allowed := range c.DomainAllowlist {
			if strings.HasSuffix(host, allowed) {
				return FailNone
			}
		}
		return FailDomainNotAllowed

	default:
		return FailNone
	}
}

func baseExecutable(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	parts := strings.Split(fields[0], "/")
	return parts[len(parts)-1]
}

func extractHost(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}

// SecurityContextMetadata tracks versioning independent of the owning
// agent/session lifecycle.
type SecurityContextMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// SecurityContext is the named capability policy attached to a session.
type SecurityContext struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Capabilities []Capability            `json:"capabilities"`
	DenyList     map[string]struct{}     `json:"-"`
	DenyListRaw  []string                `json:"deny_list"`
	Metadata     SecurityContextMetadata `json:"metadata"`
}

// NewSecurityContext builds a context with its deny-list index
// populated from denyList.
func NewSecurityContext(name, description string, capabilities []Capability, denyList []string) SecurityContext {
	idx := make(map[string]struct{}, len(denyList))
	for _, d := range denyList {
		idx[d] = struct{}{}
	}
	return SecurityContext{
		Name:         name,
		Description:  description,
		Capabilities: capabilities,
		DenyList:     idx,
		DenyListRaw:  denyList,
		Metadata:     SecurityContextMetadata{CreatedAt: time.Now(), UpdatedAt: time.Now(), Version: 1},
	}
}

// Evaluate applies deny_list -> first-accepting-capability ->
// default-deny, in that order.
func (sc SecurityContext) Evaluate(tool string, args map[string]interface{}) EvalFailure {
	if _, denied := sc.DenyList[tool]; denied {
		return FailToolExplicitlyDenied
	}
	for _, cap := range sc.Capabilities {
		if cap.MatchesTool(tool) {
			return cap.Allows(tool, args)
		}
	}
	return FailToolNotAllowed
}
