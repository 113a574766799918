package fsal

import "strings"

// PolicyViolation tags why an allowlist check failed.
type PolicyViolation struct {
	Path  string
	Write bool
}

func (e *PolicyViolation) Error() string {
	verb := "read"
	if e.Write {
		verb = "write"
	}
	return "policy violation: " + verb + " not permitted for " + e.Path
}

// matchEntry reports whether path satisfies one allowlist entry:
// an exact match, a "/p/*" single-level glob (matches "/p/<name>" but
// not "/p/d/x"), or a "/p/**" recursive glob.
func matchEntry(entry, path string) bool {
	switch {
	case strings.HasSuffix(entry, "/**"):
		prefix := strings.TrimSuffix(entry, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")

	case strings.HasSuffix(entry, "/*"):
		prefix := strings.TrimSuffix(entry, "*") // keep trailing "/"
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		rest := path[len(prefix):]
		// A single-level glob must not match a nested path: the
		// remainder after the prefix may contain no further "/".
		return rest != "" && !strings.Contains(rest, "/")

	default:
		return entry == path
	}
}

func allowedBy(allowlist []string, path string) bool {
	for _, entry := range allowlist {
		if matchEntry(entry, path) {
			return true
		}
	}
	return false
}

// EnforceRead checks path against the read allowlist.
func EnforceRead(policy policyLike, path string) error {
	if !allowedBy(policy.readList(), path) {
		return &PolicyViolation{Path: path, Write: false}
	}
	return nil
}

// EnforceWrite checks path against the write allowlist. Covers
// create/delete/mkdir/rmdir and both sides of a rename; callers pass
// each path needing a write check individually.
func EnforceWrite(policy policyLike, path string) error {
	if !allowedBy(policy.writeList(), path) {
		return &PolicyViolation{Path: path, Write: true}
	}
	return nil
}

// policyLike lets EnforceRead/EnforceWrite work directly against
// domain.FilesystemPolicy without importing the domain package from
// every call site that only has the two slices handy.
type policyLike interface {
	readList() []string
	writeList() []string
}

type Policy struct {
	Read  []string
	Write []string
}

func (p Policy) readList() []string  { return p.Read }
func (p Policy) writeList() []string { return p.Write }
