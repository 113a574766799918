// Package ids generates the monotonically sortable identifiers used
// throughout the orchestrator for executions, iterations, sessions,
// workflows, and patterns.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New generates a new ULID string. Safe for concurrent use.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewWithPrefix generates a new ULID string prefixed with a short
// domain tag, e.g. "exec_01HXAMPLE..." so that IDs are greppable by kind
// without a separate lookup.
func NewWithPrefix(prefix string) string {
	return prefix + "_" + New()
}
