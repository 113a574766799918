package fsal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnforceReadExactMatch(t *testing.T) {
	p := Policy{Read: []string{"/workspace/data.json"}}
	require.NoError(t, EnforceRead(p, "/workspace/data.json"))
	require.Error(t, EnforceRead(p, "/workspace/other.json"))
}

func TestEnforceSingleLevelGlob(t *testing.T) {
	p := Policy{Read: []string{"/p/*"}}
	require.NoError(t, EnforceRead(p, "/p/foo"))
	require.Error(t, EnforceRead(p, "/p/d/x"))
	require.Error(t, EnforceRead(p, "/pfoo")) // must not match as a prefix
}

func TestEnforceRecursiveGlob(t *testing.T) {
	p := Policy{Write: []string{"/p/**"}}
	require.NoError(t, EnforceWrite(p, "/p/d/x/y.txt"))
	require.NoError(t, EnforceWrite(p, "/p"))
	require.Error(t, EnforceWrite(p, "/other"))
}
