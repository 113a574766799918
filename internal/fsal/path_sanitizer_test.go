package fsal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeRejectsTraversal(t *testing.T) {
	s := NewPathSanitizer()
	_, err := s.Canonicalize("/workspace/../etc/passwd", "/workspace")
	require.Error(t, err)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	require.True(t, pe.Traversal)
}

func TestCanonicalizeRejectsNulByte(t *testing.T) {
	s := NewPathSanitizer()
	_, err := s.Canonicalize("/workspace/file\x00.txt", "")
	require.Error(t, err)
}

func TestCanonicalizeNormalizesDotAndSlashes(t *testing.T) {
	s := NewPathSanitizer()
	got, err := s.Canonicalize("/workspace/./a//b/", "/workspace")
	require.NoError(t, err)
	require.Equal(t, "/workspace/a/b", got)
}

func TestCanonicalizeEnforcesBoundary(t *testing.T) {
	s := NewPathSanitizer()
	_, err := s.Canonicalize("/etc/passwd", "/workspace")
	require.Error(t, err)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	require.False(t, pe.Traversal)
}

func TestCanonicalizeRejectsOverlongPath(t *testing.T) {
	s := NewPathSanitizer()
	_, err := s.Canonicalize("/"+strings.Repeat("a", MaxPathLen+1), "")
	require.Error(t, err)
}
