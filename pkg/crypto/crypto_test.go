package crypto_test

import (
	"strings"
	"testing"

	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": 3}
	b := map[string]any{"c": 3, "a": 2, "b": 1}

	eq, err := crypto.CanonicalEqual(a, b)
	require.NoError(t, err)
	assert.True(t, eq, "canonicalization must be independent of map iteration order")
}

func TestCanonicalJSON_NoInsignificantWhitespace(t *testing.T) {
	out, err := crypto.CanonicalJSON(map[string]any{"x": 1})
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(out), "\n"))
	assert.False(t, strings.Contains(string(out), "  "))
}

func TestHashCanonical_Deterministic(t *testing.T) {
	v := struct {
		Name string
		Age  int
	}{"a", 1}

	h1, err := crypto.HashCanonical(v)
	require.NoError(t, err)
	h2, err := crypto.HashCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestSigner_RejectsEmptyKey(t *testing.T) {
	_, err := crypto.NewSigner(nil)
	assert.Error(t, err, "missing signing key material must fail at construction")
}

func TestSigner_SignVerifyRoundTrip(t *testing.T) {
	s, err := crypto.NewSigner([]byte("test-key"))
	require.NoError(t, err)

	sig, err := s.SignCanonical(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	ok, err := s.VerifyCanonical(map[string]any{"a": 1}, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSigner_TamperedBodyFailsVerification(t *testing.T) {
	s, err := crypto.NewSigner([]byte("test-key"))
	require.NoError(t, err)

	sig, err := s.SignCanonical(map[string]any{"a": 1})
	require.NoError(t, err)

	ok, err := s.VerifyCanonical(map[string]any{"a": 2}, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConstantTimeEqual_LengthMismatch(t *testing.T) {
	assert.False(t, crypto.ConstantTimeEqual("abc", "abcd"))
	assert.True(t, crypto.ConstantTimeEqual("abcd", "abcd"))
	assert.False(t, crypto.ConstantTimeEqual("abcd", "abce"))
}

func TestUUIDv4_Shape(t *testing.T) {
	id := crypto.UUIDv4()
	parts := strings.Split(id, "-")
	require.Len(t, parts, 5)
	assert.Len(t, parts[0], 8)
	assert.Len(t, parts[1], 4)
	assert.Len(t, parts[2], 4)
	assert.Len(t, parts[3], 4)
	assert.Len(t, parts[4], 12)
}
