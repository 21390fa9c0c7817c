package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyVerifier(t *testing.T) {
	hash, err := HashAPIKey("crk_test_key")
	require.NoError(t, err)

	verifier := NewAPIKeyVerifier([]string{hash})
	assert.True(t, verifier.Enabled())
	assert.True(t, verifier.Verify("crk_test_key"))
	assert.False(t, verifier.Verify("crk_wrong_key"))
	assert.False(t, verifier.Verify(""))
}

func TestAPIKeyVerifierWithoutHashes(t *testing.T) {
	verifier := NewAPIKeyVerifier(nil)
	assert.False(t, verifier.Enabled())
	assert.False(t, verifier.Verify("crk_test_key"))
}

func TestHashAPIKeyRequiresKey(t *testing.T) {
	_, err := HashAPIKey("")
	require.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "crk_"))
	assert.Len(t, key, len("crk_")+64)

	verifier := NewAPIKeyVerifier([]string{hash})
	assert.True(t, verifier.Verify(key))

	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
