package auth

import (
	"crypto/rand"
	"encoding/hex"

	"chainreact/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// ServicePrincipal is the identity assigned to API-key callers. Workflows
// they create are owned by this principal and visible to every valid key.
const ServicePrincipal = "service"

// APIKeyVerifier checks presented keys against the configured bcrypt hashes.
type APIKeyVerifier struct {
	hashes []string
}

// NewAPIKeyVerifier builds a verifier over the configured hash list. An
// empty list is valid and rejects every key.
func NewAPIKeyVerifier(hashes []string) *APIKeyVerifier {
	return &APIKeyVerifier{hashes: hashes}
}

// Enabled reports whether any API key is configured.
func (v *APIKeyVerifier) Enabled() bool {
	return len(v.hashes) > 0
}

// Verify reports whether the presented key matches a configured hash.
func (v *APIKeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	for _, hash := range v.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}

// GenerateAPIKey produces a random key and its bcrypt hash. The key is shown
// once to the operator; only the hash goes into configuration.
func GenerateAPIKey() (key, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to generate key material")
	}

	key = "crk_" + hex.EncodeToString(buf)
	hash, err = HashAPIKey(key)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// HashAPIKey returns the bcrypt hash for a key.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", errors.ValidationError(errors.CodeMissingField, "api key is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to hash api key")
	}
	return string(hash), nil
}
