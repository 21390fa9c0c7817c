package auth

import (
	"testing"
	"time"

	"chainreact/internal/config"
	"chainreact/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Enabled:                true,
		JWTSecret:              "0123456789abcdef0123456789abcdef",
		JWTExpiration:          15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "chainreact",
		Audience:               "chainreact-api",
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testAuthConfig())
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)

	cfg := testAuthConfig()
	cfg.JWTSecret = ""
	_, err = NewService(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingField, errors.GetAppError(err).Code)
}

func TestGenerateTokenPairRequiresUserID(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GenerateTokenPair("", "a@b.test", "member", "team-1", nil)
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "team-1", []string{"workflows:write"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.test", claims.Email)
	assert.Equal(t, "member", claims.Role)
	assert.Equal(t, "team-1", claims.TeamID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.True(t, claims.HasScope("workflows:write"))
	assert.False(t, claims.HasScope("admin"))

	refreshClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, refreshClaims.TokenType)
}

func TestTokenTypeEnforcement(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeAuthentication, errors.GetAppError(err).Type)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	require.Error(t, err)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "", nil)
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "ffffffffffffffffffffffffffffffff"
	other, err := NewService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeAuthentication, errors.GetAppError(err).Type)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "", nil)
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.Issuer = "someone-else"
	other, err := NewService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(pair.AccessToken)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t).WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	})

	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeAuthentication, errors.GetAppError(err).Type)
}

func TestExpiryTimestamps(t *testing.T) {
	issued := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t).WithClock(func() time.Time { return issued })

	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "member", "", nil)
	require.NoError(t, err)
	assert.True(t, pair.AccessTokenExpiresAt.Equal(issued.Add(15*time.Minute)))
	assert.True(t, pair.RefreshTokenExpiresAt.Equal(issued.Add(7*24*time.Hour)))
}

func TestRefreshIssuesNewPair(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair("user-1", "a@b.test", "admin", "team-1", []string{"workflows:write"})
	require.NoError(t, err)

	renewed, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(renewed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "team-1", claims.TeamID)

	_, err = svc.Refresh(pair.AccessToken)
	require.Error(t, err)
}
