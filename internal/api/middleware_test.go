package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chainreact/internal/auth"
	"chainreact/internal/config"
	"chainreact/internal/generation"
	"chainreact/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "crk_local_test_key"

func authedServer(t *testing.T) (*testEnv, *auth.Service) {
	t.Helper()

	authCfg := &config.AuthConfig{
		Enabled:                true,
		JWTSecret:              "0123456789abcdef0123456789abcdef",
		JWTExpiration:          15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "chainreact",
		Audience:               "chainreact-api",
	}
	tokens, err := auth.NewService(authCfg)
	require.NoError(t, err)

	hash, err := auth.HashAPIKey(testAPIKey)
	require.NoError(t, err)

	env := newTestServer(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.Auth = authCfg
		deps.Tokens = tokens
		deps.APIKeys = auth.NewAPIKeyVerifier([]string{hash})
	})
	return env, tokens
}

func authedRequest(t *testing.T, env *testEnv, method, target string, body interface{}, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}

	rec := httptest.NewRecorder()
	env.server.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	env, _ := authedServer(t)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes", nil)
	response := requireErrorEnvelope(t, rec, http.StatusUnauthorized, "authentication")
	assert.Equal(t, "missing credentials", response.Error.Message)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	env, _ := authedServer(t)

	for _, header := range []string{"Token abc", "Bearer", "Bearer "} {
		rec := authedRequest(t, env, http.MethodGet, "/api/v1/nodes", nil, func(r *http.Request) {
			r.Header.Set("Authorization", header)
		})
		requireErrorEnvelope(t, rec, http.StatusUnauthorized, "authentication")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	env, _ := authedServer(t)

	rec := authedRequest(t, env, http.MethodGet, "/api/v1/nodes", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	response := requireErrorEnvelope(t, rec, http.StatusUnauthorized, "authentication")
	assert.Equal(t, "invalid or expired token", response.Error.Message)
}

func TestAuthRejectsRefreshTokenAsBearer(t *testing.T) {
	env, tokens := authedServer(t)

	pair, err := tokens.GenerateTokenPair("user-1", "dev@example.com", "member", "team-1", nil)
	require.NoError(t, err)

	rec := authedRequest(t, env, http.MethodGet, "/api/v1/nodes", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	})
	requireErrorEnvelope(t, rec, http.StatusUnauthorized, "authentication")
}

func TestAuthBearerTokenCarriesIdentity(t *testing.T) {
	env, tokens := authedServer(t)

	pair, err := tokens.GenerateTokenPair("user-1", "dev@example.com", "member", "team-1", nil)
	require.NoError(t, err)

	rec := authedRequest(t, env, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:  "Ticket Triage",
		Graph: &generation.GeneratedWorkflow{Name: "Ticket Triage"},
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var created workflows.Workflow
	decodeData(t, rec, &created)
	assert.Equal(t, "user-1", created.OwnerID)
	assert.Equal(t, "team-1", created.TeamID)
}

func TestAuthAPIKeyMapsToServicePrincipal(t *testing.T) {
	env, _ := authedServer(t)

	rec := authedRequest(t, env, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:  "Ticket Triage",
		Graph: &generation.GeneratedWorkflow{Name: "Ticket Triage"},
	}, func(r *http.Request) {
		r.Header.Set("X-API-Key", testAPIKey)
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var created workflows.Workflow
	decodeData(t, rec, &created)
	assert.Equal(t, auth.ServicePrincipal, created.OwnerID)
	assert.Empty(t, created.TeamID)
}

func TestAuthRejectsUnknownAPIKey(t *testing.T) {
	env, _ := authedServer(t)

	rec := authedRequest(t, env, http.MethodGet, "/api/v1/nodes", nil, func(r *http.Request) {
		r.Header.Set("X-API-Key", "crk_wrong")
	})
	response := requireErrorEnvelope(t, rec, http.StatusUnauthorized, "authentication")
	assert.Equal(t, "invalid API key", response.Error.Message)
}

func TestAuthSkipsPublicRoutes(t *testing.T) {
	env, _ := authedServer(t)

	for _, path := range []string{"/health", "/health/live", "/version", "/metrics"} {
		rec := doRequest(t, env.server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.API.EnableRateLimit = true
		cfg.API.RateLimitRequests = 2
		cfg.API.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes", nil)
	response := requireErrorEnvelope(t, rec, http.StatusTooManyRequests, "rate_limit")
	assert.Equal(t, "rate_limit", response.Error.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = doRequest(t, env.server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/health", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generate", nil)
	req.Header.Set("Origin", "https://app.chainreact.dev")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	env.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRequestSizeLimit(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.API.MaxRequestSize = 64
	})

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Prompt: strings.Repeat("x", 200),
	})
	response := requireErrorEnvelope(t, rec, http.StatusBadRequest, "validation")
	assert.Equal(t, "request body is too large", response.Error.Message)
}

func TestResponsesCarryRequestID(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	headerID := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, headerID)

	response := decodeEnvelope(t, rec)
	assert.Equal(t, headerID, response.RequestID)
}

type panicGenerator struct{}

func (panicGenerator) Generate(ctx context.Context, prompt string, opts generation.Options) (*generation.Result, error) {
	panic("generator exploded")
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config, deps *Dependencies) {
		deps.Generator = panicGenerator{}
	})

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Prompt: "boom",
	})
	response := requireErrorEnvelope(t, rec, http.StatusInternalServerError, "internal")
	assert.Equal(t, "internal server error", response.Error.Message)
}
