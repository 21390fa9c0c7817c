package api

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"chainreact/internal/auth"
	"chainreact/internal/workflows"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type contextKey string

const actorContextKey contextKey = "actor"

func withActor(ctx context.Context, actor workflows.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext extracts the authenticated principal set by the auth
// middleware.
func ActorFromContext(ctx context.Context) (workflows.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(workflows.Actor)
	return actor, ok
}

// requestLogger logs one line per request with the request id chi assigned.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.InfoContext(r.Context(), "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// recoverer converts panics into 500 responses. http.ErrAbortHandler keeps
// its net/http semantics.
func recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					log.Error("Panic recovered",
						"panic", rvr,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeError(w, r, errors.New(errors.ErrorTypeInternal, errors.CodeInternal, "internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

func requestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request counts and latencies against the chi
// route pattern, so path parameters do not explode label cardinality.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.IncHTTPRequestsInFlight()
			defer m.DecHTTPRequestsInFlight()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			m.RecordHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client, keyed by the address the
// RealIP middleware resolved. Idle clients are evicted by a background
// sweep; Stop ends it.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	limit    rate.Limit
	burst    int
	requests int
	skip     map[string]struct{}

	logger  logger.Logger
	metrics *metrics.Metrics
	stop    chan struct{}
}

// NewRateLimiter allows requests per window for each client address.
func NewRateLimiter(requests int, window time.Duration, m *metrics.Metrics) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		requests: requests,
		skip: map[string]struct{}{
			"/health":       {},
			"/health/ready": {},
			"/health/live":  {},
			"/version":      {},
			"/metrics":      {},
		},
		logger:  logger.New("rate-limiter"),
		metrics: m,
		stop:    make(chan struct{}),
	}

	go rl.sweep()
	return rl
}

// Middleware returns the rate limiting handler wrapper.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := rl.skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			if !rl.allow(key) {
				rl.logger.Warn("Rate limit exceeded",
					"client", key,
					"path", r.URL.Path,
					"method", r.Method,
				)
				rl.metrics.RecordRateLimit(r.URL.Path)

				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
				w.Header().Set("Retry-After", "1")
				writeError(w, r, errors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = client
	}
	client.lastSeen = time.Now()
	return client.limiter.Allow()
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			rl.mu.Lock()
			for key, client := range rl.clients {
				if client.lastSeen.Before(cutoff) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the eviction sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// authMiddleware authenticates API requests. X-API-Key wins when present
// and maps to the shared service principal; otherwise a Bearer access token
// is required and carries the user and team identity.
func authMiddleware(tokens *auth.Service, apiKeys *auth.APIKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" {
				if apiKeys == nil || !apiKeys.Verify(key) {
					writeError(w, r, errors.NewUnauthorizedError("invalid API key"))
					return
				}
				ctx := withActor(r.Context(), workflows.Actor{UserID: auth.ServicePrincipal})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, r, errors.NewUnauthorizedError("missing credentials"))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeError(w, r, errors.NewUnauthorizedError("invalid authorization header"))
				return
			}

			if tokens == nil {
				writeError(w, r, errors.NewUnauthorizedError("token authentication is not configured"))
				return
			}

			claims, err := tokens.ValidateAccessToken(parts[1])
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := withActor(r.Context(), workflows.Actor{
				UserID: claims.UserID,
				TeamID: claims.TeamID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// passthroughAuth runs when authentication is disabled. Every request acts
// as the shared service principal.
func passthroughAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withActor(r.Context(), workflows.Actor{UserID: auth.ServicePrincipal})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
