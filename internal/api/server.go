package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chainreact/internal/auth"
	"chainreact/internal/config"
	"chainreact/internal/generation"
	"chainreact/internal/messaging"
	"chainreact/internal/nodes"
	"chainreact/internal/workflows"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Version is stamped at build time.
var Version = "dev"

// Generator runs the prompt-to-workflow pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts generation.Options) (*generation.Result, error)
}

// WorkflowService is the stored-workflow surface the handlers use.
type WorkflowService interface {
	Create(ctx context.Context, actor workflows.Actor, workflow *workflows.Workflow) (*workflows.Workflow, error)
	GetByID(ctx context.Context, actor workflows.Actor, id string) (*workflows.Workflow, error)
	Update(ctx context.Context, actor workflows.Actor, workflow *workflows.Workflow) (*workflows.Workflow, error)
	UpdateStatus(ctx context.Context, actor workflows.Actor, id string, next workflows.Status) (*workflows.Workflow, error)
	Delete(ctx context.Context, actor workflows.Actor, id string) error
	List(ctx context.Context, actor workflows.Actor, filter *workflows.WorkflowListFilter) ([]*workflows.Workflow, int64, error)
	SaveGeneration(ctx context.Context, record *workflows.GenerationRecord) error
	GetGeneration(ctx context.Context, actor workflows.Actor, id string) (*workflows.GenerationRecord, error)
}

// JobPublisher enqueues generation jobs and emits workflow events.
type JobPublisher interface {
	PublishJob(ctx context.Context, job *messaging.GenerationJob) error
	PublishEvent(ctx context.Context, event *messaging.WorkflowEvent) error
}

// DebugArchiver stores debug bundles for finished generations.
type DebugArchiver interface {
	Enabled() bool
	Archive(ctx context.Context, prompt string, result *generation.Result) string
}

// HealthChecker reports dependency health for the readiness endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies carries everything the server needs. Workflows, Publisher,
// Archiver, Tokens, APIKeys, Database, and Broker may be nil; the affected
// routes degrade explicitly instead of panicking.
type Dependencies struct {
	Generator Generator
	Registry  *nodes.Registry
	Workflows WorkflowService
	Publisher JobPublisher
	Archiver  DebugArchiver
	Tokens    *auth.Service
	APIKeys   *auth.APIKeyVerifier
	Database  HealthChecker
	Broker    HealthChecker
}

// Server is the HTTP front end.
type Server struct {
	config  *config.Config
	logger  logger.Logger
	metrics *metrics.Metrics
	deps    Dependencies
	limiter *RateLimiter

	router     *chi.Mux
	httpServer *http.Server
}

// NewServer wires the router and middleware chain.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "config is required")
	}
	if deps.Generator == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "generation service is required")
	}
	if deps.Registry == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "node registry is required")
	}

	s := &Server{
		config:  cfg,
		logger:  logger.New("api"),
		metrics: metrics.GetGlobal(),
		deps:    deps,
	}

	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	return s, nil
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if s.config.API.EnableRequestLogging {
		r.Use(requestLogger(s.logger))
	}
	r.Use(recoverer(s.logger))
	r.Use(chimiddleware.Timeout(s.config.API.WriteTimeout))
	r.Use(chimiddleware.Compress(5))

	if s.config.API.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.API.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(securityHeaders)

	if s.config.API.EnableRateLimit {
		s.limiter = NewRateLimiter(s.config.API.RateLimitRequests, s.config.API.RateLimitWindow, s.metrics)
		r.Use(s.limiter.Middleware())
	}

	r.Use(requestSizeLimit(s.config.API.MaxRequestSize))

	if s.config.Metrics.Enabled {
		r.Use(metricsMiddleware(s.metrics))
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/health/live", s.handleLive)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.Auth.Enabled {
			r.Use(authMiddleware(s.deps.Tokens, s.deps.APIKeys))
		} else {
			r.Use(passthroughAuth)
		}

		r.Post("/generate", s.handleGenerate)
		r.Post("/generate/async", s.handleGenerateAsync)

		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", s.handleListWorkflows)
			r.Post("/", s.handleCreateWorkflow)
			r.Get("/{id}", s.handleGetWorkflow)
			r.Put("/{id}", s.handleUpdateWorkflow)
			r.Delete("/{id}", s.handleDeleteWorkflow)
		})

		r.Get("/nodes", s.handleListNodes)
		r.Get("/nodes/{type}", s.handleGetNode)

		r.Get("/generations/{id}", s.handleGetGeneration)
	})

	s.router = r
}

// Router exposes the handler tree.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"environment", s.config.Environment,
		"version", Version,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "http server failed")
	}
	return nil
}

// Shutdown drains in-flight requests and stops background helpers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "graceful shutdown failed")
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"service":     "chainreact-api",
		"version":     Version,
		"environment": s.config.Environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	check := func(name string, dep HealthChecker) {
		if dep == nil {
			checks[name] = "disabled"
			return
		}
		if err := dep.Health(r.Context()); err != nil {
			checks[name] = "error"
			healthy = false
			s.logger.Warn("Readiness check failed", "dependency", name, "error", err)
			return
		}
		checks[name] = "ok"
	}

	check("database", s.deps.Database)
	check("kafka", s.deps.Broker)

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeSuccess(w, r, status, map[string]interface{}{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"service": "chainreact-api",
		"version": Version,
	})
}
