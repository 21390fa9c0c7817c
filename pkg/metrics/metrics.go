package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metrics configuration
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Path        string `json:"path" yaml:"path"`
	Port        int    `json:"port" yaml:"port"`
	Namespace   string `json:"namespace" yaml:"namespace"`
	Subsystem   string `json:"subsystem" yaml:"subsystem"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Path:        "/metrics",
		Port:        9090,
		Namespace:   "chainreact",
		Subsystem:   "",
		ServiceName: "api",
	}
}

// Metrics holds all application metrics
type Metrics struct {
	config *Config

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitsTotal      *prometheus.CounterVec

	// Generation pipeline metrics
	GenerationsTotal        *prometheus.CounterVec
	GenerationDuration      *prometheus.HistogramVec
	GenerationStageDuration *prometheus.HistogramVec
	ValidationFailures      *prometheus.CounterVec
	RepairActionsTotal      *prometheus.CounterVec
	NodesExpandedTotal      *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensTotal     *prometheus.CounterVec
	LLMRetriesTotal    *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBQueryDuration    *prometheus.HistogramVec
	DBQueriesTotal     *prometheus.CounterVec

	// Queue metrics
	QueueDepth     *prometheus.GaugeVec
	QueueProcessed *prometheus.CounterVec
	QueueErrors    *prometheus.CounterVec

	// Artifact storage metrics
	ArtifactUploadsTotal   *prometheus.CounterVec
	ArtifactUploadDuration *prometheus.HistogramVec

	// System metrics
	SystemStartTime prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new metrics instance
func New(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   config,
		registry: registry,
	}

	m.initHTTPMetrics()
	m.initGenerationMetrics()
	m.initLLMMetrics()
	m.initDatabaseMetrics()
	m.initQueueMetrics()
	m.initStorageMetrics()
	m.initSystemMetrics()

	m.registerMetrics()

	return m
}

func (m *Metrics) initHTTPMetrics() {
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status", "service"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status", "service"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.RateLimitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "rate_limits_total",
			Help:      "Total number of rate limited requests",
		},
		[]string{"path"},
	)
}

func (m *Metrics) initGenerationMetrics() {
	m.GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "generations_total",
			Help:      "Total number of workflow generations",
		},
		[]string{"model", "status", "mode"},
	)

	m.GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "generation_duration_seconds",
			Help:      "End to end workflow generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model", "status"},
	)

	m.GenerationStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "generation_stage_duration_seconds",
			Help:      "Duration of individual generation pipeline stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	m.ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "validation_failures_total",
			Help:      "Total number of schema validation rule failures",
		},
		[]string{"rule"},
	)

	m.RepairActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "repair_actions_total",
			Help:      "Total number of repair actions applied to generated workflows",
		},
		[]string{"action"},
	)

	m.NodesExpandedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "nodes_expanded_total",
			Help:      "Total number of nodes materialized by chain expansion",
		},
		[]string{"node_type"},
	)
}

func (m *Metrics) initLLMMetrics() {
	m.LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"model", "status"},
	)

	m.LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	m.LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "llm_tokens_total",
			Help:      "Total number of tokens consumed by LLM requests",
		},
		[]string{"model", "kind"},
	)

	m.LLMRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "llm_retries_total",
			Help:      "Total number of retried LLM requests",
		},
		[]string{"model", "reason"},
	)
}

func (m *Metrics) initDatabaseMetrics() {
	m.DBConnectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
	)

	m.DBConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	m.DBConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use",
		},
	)

	m.DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "table", "status"},
	)

	m.DBQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)
}

func (m *Metrics) initQueueMetrics() {
	m.QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "queue_depth",
			Help:      "Number of messages lagging in queue",
		},
		[]string{"topic"},
	)

	m.QueueProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "queue_processed_total",
			Help:      "Total number of messages processed from queue",
		},
		[]string{"topic", "status"},
	)

	m.QueueErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "queue_errors_total",
			Help:      "Total number of queue processing errors",
		},
		[]string{"topic", "error_type"},
	)
}

func (m *Metrics) initStorageMetrics() {
	m.ArtifactUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "artifact_uploads_total",
			Help:      "Total number of debug artifact uploads",
		},
		[]string{"status"},
	)

	m.ArtifactUploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "artifact_upload_duration_seconds",
			Help:      "Debug artifact upload duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
}

func (m *Metrics) initSystemMetrics() {
	m.SystemStartTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: m.config.Subsystem,
			Name:      "system_start_time_seconds",
			Help:      "System start time in seconds since epoch",
		},
	)

	m.SystemStartTime.Set(float64(time.Now().Unix()))
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.HTTPRequestsTotal)
	m.registry.MustRegister(m.HTTPRequestDuration)
	m.registry.MustRegister(m.HTTPRequestsInFlight)
	m.registry.MustRegister(m.RateLimitsTotal)

	m.registry.MustRegister(m.GenerationsTotal)
	m.registry.MustRegister(m.GenerationDuration)
	m.registry.MustRegister(m.GenerationStageDuration)
	m.registry.MustRegister(m.ValidationFailures)
	m.registry.MustRegister(m.RepairActionsTotal)
	m.registry.MustRegister(m.NodesExpandedTotal)

	m.registry.MustRegister(m.LLMRequestsTotal)
	m.registry.MustRegister(m.LLMRequestDuration)
	m.registry.MustRegister(m.LLMTokensTotal)
	m.registry.MustRegister(m.LLMRetriesTotal)

	m.registry.MustRegister(m.DBConnectionsOpen)
	m.registry.MustRegister(m.DBConnectionsIdle)
	m.registry.MustRegister(m.DBConnectionsInUse)
	m.registry.MustRegister(m.DBQueryDuration)
	m.registry.MustRegister(m.DBQueriesTotal)

	m.registry.MustRegister(m.QueueDepth)
	m.registry.MustRegister(m.QueueProcessed)
	m.registry.MustRegister(m.QueueErrors)

	m.registry.MustRegister(m.ArtifactUploadsTotal)
	m.registry.MustRegister(m.ArtifactUploadDuration)

	m.registry.MustRegister(m.SystemStartTime)
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	service := m.config.ServiceName

	m.HTTPRequestsTotal.WithLabelValues(method, path, status, service).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status, service).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight increments in-flight HTTP requests
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements in-flight HTTP requests
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordRateLimit records a rate limited request
func (m *Metrics) RecordRateLimit(path string) {
	m.RateLimitsTotal.WithLabelValues(path).Inc()
}

// RecordGeneration records a completed generation attempt
func (m *Metrics) RecordGeneration(model, status, mode string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(model, status, mode).Inc()
	m.GenerationDuration.WithLabelValues(model, status).Observe(duration.Seconds())
}

// RecordGenerationStage records the duration of a single pipeline stage
func (m *Metrics) RecordGenerationStage(stage string, duration time.Duration) {
	m.GenerationStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordValidationFailure records a schema validation rule failure
func (m *Metrics) RecordValidationFailure(rule string) {
	m.ValidationFailures.WithLabelValues(rule).Inc()
}

// RecordRepairAction records a repair action applied to a generated workflow
func (m *Metrics) RecordRepairAction(action string) {
	m.RepairActionsTotal.WithLabelValues(action).Inc()
}

// RecordNodeExpanded records a node materialized during chain expansion
func (m *Metrics) RecordNodeExpanded(nodeType string) {
	m.NodesExpandedTotal.WithLabelValues(nodeType).Inc()
}

// RecordLLMRequest records an LLM completion request
func (m *Metrics) RecordLLMRequest(model, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage for an LLM request
func (m *Metrics) RecordLLMTokens(model string, promptTokens, completionTokens int) {
	m.LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordLLMRetry records a retried LLM request
func (m *Metrics) RecordLLMRetry(model, reason string) {
	m.LLMRetriesTotal.WithLabelValues(model, reason).Inc()
}

// RecordDBQuery records database query metrics
func (m *Metrics) RecordDBQuery(operation, table, status string, duration time.Duration) {
	m.DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table, status).Observe(duration.Seconds())
}

// UpdateDBStats updates database connection statistics
func (m *Metrics) UpdateDBStats(open, idle, inUse int) {
	m.DBConnectionsOpen.Set(float64(open))
	m.DBConnectionsIdle.Set(float64(idle))
	m.DBConnectionsInUse.Set(float64(inUse))
}

// RecordQueueMessage records queue message metrics
func (m *Metrics) RecordQueueMessage(topic, status string) {
	m.QueueProcessed.WithLabelValues(topic, status).Inc()
}

// RecordQueueError records a queue processing error
func (m *Metrics) RecordQueueError(topic, errorType string) {
	m.QueueErrors.WithLabelValues(topic, errorType).Inc()
}

// SetQueueDepth sets the consumer lag for a topic
func (m *Metrics) SetQueueDepth(topic string, depth float64) {
	m.QueueDepth.WithLabelValues(topic).Set(depth)
}

// RecordArtifactUpload records a debug artifact upload attempt
func (m *Metrics) RecordArtifactUpload(status string, duration time.Duration) {
	m.ArtifactUploadsTotal.WithLabelValues(status).Inc()
	m.ArtifactUploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Register allows registering custom metrics
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.registry.Register(collector)
}

// MustRegister registers custom metrics and panics on error
func (m *Metrics) MustRegister(collector prometheus.Collector) {
	m.registry.MustRegister(collector)
}

// Handler returns the HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", m.config.Port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// Global metrics instance
var globalMetrics *Metrics

// Initialize initializes global metrics
func Initialize(config *Config) {
	globalMetrics = New(config)
}

// GetGlobal returns the global metrics instance
func GetGlobal() *Metrics {
	if globalMetrics == nil {
		globalMetrics = New(DefaultConfig())
	}
	return globalMetrics
}
