package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chainreact/internal/auth"
	"chainreact/internal/config"
	"chainreact/internal/generation"
	"chainreact/internal/llm"
	"chainreact/internal/messaging"
	"chainreact/internal/nodes"
	"chainreact/internal/storage/postgres"
	"chainreact/internal/storage/s3"
	"chainreact/internal/workflows"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"
	"chainreact/pkg/tracing"

	"github.com/robfig/cron/v3"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Worker consumes generation jobs from Kafka, runs them through the
// generation pipeline, and persists the resulting workflows.
type Worker struct {
	config    *config.Config
	logger    logger.Logger
	metrics   *metrics.Metrics
	db        *postgres.DB
	consumer  *messaging.Consumer
	producer  *messaging.Producer
	generator *generation.Service
	workflows *workflows.Service
	archiver  *s3.Archiver
	cron      *cron.Cron

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	log := logger.New("worker")
	log.Info("Starting chainreact worker",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	if !cfg.Worker.Enabled {
		log.Warn("Worker is disabled, exiting")
		return
	}
	if !cfg.Kafka.Enabled {
		log.Fatal("Kafka must be enabled for the worker")
	}

	metrics.Initialize(&metrics.Config{
		Enabled:     cfg.Metrics.Enabled,
		Path:        cfg.Metrics.Path,
		Port:        cfg.Metrics.Port,
		Namespace:   cfg.Metrics.Namespace,
		Subsystem:   cfg.Metrics.Subsystem,
		ServiceName: "worker",
	})

	if cfg.Tracing.Enabled {
		if err := tracing.Initialize(&tracing.Config{
			Enabled:      true,
			ServiceName:  "chainreact-worker",
			Environment:  cfg.Environment,
			Version:      version,
			ExporterType: cfg.Tracing.ExporterType,
			OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
			SampleRatio:  cfg.Tracing.SampleRatio,
		}); err != nil {
			log.Fatal("Failed to initialize tracing", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shut down tracing", "error", err)
			}
		}()
	}

	db, err := postgres.New(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	registry := nodes.NewRegistry(log)
	if err := registry.Register(nodes.Catalog()...); err != nil {
		log.Fatal("Failed to register node catalog", "error", err)
	}

	client := llm.NewOpenAIClient(cfg.AI, log, metrics.GetGlobal())
	generator := generation.NewService(registry, client, log, metrics.GetGlobal())
	workflowSvc := workflows.NewService(workflows.NewPostgresRepository(db))

	archiver, err := s3.NewArchiver(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize artifact storage", "error", err)
	}

	worker, err := NewWorker(cfg, log, db, workflowSvc, generator, archiver)
	if err != nil {
		log.Fatal("Failed to create worker", "error", err)
	}

	if cfg.Worker.EnableHealthCheck {
		go worker.startHealthServer(cfg.Worker.HealthCheckPort)
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.GetGlobal().StartServer(worker.ctx); err != nil {
				log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	if err := worker.Start(); err != nil {
		log.Fatal("Failed to start worker", "error", err)
	}

	log.Info("Worker started",
		"concurrency", cfg.Worker.Concurrency,
		"jobs_topic", cfg.Kafka.JobsTopic,
		"group_id", cfg.Kafka.GroupID,
		"retention_schedule", cfg.Worker.RetentionSchedule,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Error("Error during worker shutdown", "error", err)
	}

	log.Info("Worker shutdown completed")
}

// NewWorker wires the consumer, producer, and retention scheduler.
func NewWorker(cfg *config.Config, log logger.Logger, db *postgres.DB, workflowSvc *workflows.Service, generator *generation.Service, archiver *s3.Archiver) (*Worker, error) {
	consumer, err := messaging.NewConsumer(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	producer, err := messaging.NewProducer(cfg.Kafka)
	if err != nil {
		consumer.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		config:    cfg,
		logger:    log,
		metrics:   metrics.GetGlobal(),
		db:        db,
		consumer:  consumer,
		producer:  producer,
		generator: generator,
		workflows: workflowSvc,
		archiver:  archiver,
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches the consume loops and the retention schedule.
func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(w.config.Worker.RetentionSchedule, w.purgeExpiredGenerations); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", w.config.Worker.RetentionSchedule, err)
	}
	w.cron.Start()

	for i := 0; i < w.config.Worker.Concurrency; i++ {
		w.wg.Add(1)
		go w.consumeLoop(i)
	}

	return nil
}

// Stop drains the consume loops and closes the Kafka connections. It
// returns an error when the loops do not finish before ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping worker")

	cronCtx := w.cron.Stop()
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		<-cronCtx.Done()
		close(done)
	}()

	var drainErr error
	select {
	case <-done:
	case <-ctx.Done():
		drainErr = fmt.Errorf("worker drain timed out: %w", ctx.Err())
	}

	if err := w.consumer.Close(); err != nil {
		w.logger.Error("Error closing Kafka consumer", "error", err)
	}
	if err := w.producer.Close(); err != nil {
		w.logger.Error("Error closing Kafka producer", "error", err)
	}

	if drainErr != nil {
		return drainErr
	}
	w.logger.Info("Worker stopped")
	return nil
}

// consumeLoop runs one fetch-handle-commit loop until the worker stops.
// The loops share one consumer group reader, so partitions are balanced
// across them by the kafka client.
func (w *Worker) consumeLoop(id int) {
	defer w.wg.Done()
	w.logger.Info("Starting consume loop", "loop_id", id)

	if err := w.consumer.Consume(w.ctx, w.handleJob); err != nil && w.ctx.Err() == nil {
		w.logger.Error("Consume loop failed", "loop_id", id, "error", err)
		return
	}
	w.logger.Info("Consume loop stopped", "loop_id", id)
}

// handleJob runs one generation job end to end. Debug capture is turned
// on whenever the archiver can store the bundle, since async callers have
// no other way to reach the prompts and raw model output afterwards.
func (w *Worker) handleJob(ctx context.Context, job *messaging.GenerationJob) error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, w.config.Worker.JobTimeout)
	defer cancel()

	actor := workflows.Actor{UserID: job.UserID, TeamID: job.TeamID}
	if actor.UserID == "" {
		actor.UserID = auth.ServicePrincipal
	}

	w.logger.InfoContext(ctx, "Processing generation job",
		"job_id", job.ID,
		"model", job.Model,
		"strict", job.Strict,
	)

	result, err := w.generator.Generate(ctx, job.Prompt, generation.Options{
		Model:  job.Model,
		Strict: job.Strict,
		Debug:  w.archiver.Enabled(),
	})
	if err != nil {
		w.recordFailure(job, actor, err)
		return err
	}

	stored, err := w.workflows.Create(ctx, actor, workflows.NewFromGeneration(result))
	if err != nil {
		w.recordFailure(job, actor, err)
		return err
	}

	record := workflows.RecordFromResult(result, job.Prompt, actor)
	record.ID = job.ID
	record.WorkflowID = &stored.ID
	record.DebugKey = w.archiver.Archive(ctx, job.Prompt, result)
	if err := w.workflows.SaveGeneration(ctx, record); err != nil {
		w.logger.ErrorContext(ctx, "Failed to save generation record",
			"error", err,
			"job_id", job.ID,
			"workflow_id", stored.ID,
		)
	}

	event := &messaging.WorkflowEvent{
		Type:         messaging.EventWorkflowGenerated,
		GenerationID: job.ID,
		WorkflowID:   stored.ID,
		TeamID:       actor.TeamID,
		UserID:       actor.UserID,
		Model:        result.Model,
		Mode:         result.Mode,
		ErrorCount:   len(result.Errors),
	}
	if err := w.producer.PublishEvent(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish generation event",
			"error", err,
			"job_id", job.ID,
			"workflow_id", stored.ID,
		)
	}

	w.logger.InfoContext(ctx, "Generation job completed",
		"job_id", job.ID,
		"workflow_id", stored.ID,
		"validation_errors", len(result.Errors),
		"duration", time.Since(started),
	)
	return nil
}

// recordFailure writes a failed audit record and emits the failure event.
// It runs on a detached context so the writes survive a job timeout.
func (w *Worker) recordFailure(job *messaging.GenerationJob, actor workflows.Actor, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record := workflows.FailedRecord(job.ID, job.Prompt, job.Model, actor)
	if err := w.workflows.SaveGeneration(ctx, record); err != nil {
		w.logger.Error("Failed to save failure record",
			"error", err,
			"job_id", job.ID,
		)
	}

	event := &messaging.WorkflowEvent{
		Type:         messaging.EventGenerationFailed,
		GenerationID: job.ID,
		TeamID:       actor.TeamID,
		UserID:       actor.UserID,
		Model:        job.Model,
		Reason:       cause.Error(),
	}
	if err := w.producer.PublishEvent(ctx, event); err != nil {
		w.logger.Error("Failed to publish failure event",
			"error", err,
			"job_id", job.ID,
		)
	}
}

// purgeExpiredGenerations runs on the retention schedule and deletes
// generation records older than the retention window.
func (w *Worker) purgeExpiredGenerations() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	purged, err := w.workflows.PurgeGenerations(ctx, w.config.Worker.RetentionPeriod)
	if err != nil {
		w.logger.Error("Retention sweep failed", "error", err)
		return
	}
	w.logger.Info("Retention sweep completed",
		"purged", purged,
		"retention", w.config.Worker.RetentionPeriod,
	)
}

// startHealthServer serves liveness plus database and broker checks on
// the worker health port.
func (w *Worker) startHealthServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		checks := map[string]string{"database": "ok", "kafka": "ok"}

		if err := w.db.Health(ctx); err != nil {
			checks["database"] = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := w.producer.Health(ctx); err != nil {
			checks["kafka"] = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"status":    status,
			"service":   "chainreact-worker",
			"version":   version,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	w.logger.Info("Starting health check server", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.logger.Error("Health check server failed", "error", err)
	}
}
