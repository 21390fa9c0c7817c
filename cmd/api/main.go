package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainreact/internal/api"
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
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	log := logger.New("api")
	log.Info("Starting chainreact API server",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	metrics.Initialize(&metrics.Config{
		Enabled:     cfg.Metrics.Enabled,
		Path:        cfg.Metrics.Path,
		Port:        cfg.Metrics.Port,
		Namespace:   cfg.Metrics.Namespace,
		Subsystem:   cfg.Metrics.Subsystem,
		ServiceName: cfg.Metrics.ServiceName,
	})

	if cfg.Tracing.Enabled {
		if err := tracing.Initialize(&tracing.Config{
			Enabled:      true,
			ServiceName:  "chainreact-api",
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

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database)
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

	deps := api.Dependencies{
		Generator: generator,
		Registry:  registry,
		Workflows: workflowSvc,
		Archiver:  archiver,
		Database:  db,
	}

	if cfg.Kafka.Enabled {
		producer, err := messaging.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("Failed to create Kafka producer", "error", err)
		}
		defer producer.Close()
		deps.Publisher = producer
		deps.Broker = producer
	}

	if cfg.Auth.Enabled {
		tokens, err := auth.NewService(cfg.Auth)
		if err != nil {
			log.Fatal("Failed to initialize token service", "error", err)
		}
		deps.Tokens = tokens
		deps.APIKeys = auth.NewAPIKeyVerifier(cfg.Auth.APIKeyHashes)
	}

	api.Version = version
	server, err := api.NewServer(cfg, deps)
	if err != nil {
		log.Fatal("Failed to create API server", "error", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("HTTP server failed", "error", err)
		}
	}()

	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
		"environment", cfg.Environment,
		"auth_enabled", cfg.Auth.Enabled,
		"kafka_enabled", cfg.Kafka.Enabled,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}

	log.Info("API server stopped")
}
