// Package config provides application configuration management
package config

import (
	"time"

	pkgconfig "chainreact/pkg/config"
	"chainreact/pkg/logger"
)

// Config holds the complete application configuration
type Config struct {
	Environment string          `json:"environment" yaml:"environment"`
	Debug       bool            `json:"debug" yaml:"debug"`
	LogLevel    string          `json:"log_level" yaml:"log_level"`
	API         *APIConfig      `json:"api" yaml:"api"`
	Database    *DatabaseConfig `json:"database" yaml:"database"`
	Kafka       *KafkaConfig    `json:"kafka" yaml:"kafka"`
	AI          *AIConfig       `json:"ai" yaml:"ai"`
	Auth        *AuthConfig     `json:"auth" yaml:"auth"`
	Metrics     *MetricsConfig  `json:"metrics" yaml:"metrics"`
	Tracing     *TracingConfig  `json:"tracing" yaml:"tracing"`
	Storage     *StorageConfig  `json:"storage" yaml:"storage"`
	Worker      *WorkerConfig   `json:"worker" yaml:"worker"`
	Limits      *LimitsConfig   `json:"limits" yaml:"limits"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Host                 string        `json:"host" yaml:"host"`
	Port                 int           `json:"port" yaml:"port"`
	ReadTimeout          time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout         time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout          time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	MaxRequestSize       int64         `json:"max_request_size" yaml:"max_request_size"`
	EnableCORS           bool          `json:"enable_cors" yaml:"enable_cors"`
	CORSAllowedOrigins   []string      `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	EnableRateLimit      bool          `json:"enable_rate_limit" yaml:"enable_rate_limit"`
	RateLimitRequests    int           `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow      time.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
	EnableRequestLogging bool          `json:"enable_request_logging" yaml:"enable_request_logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host               string        `json:"host" yaml:"host"`
	Port               int           `json:"port" yaml:"port"`
	Database           string        `json:"database" yaml:"database"`
	Username           string        `json:"username" yaml:"username"`
	Password           string        `json:"-" yaml:"-"` // Hidden from JSON/YAML output
	SSLMode            string        `json:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConnections int           `json:"max_open_connections" yaml:"max_open_connections"`
	MinIdleConnections int           `json:"min_idle_connections" yaml:"min_idle_connections"`
	ConnectionLifetime time.Duration `json:"connection_lifetime" yaml:"connection_lifetime"`
	ConnectionTimeout  time.Duration `json:"connection_timeout" yaml:"connection_timeout"`
	RetryAttempts      int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay         time.Duration `json:"retry_delay" yaml:"retry_delay"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" yaml:"slow_query_threshold"`
	EnableQueryLogging bool          `json:"enable_query_logging" yaml:"enable_query_logging"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Brokers        []string      `json:"brokers" yaml:"brokers"`
	JobsTopic      string        `json:"jobs_topic" yaml:"jobs_topic"`
	EventsTopic    string        `json:"events_topic" yaml:"events_topic"`
	GroupID        string        `json:"group_id" yaml:"group_id"`
	ClientID       string        `json:"client_id" yaml:"client_id"`
	MinBytes       int           `json:"min_bytes" yaml:"min_bytes"`
	MaxBytes       int           `json:"max_bytes" yaml:"max_bytes"`
	MaxWait        time.Duration `json:"max_wait" yaml:"max_wait"`
	CommitInterval time.Duration `json:"commit_interval" yaml:"commit_interval"`
	BatchTimeout   time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// AIConfig holds LLM provider configuration
type AIConfig struct {
	Provider       string        `json:"provider" yaml:"provider"`
	APIKey         string        `json:"-" yaml:"-"`
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	DefaultModel   string        `json:"default_model" yaml:"default_model"`
	MaxTokens      int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float32       `json:"temperature" yaml:"temperature"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxRetries     int           `json:"max_retries" yaml:"max_retries"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Enabled                bool          `json:"enabled" yaml:"enabled"`
	JWTSecret              string        `json:"-" yaml:"-"`
	JWTExpiration          time.Duration `json:"jwt_expiration" yaml:"jwt_expiration"`
	RefreshTokenExpiration time.Duration `json:"refresh_token_expiration" yaml:"refresh_token_expiration"`
	Issuer                 string        `json:"issuer" yaml:"issuer"`
	Audience               string        `json:"audience" yaml:"audience"`
	APIKeyHashes           []string      `json:"-" yaml:"-"` // bcrypt hashes of accepted API keys
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Path        string `json:"path" yaml:"path"`
	Namespace   string `json:"namespace" yaml:"namespace"`
	Subsystem   string `json:"subsystem" yaml:"subsystem"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	ExporterType string  `json:"exporter_type" yaml:"exporter_type"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRatio  float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	Provider string    `json:"provider" yaml:"provider"` // "none" or "s3"
	S3Config *S3Config `json:"s3_config" yaml:"s3_config"`
}

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Region          string `json:"region" yaml:"region"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"-"`
	KeyPrefix       string `json:"key_prefix" yaml:"key_prefix"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl"`
	PathStyle       bool   `json:"path_style" yaml:"path_style"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	Concurrency       int           `json:"concurrency" yaml:"concurrency"`
	JobTimeout        time.Duration `json:"job_timeout" yaml:"job_timeout"`
	EnableHealthCheck bool          `json:"enable_health_check" yaml:"enable_health_check"`
	HealthCheckPort   int           `json:"health_check_port" yaml:"health_check_port"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	RetentionSchedule string        `json:"retention_schedule" yaml:"retention_schedule"`
	RetentionPeriod   time.Duration `json:"retention_period" yaml:"retention_period"`
}

// LimitsConfig holds generation limits
type LimitsConfig struct {
	MaxPromptLength          int `json:"max_prompt_length" yaml:"max_prompt_length"`
	MaxNodesPerWorkflow      int `json:"max_nodes_per_workflow" yaml:"max_nodes_per_workflow"`
	MaxConcurrentGenerations int `json:"max_concurrent_generations" yaml:"max_concurrent_generations"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	log := logger.New("config")

	// Load environment files before reading configuration
	envLoader := pkgconfig.NewEnvironmentLoader(log)
	if err := envLoader.LoadEnvironmentWithDefaults(); err != nil {
		// Environment files are optional
		log.Warn("Failed to load environment files", "error", err)
	}

	config := &Config{
		Environment: getEnvString("ENVIRONMENT", "development"),
		Debug:       getEnvBool("DEBUG", false),
		LogLevel:    getEnvString("LOG_LEVEL", "info"),
		API:         loadAPIConfig(),
		Database:    loadDatabaseConfig(),
		Kafka:       loadKafkaConfig(),
		AI:          loadAIConfig(),
		Auth:        loadAuthConfig(),
		Metrics:     loadMetricsConfig(),
		Tracing:     loadTracingConfig(),
		Storage:     loadStorageConfig(),
		Worker:      loadWorkerConfig(),
		Limits:      loadLimitsConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadAPIConfig() *APIConfig {
	return &APIConfig{
		Host:                 getEnvString("API_HOST", "0.0.0.0"),
		Port:                 getEnvInt("API_PORT", 8080),
		ReadTimeout:          getEnvDuration("API_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:         getEnvDuration("API_WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:          getEnvDuration("API_IDLE_TIMEOUT", 120*time.Second),
		MaxRequestSize:       getEnvInt64("API_MAX_REQUEST_SIZE", 1024*1024), // 1MB
		EnableCORS:           getEnvBool("API_ENABLE_CORS", true),
		CORSAllowedOrigins:   getEnvStringSlice("API_CORS_ALLOWED_ORIGINS", []string{"*"}),
		EnableRateLimit:      getEnvBool("API_ENABLE_RATE_LIMIT", true),
		RateLimitRequests:    getEnvInt("API_RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:      getEnvDuration("API_RATE_LIMIT_WINDOW", time.Minute),
		EnableRequestLogging: getEnvBool("API_ENABLE_REQUEST_LOGGING", true),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:               getEnvString("DB_HOST", "localhost"),
		Port:               getEnvInt("DB_PORT", 5432),
		Database:           getEnvString("DB_NAME", "chainreact"),
		Username:           getEnvString("DB_USER", "postgres"),
		Password:           getEnvString("DB_PASSWORD", ""),
		SSLMode:            getEnvString("DB_SSL_MODE", "disable"),
		MaxOpenConnections: getEnvInt("DB_MAX_OPEN_CONNECTIONS", 25),
		MinIdleConnections: getEnvInt("DB_MIN_IDLE_CONNECTIONS", 5),
		ConnectionLifetime: getEnvDuration("DB_CONNECTION_LIFETIME", 5*time.Minute),
		ConnectionTimeout:  getEnvDuration("DB_CONNECTION_TIMEOUT", 10*time.Second),
		RetryAttempts:      getEnvInt("DB_RETRY_ATTEMPTS", 3),
		RetryDelay:         getEnvDuration("DB_RETRY_DELAY", 2*time.Second),
		SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 500*time.Millisecond),
		EnableQueryLogging: getEnvBool("DB_ENABLE_QUERY_LOGGING", false),
	}
}

func loadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Enabled:        getEnvBool("KAFKA_ENABLED", true),
		Brokers:        getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		JobsTopic:      getEnvString("KAFKA_JOBS_TOPIC", "workflow.generate"),
		EventsTopic:    getEnvString("KAFKA_EVENTS_TOPIC", "workflow.events"),
		GroupID:        getEnvString("KAFKA_GROUP_ID", "chainreact-workers"),
		ClientID:       getEnvString("KAFKA_CLIENT_ID", "chainreact"),
		MinBytes:       getEnvInt("KAFKA_MIN_BYTES", 1),
		MaxBytes:       getEnvInt("KAFKA_MAX_BYTES", 1024*1024),
		MaxWait:        getEnvDuration("KAFKA_MAX_WAIT", 250*time.Millisecond),
		CommitInterval: getEnvDuration("KAFKA_COMMIT_INTERVAL", time.Second),
		BatchTimeout:   getEnvDuration("KAFKA_BATCH_TIMEOUT", 100*time.Millisecond),
		WriteTimeout:   getEnvDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
	}
}

func loadAIConfig() *AIConfig {
	apiKey := getEnvString("AI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnvString("OPENAI_API_KEY", "")
	}
	return &AIConfig{
		Provider:       getEnvString("AI_PROVIDER", "openai"),
		APIKey:         apiKey,
		BaseURL:        getEnvString("AI_BASE_URL", ""),
		DefaultModel:   getEnvString("AI_DEFAULT_MODEL", "gpt-4o"),
		MaxTokens:      getEnvInt("AI_MAX_TOKENS", 4096),
		Temperature:    float32(getEnvFloat("AI_TEMPERATURE", 0.2)),
		RequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 2*time.Minute),
		MaxRetries:     getEnvInt("AI_MAX_RETRIES", 3),
	}
}

func loadAuthConfig() *AuthConfig {
	return &AuthConfig{
		Enabled:                getEnvBool("AUTH_ENABLED", true),
		JWTSecret:              getEnvString("AUTH_JWT_SECRET", ""),
		JWTExpiration:          getEnvDuration("AUTH_JWT_EXPIRATION", 15*time.Minute),
		RefreshTokenExpiration: getEnvDuration("AUTH_REFRESH_TOKEN_EXPIRATION", 7*24*time.Hour),
		Issuer:                 getEnvString("AUTH_ISSUER", "chainreact"),
		Audience:               getEnvString("AUTH_AUDIENCE", "chainreact-api"),
		APIKeyHashes:           getEnvStringSlice("AUTH_API_KEY_HASHES", []string{}),
	}
}

func loadMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:     getEnvBool("METRICS_ENABLED", true),
		Host:        getEnvString("METRICS_HOST", "0.0.0.0"),
		Port:        getEnvInt("METRICS_PORT", 9090),
		Path:        getEnvString("METRICS_PATH", "/metrics"),
		Namespace:   getEnvString("METRICS_NAMESPACE", "chainreact"),
		Subsystem:   getEnvString("METRICS_SUBSYSTEM", ""),
		ServiceName: getEnvString("METRICS_SERVICE_NAME", "api"),
	}
}

func loadTracingConfig() *TracingConfig {
	return &TracingConfig{
		Enabled:      getEnvBool("TRACING_ENABLED", false),
		ExporterType: getEnvString("TRACING_EXPORTER_TYPE", "stdout"),
		OTLPEndpoint: getEnvString("TRACING_OTLP_ENDPOINT", "localhost:4318"),
		SampleRatio:  getEnvFloat("TRACING_SAMPLE_RATIO", 1.0),
	}
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		Provider: getEnvString("STORAGE_PROVIDER", "none"),
		S3Config: &S3Config{
			Endpoint:        getEnvString("S3_ENDPOINT", ""),
			Region:          getEnvString("S3_REGION", "us-east-1"),
			Bucket:          getEnvString("S3_BUCKET", ""),
			AccessKeyID:     getEnvString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvString("S3_SECRET_ACCESS_KEY", ""),
			KeyPrefix:       getEnvString("S3_KEY_PREFIX", ""),
			UseSSL:          getEnvBool("S3_USE_SSL", true),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		},
	}
}

func loadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Enabled:           getEnvBool("WORKER_ENABLED", true),
		Concurrency:       getEnvInt("WORKER_CONCURRENCY", 4),
		JobTimeout:        getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),
		EnableHealthCheck: getEnvBool("WORKER_ENABLE_HEALTH_CHECK", true),
		HealthCheckPort:   getEnvInt("WORKER_HEALTH_CHECK_PORT", 8091),
		ShutdownTimeout:   getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		RetentionSchedule: getEnvString("WORKER_RETENTION_SCHEDULE", "0 3 * * *"),
		RetentionPeriod:   getEnvDuration("WORKER_RETENTION_PERIOD", 30*24*time.Hour),
	}
}

func loadLimitsConfig() *LimitsConfig {
	return &LimitsConfig{
		MaxPromptLength:          getEnvInt("LIMITS_MAX_PROMPT_LENGTH", 8000),
		MaxNodesPerWorkflow:      getEnvInt("LIMITS_MAX_NODES_PER_WORKFLOW", 100),
		MaxConcurrentGenerations: getEnvInt("LIMITS_MAX_CONCURRENT_GENERATIONS", 8),
	}
}
