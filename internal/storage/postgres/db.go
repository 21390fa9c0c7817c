package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool with metrics, slow-query logging and
// transaction helpers.
type DB struct {
	pool      *pgxpool.Pool
	config    *config.DatabaseConfig
	logger    logger.Logger
	metrics   *metrics.Metrics
	mu        sync.RWMutex
	connected bool
}

// ConnectionStats holds database connection statistics
type ConnectionStats struct {
	OpenConnections  int32
	IdleConnections  int32
	InUseConnections int32
	WaitCount        int64
	WaitDuration     time.Duration
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx pgx.Tx) error

// New creates a PostgreSQL connection and verifies it with a ping.
func New(ctx context.Context, config *config.DatabaseConfig) (*DB, error) {
	if config == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "database config is required")
	}

	db := &DB{
		config:  config,
		logger:  logger.New("postgres"),
		metrics: metrics.GetGlobal(),
	}

	if err := db.Connect(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// Connect establishes a connection to the PostgreSQL database
func (db *DB) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.connected {
		return nil
	}

	poolConfig, err := db.buildPoolConfig()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseConnection,
			"failed to build pool configuration")
	}

	pool, err := db.connectWithRetry(ctx, poolConfig)
	if err != nil {
		return err
	}

	db.pool = pool
	db.connected = true

	db.logger.Info("Connected to PostgreSQL database",
		"host", db.config.Host,
		"port", db.config.Port,
		"database", db.config.Database,
		"max_connections", db.config.MaxOpenConnections,
	)

	go db.monitorConnections()

	return nil
}

// buildPoolConfig creates a pgxpool configuration
func (db *DB) buildPoolConfig() (*pgxpool.Config, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.config.Host,
		db.config.Port,
		db.config.Username,
		db.config.Password,
		db.config.Database,
		db.config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(db.config.MaxOpenConnections)
	poolConfig.MinConns = int32(db.config.MinIdleConnections)
	poolConfig.MaxConnLifetime = db.config.ConnectionLifetime
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = db.config.ConnectionTimeout

	poolConfig.BeforeConnect = func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		db.logger.Debug("Establishing new database connection",
			"host", connConfig.Host,
			"database", connConfig.Database,
		)
		return nil
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// The pool field is nil while the initial connections are created.
		if db.pool != nil {
			stat := db.pool.Stat()
			db.metrics.UpdateDBStats(
				int(stat.TotalConns()),
				int(stat.IdleConns()),
				int(stat.AcquiredConns()),
			)
		}
		return nil
	}

	poolConfig.BeforeClose = func(conn *pgx.Conn) {
		db.logger.Debug("Closing database connection")
	}

	return poolConfig, nil
}

// connectWithRetry attempts to connect with retry logic
func (db *DB) connectWithRetry(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	attempts := db.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			db.logger.Warn("Retrying database connection",
				"attempt", attempt,
				"max_attempts", attempts,
				"last_error", lastErr.Error(),
			)
			select {
			case <-time.After(db.config.RetryDelay):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeDatabase,
					errors.CodeDatabaseConnection, "connection attempt canceled")
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = err
			continue
		}

		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}

		return pool, nil
	}

	return nil, errors.Wrapf(lastErr, errors.ErrorTypeDatabase, errors.CodeDatabaseConnection,
		"failed to connect after %d attempts", attempts)
}

// Close closes the database connection
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.connected || db.pool == nil {
		return nil
	}

	db.pool.Close()
	db.connected = false

	db.logger.Info("Database connection closed")
	return nil
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if !db.IsConnected() {
		return errors.New(errors.ErrorTypeDatabase, errors.CodeDatabaseConnection,
			"database not connected")
	}

	return db.pool.Ping(ctx)
}

// Query executes a query and returns rows
func (db *DB) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	return db.QueryWithMetrics(ctx, "query", query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	start := time.Now()
	defer func() {
		db.observeQuery("query_row", "success", query, args, time.Since(start))
	}()

	return db.pool.QueryRow(ctx, query, args...)
}

// Exec executes a query without returning any rows
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.ExecWithMetrics(ctx, "exec", query, args...)
}

// QueryWithMetrics executes a query with metrics collection. The operation
// label identifies the caller in the db_query metrics.
func (db *DB) QueryWithMetrics(ctx context.Context, operation, query string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	status := "success"

	defer func() {
		db.observeQuery(operation, status, query, args, time.Since(start))
	}()

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		status = "error"
		return nil, errors.Wrapf(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"query failed: %s", operation)
	}

	return rows, nil
}

// ExecWithMetrics executes a command with metrics collection
func (db *DB) ExecWithMetrics(ctx context.Context, operation, query string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	status := "success"

	defer func() {
		db.observeQuery(operation, status, query, args, time.Since(start))
	}()

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		status = "error"
		return pgconn.CommandTag{}, errors.Wrapf(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"exec failed: %s", operation)
	}

	return result, nil
}

func (db *DB) observeQuery(operation, status, query string, args []interface{}, duration time.Duration) {
	db.metrics.RecordDBQuery(operation, "unknown", status, duration)

	if db.config.SlowQueryThreshold > 0 && duration > db.config.SlowQueryThreshold {
		db.logger.Warn("Slow query detected",
			"operation", operation,
			"query", query,
			"duration", duration,
			"threshold", db.config.SlowQueryThreshold,
		)
	}

	if db.config.EnableQueryLogging {
		db.logger.Debug("Query executed",
			"operation", operation,
			"query", query,
			"duration", duration,
			"args", args,
		)
	}
}

// BeginTx starts a transaction with the given options
func (db *DB) BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error) {
	if !db.IsConnected() {
		return nil, errors.New(errors.ErrorTypeDatabase, errors.CodeDatabaseConnection,
			"database not connected")
	}

	tx, err := db.pool.BeginTx(ctx, options)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to begin transaction")
	}

	return tx, nil
}

// Begin starts a transaction with default options
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.BeginTx(ctx, pgx.TxOptions{})
}

// RunInTransaction executes a function within a transaction
func (db *DB) RunInTransaction(ctx context.Context, fn TransactionFunc) error {
	return db.RunInTransactionWithOptions(ctx, pgx.TxOptions{}, fn)
}

// RunInTransactionWithOptions executes a function within a transaction with
// options. The transaction is rolled back on error or panic.
func (db *DB) RunInTransactionWithOptions(ctx context.Context, options pgx.TxOptions, fn TransactionFunc) error {
	tx, err := db.BeginTx(ctx, options)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback(ctx)
			panic(r)
		}
	}()

	err = fn(tx)
	if err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			db.logger.Error("Failed to rollback transaction",
				"error", rollbackErr,
				"original_error", err,
			)
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to commit transaction")
	}

	return nil
}

// GetPool returns the underlying connection pool
func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

// Stats returns connection statistics
func (db *DB) Stats() *ConnectionStats {
	if !db.IsConnected() {
		return &ConnectionStats{}
	}

	stat := db.pool.Stat()

	return &ConnectionStats{
		OpenConnections:  stat.TotalConns(),
		IdleConnections:  stat.IdleConns(),
		InUseConnections: stat.AcquiredConns(),
		WaitCount:        stat.EmptyAcquireCount(),
		WaitDuration:     stat.AcquireDuration(),
	}
}

// Health verifies the database answers a trivial query.
func (db *DB) Health(ctx context.Context) error {
	if !db.IsConnected() {
		return errors.New(errors.ErrorTypeDatabase, errors.CodeDatabaseConnection,
			"database not connected")
	}

	var result int
	err := db.pool.QueryRow(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"database health check failed")
	}

	if result != 1 {
		return errors.New(errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"database health check returned unexpected result")
	}

	return nil
}

// monitorConnections periodically exports pool statistics and warns on
// pool pressure.
func (db *DB) monitorConnections() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if !db.IsConnected() {
			return
		}

		stats := db.Stats()
		db.metrics.UpdateDBStats(
			int(stats.OpenConnections),
			int(stats.IdleConnections),
			int(stats.InUseConnections),
		)

		if db.config.MaxOpenConnections > 0 &&
			stats.OpenConnections >= int32(db.config.MaxOpenConnections)*80/100 {
			db.logger.Warn("High connection pool usage",
				"open_connections", stats.OpenConnections,
				"max_connections", db.config.MaxOpenConnections,
			)
		}

		if stats.WaitCount > 0 {
			db.logger.Warn("Connection pool wait detected",
				"wait_count", stats.WaitCount,
				"wait_duration", stats.WaitDuration,
			)
		}
	}
}

// IsConnected returns true if the database is connected
func (db *DB) IsConnected() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.connected
}

// Config returns the database configuration
func (db *DB) Config() *config.DatabaseConfig {
	return db.config
}
