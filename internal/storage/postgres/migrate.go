package postgres

import (
	"context"
	"time"

	"chainreact/pkg/errors"
	"chainreact/pkg/logger"

	"github.com/jackc/pgx/v5"
)

// MigrationManager applies the schema migrations the services expect at
// startup. Migrations are plain SQL, tracked in schema_migrations, and only
// run forward.
type MigrationManager struct {
	db     *DB
	logger logger.Logger
}

// NewMigrationManager creates a new migration manager instance
func NewMigrationManager(db *DB) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: logger.New("migration-manager"),
	}
}

// MigrationStep represents a single migration step
type MigrationStep struct {
	Version    string
	Name       string
	Statements []string
}

// AppliedMigration is a row from the schema_migrations tracking table.
type AppliedMigration struct {
	Version         string    `json:"version"`
	Name            string    `json:"name"`
	Batch           int       `json:"batch"`
	AppliedAt       time.Time `json:"applied_at"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
}

const migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	batch INTEGER NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	execution_time_ms BIGINT NOT NULL DEFAULT 0
)`

// Migrations returns the ordered migration steps.
func Migrations() []MigrationStep {
	return []MigrationStep{
		{
			Version: "2025_06_01_000001",
			Name:    "create_workflows_table",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS workflows (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'draft',
					team_id TEXT NOT NULL DEFAULT '',
					owner_id TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT 'ai',
					graph JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					deleted_at TIMESTAMPTZ
				)`,
			},
		},
		{
			Version: "2025_06_01_000002",
			Name:    "create_generation_records_table",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS generation_records (
					id UUID PRIMARY KEY,
					workflow_id UUID REFERENCES workflows(id) ON DELETE SET NULL,
					team_id TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL DEFAULT '',
					prompt TEXT NOT NULL,
					model TEXT NOT NULL DEFAULT '',
					mode TEXT NOT NULL DEFAULT 'standard',
					status TEXT NOT NULL,
					error_count INTEGER NOT NULL DEFAULT 0,
					repair_errors JSONB NOT NULL DEFAULT '[]'::jsonb,
					prompt_tokens INTEGER NOT NULL DEFAULT 0,
					completion_tokens INTEGER NOT NULL DEFAULT 0,
					duration_ms BIGINT NOT NULL DEFAULT 0,
					debug_key TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			Version: "2025_06_01_000003",
			Name:    "create_indexes",
			Statements: []string{
				`CREATE INDEX IF NOT EXISTS idx_workflows_team_status ON workflows (team_id, status) WHERE deleted_at IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_workflows_owner ON workflows (owner_id) WHERE deleted_at IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_workflows_updated_at ON workflows (updated_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_generation_records_workflow ON generation_records (workflow_id)`,
				`CREATE INDEX IF NOT EXISTS idx_generation_records_created_at ON generation_records (created_at)`,
			},
		},
	}
}

// RunMigrations executes all pending migrations
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.Info("Starting database migrations")

	if err := m.createMigrationTable(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to create migration table")
	}

	batch, err := m.nextBatchNumber(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, step := range Migrations() {
		ran, err := m.runSingleMigration(ctx, step, batch)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
				"migration %s failed", step.Name)
		}
		if ran {
			applied++
		}
	}

	m.logger.Info("Database migrations completed", "applied", applied)
	return nil
}

// createMigrationTable creates the migration tracking table
func (m *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecWithMetrics(ctx, "migrate", migrationTableDDL)
	return err
}

// nextBatchNumber returns the batch number for this migration run
func (m *MigrationManager) nextBatchNumber(ctx context.Context) (int, error) {
	var maxBatch int
	err := m.db.QueryRow(ctx, "SELECT COALESCE(MAX(batch), 0) FROM schema_migrations").Scan(&maxBatch)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to read migration batch number")
	}
	return maxBatch + 1, nil
}

// runSingleMigration executes a single migration if not already applied
func (m *MigrationManager) runSingleMigration(ctx context.Context, step MigrationStep, batch int) (bool, error) {
	var count int
	err := m.db.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", step.Version).Scan(&count)
	if err != nil {
		return false, err
	}

	if count > 0 {
		m.logger.Debug("Migration already applied, skipping", "version", step.Version)
		return false, nil
	}

	m.logger.Info("Applying migration", "version", step.Version, "name", step.Name)
	start := time.Now()

	err = m.db.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, stmt := range step.Statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, batch, applied_at, execution_time_ms)
			 VALUES ($1, $2, $3, $4, $5)`,
			step.Version, step.Name, batch, time.Now().UTC(), time.Since(start).Milliseconds())
		return err
	})
	if err != nil {
		return false, err
	}

	m.logger.Info("Migration completed",
		"version", step.Version,
		"duration", time.Since(start).String(),
	)
	return true, nil
}

// GetMigrationStatus returns the applied migrations in order
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := m.db.QueryWithMetrics(ctx, "migration_status",
		`SELECT version, name, batch, applied_at, execution_time_ms
		 FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var row AppliedMigration
		if err := rows.Scan(&row.Version, &row.Name, &row.Batch, &row.AppliedAt, &row.ExecutionTimeMS); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
				"failed to scan migration row")
		}
		applied = append(applied, row)
	}

	return applied, rows.Err()
}

// Reset drops all managed tables and reapplies the migrations. Intended for
// development databases only.
func (m *MigrationManager) Reset(ctx context.Context) error {
	drops := []string{
		"DROP TABLE IF EXISTS generation_records CASCADE",
		"DROP TABLE IF EXISTS workflows CASCADE",
		"DROP TABLE IF EXISTS schema_migrations CASCADE",
	}

	for _, stmt := range drops {
		if _, err := m.db.ExecWithMetrics(ctx, "migrate_reset", stmt); err != nil {
			return err
		}
	}

	m.logger.Warn("Database reset, reapplying migrations")
	return m.RunMigrations(ctx)
}
