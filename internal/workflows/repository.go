package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chainreact/internal/storage/postgres"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Repository defines the workflow data access interface
type Repository interface {
	Create(ctx context.Context, workflow *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	Update(ctx context.Context, workflow *Workflow) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *WorkflowListFilter) ([]*Workflow, int64, error)

	CreateGeneration(ctx context.Context, record *GenerationRecord) error
	GetGenerationByID(ctx context.Context, id string) (*GenerationRecord, error)
	DeleteGenerationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db      *postgres.DB
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *postgres.DB) Repository {
	return &PostgresRepository{
		db:      db,
		logger:  logger.New("workflow-repository"),
		metrics: metrics.GetGlobal(),
	}
}

// sortColumns whitelists the ORDER BY targets accepted from list filters.
var sortColumns = map[string]string{
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Create creates a new workflow
func (r *PostgresRepository) Create(ctx context.Context, workflow *Workflow) error {
	start := time.Now()

	query := `
		INSERT INTO workflows (
			id, name, description, status, team_id, owner_id, source,
			graph, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	graphJSON, err := json.Marshal(workflow.Graph)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to serialize workflow graph")
	}

	_, err = r.db.Exec(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, string(workflow.Status),
		workflow.TeamID, workflow.OwnerID, string(workflow.Source),
		graphJSON, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		r.metrics.RecordDBQuery("create", "workflows", "error", time.Since(start))
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to create workflow")
	}

	r.metrics.RecordDBQuery("create", "workflows", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID)
	return nil
}

// GetByID retrieves a workflow by ID. Returns nil without error when the
// workflow does not exist or is soft deleted.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Workflow, error) {
	start := time.Now()

	query := `
		SELECT id, name, description, status, team_id, owner_id, source,
			   graph, created_at, updated_at, deleted_at
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL`

	var workflow Workflow
	var graphJSON []byte
	var deletedAt pgtype.Timestamptz

	err := r.db.QueryRow(ctx, query, id).Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Status,
		&workflow.TeamID, &workflow.OwnerID, &workflow.Source,
		&graphJSON, &workflow.CreatedAt, &workflow.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.metrics.RecordDBQuery("get", "workflows", "not_found", time.Since(start))
			return nil, nil
		}
		r.metrics.RecordDBQuery("get", "workflows", "error", time.Since(start))
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to get workflow")
	}

	if err := json.Unmarshal(graphJSON, &workflow.Graph); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to deserialize workflow graph")
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		workflow.DeletedAt = &t
	}

	r.metrics.RecordDBQuery("get", "workflows", "success", time.Since(start))
	return &workflow, nil
}

// Update updates an existing workflow
func (r *PostgresRepository) Update(ctx context.Context, workflow *Workflow) error {
	start := time.Now()

	query := `
		UPDATE workflows SET
			name = $2, description = $3, status = $4, graph = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`

	graphJSON, err := json.Marshal(workflow.Graph)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to serialize workflow graph")
	}

	result, err := r.db.Exec(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, string(workflow.Status),
		graphJSON, workflow.UpdatedAt,
	)
	if err != nil {
		r.metrics.RecordDBQuery("update", "workflows", "error", time.Since(start))
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to update workflow")
	}

	if result.RowsAffected() == 0 {
		r.metrics.RecordDBQuery("update", "workflows", "not_found", time.Since(start))
		return errors.NotFoundError("workflow")
	}

	r.metrics.RecordDBQuery("update", "workflows", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Workflow updated", "workflow_id", workflow.ID)
	return nil
}

// Delete soft deletes a workflow
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()

	query := `
		UPDATE workflows
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`

	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		r.metrics.RecordDBQuery("delete", "workflows", "error", time.Since(start))
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to delete workflow")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFoundError("workflow")
	}

	r.metrics.RecordDBQuery("delete", "workflows", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)
	return nil
}

// List retrieves workflows with filtering and pagination. The graph column is
// not loaded for listings.
func (r *PostgresRepository) List(ctx context.Context, filter *WorkflowListFilter) ([]*Workflow, int64, error) {
	start := time.Now()

	conditions := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	if filter.TeamID != nil {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", argIndex))
		args = append(args, *filter.TeamID)
		argIndex++
	}

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIndex))
		args = append(args, *filter.OwnerID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argIndex))
		args = append(args, string(*filter.Source))
		argIndex++
	}

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM workflows %s", whereClause)
	var total int64
	err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		r.metrics.RecordDBQuery("count", "workflows", "error", time.Since(start))
		return nil, 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to count workflows")
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, name, description, status, team_id, owner_id, source,
			   created_at, updated_at
		FROM workflows %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		r.metrics.RecordDBQuery("list", "workflows", "error", time.Since(start))
		return nil, 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to list workflows")
	}
	defer rows.Close()

	var workflows []*Workflow
	for rows.Next() {
		var workflow Workflow
		err := rows.Scan(
			&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Status,
			&workflow.TeamID, &workflow.OwnerID, &workflow.Source,
			&workflow.CreatedAt, &workflow.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
				"failed to scan workflow")
		}
		workflows = append(workflows, &workflow)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to iterate workflows")
	}

	r.metrics.RecordDBQuery("list", "workflows", "success", time.Since(start))
	return workflows, total, nil
}

// CreateGeneration stores a generation record
func (r *PostgresRepository) CreateGeneration(ctx context.Context, record *GenerationRecord) error {
	start := time.Now()

	query := `
		INSERT INTO generation_records (
			id, workflow_id, team_id, user_id, prompt, model, mode, status,
			error_count, repair_errors, prompt_tokens, completion_tokens,
			duration_ms, debug_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	repairJSON, err := json.Marshal(record.RepairErrors)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to serialize repair errors")
	}

	_, err = r.db.Exec(ctx, query,
		record.ID, record.WorkflowID, record.TeamID, record.UserID,
		record.Prompt, record.Model, record.Mode, string(record.Status),
		record.ErrorCount, repairJSON, record.PromptTokens, record.CompletionTokens,
		record.DurationMS, record.DebugKey, record.CreatedAt,
	)
	if err != nil {
		r.metrics.RecordDBQuery("create", "generation_records", "error", time.Since(start))
		return errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to create generation record")
	}

	r.metrics.RecordDBQuery("create", "generation_records", "success", time.Since(start))
	return nil
}

// GetGenerationByID retrieves a generation record. Returns nil without error
// when the record does not exist.
func (r *PostgresRepository) GetGenerationByID(ctx context.Context, id string) (*GenerationRecord, error) {
	start := time.Now()

	query := `
		SELECT id, workflow_id, team_id, user_id, prompt, model, mode, status,
			   error_count, repair_errors, prompt_tokens, completion_tokens,
			   duration_ms, debug_key, created_at
		FROM generation_records
		WHERE id = $1`

	var record GenerationRecord
	var repairJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.WorkflowID, &record.TeamID, &record.UserID,
		&record.Prompt, &record.Model, &record.Mode, &record.Status,
		&record.ErrorCount, &repairJSON, &record.PromptTokens, &record.CompletionTokens,
		&record.DurationMS, &record.DebugKey, &record.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.metrics.RecordDBQuery("get", "generation_records", "not_found", time.Since(start))
			return nil, nil
		}
		r.metrics.RecordDBQuery("get", "generation_records", "error", time.Since(start))
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to get generation record")
	}

	if err := json.Unmarshal(repairJSON, &record.RepairErrors); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to deserialize repair errors")
	}

	r.metrics.RecordDBQuery("get", "generation_records", "success", time.Since(start))
	return &record, nil
}

// DeleteGenerationsBefore removes generation records older than cutoff and
// returns the number purged.
func (r *PostgresRepository) DeleteGenerationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()

	result, err := r.db.Exec(ctx, "DELETE FROM generation_records WHERE created_at < $1", cutoff)
	if err != nil {
		r.metrics.RecordDBQuery("purge", "generation_records", "error", time.Since(start))
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, errors.CodeDatabaseQuery,
			"failed to purge generation records")
	}

	r.metrics.RecordDBQuery("purge", "generation_records", "success", time.Since(start))
	return result.RowsAffected(), nil
}
