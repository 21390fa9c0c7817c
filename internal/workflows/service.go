package workflows

import (
	"context"
	"fmt"
	"time"

	"chainreact/internal/generation"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"
	"chainreact/pkg/validator"

	"github.com/google/uuid"
)

// Actor identifies the caller of a service operation. Tenancy is enforced by
// team first, then by ownership for workflows created without a team.
type Actor struct {
	UserID string
	TeamID string
}

// CanAccess reports whether the actor may operate on a workflow owned by
// ownerID within teamID.
func (a Actor) CanAccess(teamID, ownerID string) bool {
	if teamID != "" && teamID == a.TeamID {
		return true
	}
	return ownerID != "" && ownerID == a.UserID
}

// Service owns stored-workflow lifecycle rules: defaults on create, status
// transitions, tenancy scoping, and the generation audit trail.
type Service struct {
	repo    Repository
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a workflow service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		logger:  logger.New("workflow-service"),
		metrics: metrics.GetGlobal(),
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewFromGeneration builds an unsaved draft workflow from a generation result.
func NewFromGeneration(result *generation.Result) *Workflow {
	return &Workflow{
		Name:        result.Workflow.Name,
		Description: result.Workflow.Description,
		Status:      StatusDraft,
		Source:      SourceAI,
		Graph:       result.Workflow,
	}
}

// RecordFromResult builds the audit record for a completed generation. A
// result with unresolved validation errors is recorded as invalid rather than
// succeeded.
func RecordFromResult(result *generation.Result, prompt string, actor Actor) *GenerationRecord {
	status := GenerationSucceeded
	if len(result.Errors) > 0 {
		status = GenerationInvalid
	}

	return &GenerationRecord{
		ID:               result.ID,
		TeamID:           actor.TeamID,
		UserID:           actor.UserID,
		Prompt:           prompt,
		Model:            result.Model,
		Mode:             result.Mode,
		Status:           status,
		ErrorCount:       len(result.Errors),
		RepairErrors:     result.Errors,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		DurationMS:       result.DurationMS,
	}
}

// FailedRecord builds the audit record for a generation that returned no
// result.
func FailedRecord(id, prompt, model string, actor Actor) *GenerationRecord {
	return &GenerationRecord{
		ID:     id,
		TeamID: actor.TeamID,
		UserID: actor.UserID,
		Prompt: prompt,
		Model:  model,
		Status: GenerationFailed,
	}
}

// Create stores a new workflow for the actor. Missing fields are defaulted:
// id, draft status, manual source, team and owner from the actor.
func (s *Service) Create(ctx context.Context, actor Actor, workflow *Workflow) (*Workflow, error) {
	if workflow == nil || workflow.Graph == nil {
		return nil, errors.NewValidationError("workflow graph is required")
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}
	if workflow.Status == "" {
		workflow.Status = StatusDraft
	}
	if workflow.Source == "" {
		workflow.Source = SourceManual
	}
	if workflow.Name == "" {
		workflow.Name = workflow.Graph.Name
	}

	workflow.TeamID = actor.TeamID
	workflow.OwnerID = actor.UserID

	now := s.now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.DeletedAt = nil

	if err := validator.Validate(workflow); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := s.repo.Create(ctx, workflow); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create workflow",
			"error", err,
			"workflow_name", workflow.Name,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", workflow.ID,
		"workflow_name", workflow.Name,
		"user_id", actor.UserID,
	)
	return workflow, nil
}

// GetByID retrieves a workflow the actor can access.
func (s *Service) GetByID(ctx context.Context, actor Actor, id string) (*Workflow, error) {
	workflow, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, errors.NotFoundError("workflow")
	}

	if !actor.CanAccess(workflow.TeamID, workflow.OwnerID) {
		return nil, errors.NewForbiddenError("workflow access denied")
	}

	return workflow, nil
}

// Update replaces the mutable fields of a stored workflow: name, description
// and graph. Status changes go through UpdateStatus.
func (s *Service) Update(ctx context.Context, actor Actor, workflow *Workflow) (*Workflow, error) {
	if workflow == nil || workflow.ID == "" {
		return nil, errors.NewValidationError("workflow id is required")
	}

	existing, err := s.GetByID(ctx, actor, workflow.ID)
	if err != nil {
		return nil, err
	}

	if workflow.Name != "" {
		existing.Name = workflow.Name
	}
	existing.Description = workflow.Description
	if workflow.Graph != nil {
		existing.Graph = workflow.Graph
	}
	existing.UpdatedAt = s.now().UTC()

	if err := validator.Validate(existing); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow updated",
		"workflow_id", existing.ID,
		"user_id", actor.UserID,
	)
	return existing, nil
}

// UpdateStatus moves a workflow through its lifecycle. Repeating the current
// status is a no-op; anything else must be a legal transition.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id string, next Status) (*Workflow, error) {
	if !next.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown workflow status %q", next))
	}

	workflow, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status == next {
		return workflow, nil
	}

	if !workflow.Status.CanTransitionTo(next) {
		return nil, errors.New(errors.ErrorTypeConflict, errors.CodeInvalidInput,
			fmt.Sprintf("cannot transition workflow from %s to %s", workflow.Status, next))
	}

	workflow.Status = next
	workflow.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, workflow); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow status changed",
		"workflow_id", id,
		"status", next,
		"user_id", actor.UserID,
	)
	return workflow, nil
}

// Delete soft deletes a workflow the actor can access.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Workflow deleted",
		"workflow_id", id,
		"user_id", actor.UserID,
	)
	return nil
}

// List retrieves workflows visible to the actor. Filters are scoped to the
// actor's team, or to workflows they own when they have no team.
func (s *Service) List(ctx context.Context, actor Actor, filter *WorkflowListFilter) ([]*Workflow, int64, error) {
	if filter == nil {
		filter = &WorkflowListFilter{}
	}

	scoped := *filter
	if actor.TeamID != "" {
		scoped.TeamID = &actor.TeamID
	} else {
		scoped.OwnerID = &actor.UserID
	}

	return s.repo.List(ctx, &scoped)
}

// SaveGeneration stores a generation audit record. Missing id and timestamp
// are filled in.
func (s *Service) SaveGeneration(ctx context.Context, record *GenerationRecord) error {
	if record == nil {
		return errors.NewValidationError("generation record is required")
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	if record.Mode == "" {
		record.Mode = "standard"
	}

	if err := validator.Validate(record); err != nil {
		return errors.NewValidationError(err.Error())
	}

	return s.repo.CreateGeneration(ctx, record)
}

// GetGeneration retrieves a generation record the actor can access.
func (s *Service) GetGeneration(ctx context.Context, actor Actor, id string) (*GenerationRecord, error) {
	record, err := s.repo.GetGenerationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NotFoundError("generation record")
	}

	if !actor.CanAccess(record.TeamID, record.UserID) {
		return nil, errors.NewForbiddenError("generation record access denied")
	}

	return record, nil
}

// PurgeGenerations deletes generation records older than the retention
// window and returns the number purged.
func (s *Service) PurgeGenerations(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, errors.NewValidationError("retention window must be positive")
	}

	cutoff := s.now().UTC().Add(-retention)
	purged, err := s.repo.DeleteGenerationsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		s.logger.InfoContext(ctx, "Purged generation records",
			"purged", purged,
			"cutoff", cutoff,
		)
	}
	return purged, nil
}
