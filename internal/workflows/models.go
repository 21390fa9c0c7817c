package workflows

import (
	"time"

	"chainreact/internal/generation"
)

// Status represents the lifecycle state of a stored workflow.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a workflow may move from s to next.
// Archived is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusArchived
	case StatusActive:
		return next == StatusPaused || next == StatusArchived
	case StatusPaused:
		return next == StatusActive || next == StatusArchived
	}
	return false
}

// Source records how a workflow came to exist.
type Source string

const (
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// Workflow is a stored workflow with its generated graph.
type Workflow struct {
	ID          string                        `json:"id" db:"id"`
	Name        string                        `json:"name" db:"name" validate:"required,workflow_name"`
	Description string                        `json:"description" db:"description" validate:"max=2000"`
	Status      Status                        `json:"status" db:"status" validate:"required,oneof=draft active paused archived"`
	TeamID      string                        `json:"team_id" db:"team_id"`
	OwnerID     string                        `json:"owner_id" db:"owner_id" validate:"required"`
	Source      Source                        `json:"source" db:"source" validate:"required,oneof=ai manual"`
	Graph       *generation.GeneratedWorkflow `json:"graph" db:"graph" validate:"required"`
	CreatedAt   time.Time                     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time                    `json:"deleted_at,omitempty" db:"deleted_at"`
}

// GenerationStatus is the terminal state of one generation attempt.
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationInvalid   GenerationStatus = "invalid"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationRecord is the audit trail row for one generation attempt. Records
// are retention-swept by the worker, so nothing here is load bearing for the
// stored workflow itself.
type GenerationRecord struct {
	ID               string                       `json:"id" db:"id"`
	WorkflowID       *string                      `json:"workflow_id,omitempty" db:"workflow_id"`
	TeamID           string                       `json:"team_id" db:"team_id"`
	UserID           string                       `json:"user_id" db:"user_id"`
	Prompt           string                       `json:"prompt" db:"prompt" validate:"required"`
	Model            string                       `json:"model" db:"model"`
	Mode             string                       `json:"mode" db:"mode"`
	Status           GenerationStatus             `json:"status" db:"status" validate:"required,oneof=succeeded invalid failed"`
	ErrorCount       int                          `json:"error_count" db:"error_count"`
	RepairErrors     []generation.ValidationError `json:"repair_errors" db:"repair_errors"`
	PromptTokens     int                          `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int                          `json:"completion_tokens" db:"completion_tokens"`
	DurationMS       int64                        `json:"duration_ms" db:"duration_ms"`
	DebugKey         string                       `json:"debug_key,omitempty" db:"debug_key"`
	CreatedAt        time.Time                    `json:"created_at" db:"created_at"`
}

// WorkflowListFilter represents filters for listing workflows
type WorkflowListFilter struct {
	TeamID    *string `json:"team_id,omitempty"`
	OwnerID   *string `json:"owner_id,omitempty"`
	Status    *Status `json:"status,omitempty"`
	Source    *Source `json:"source,omitempty"`
	Search    *string `json:"search,omitempty"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}
