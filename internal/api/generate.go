package api

import (
	"context"
	"net/http"
	"time"

	"chainreact/internal/common"
	"chainreact/internal/generation"
	"chainreact/internal/messaging"
	"chainreact/internal/workflows"
	"chainreact/pkg/errors"
)

// GenerateRequest is the body for both generate endpoints. Persist and Debug
// only apply to the synchronous endpoint; the worker decides both for async
// jobs.
type GenerateRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model,omitempty"`
	Strict  bool   `json:"strict,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
	Persist bool   `json:"persist,omitempty"`
}

// GenerateResponse is the synchronous generation payload. WorkflowID is set
// when the caller asked to persist the result.
type GenerateResponse struct {
	*generation.Result
	WorkflowID string `json:"workflowId,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	result, err := s.deps.Generator.Generate(r.Context(), req.Prompt, generation.Options{
		Model:  req.Model,
		Strict: req.Strict,
		Debug:  req.Debug,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := GenerateResponse{Result: result}

	if req.Persist {
		workflowID, err := s.persistGeneration(r.Context(), actor, req.Prompt, result)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.WorkflowID = workflowID
	}

	writeSuccess(w, r, http.StatusOK, resp)
}

func (s *Server) handleGenerateAsync(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Prompt == "" {
		writeError(w, r, errors.NewValidationError("prompt must not be empty"))
		return
	}
	if s.deps.Publisher == nil {
		writeError(w, r, errors.New(errors.ErrorTypeConfiguration, errors.CodeInvalidConfig,
			"async generation is not enabled"))
		return
	}

	actor, _ := ActorFromContext(r.Context())

	job := &messaging.GenerationJob{
		ID:          common.GenerateID(),
		Prompt:      req.Prompt,
		Model:       req.Model,
		Strict:      req.Strict,
		TeamID:      actor.TeamID,
		UserID:      actor.UserID,
		RequestedAt: time.Now().UTC(),
	}

	if err := s.deps.Publisher.PublishJob(r.Context(), job); err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Generation job queued",
		"job_id", job.ID,
		"user_id", actor.UserID,
	)

	writeSuccess(w, r, http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": "queued",
	})
}

// persistGeneration stores the generated workflow and its audit record, then
// emits the workflow.generated event. The workflow write is the only fatal
// step; a failed audit write or event publish is logged and the stored
// workflow id still returned.
func (s *Server) persistGeneration(ctx context.Context, actor workflows.Actor, prompt string, result *generation.Result) (string, error) {
	if s.deps.Workflows == nil {
		return "", errors.New(errors.ErrorTypeConfiguration, errors.CodeInvalidConfig,
			"workflow persistence is not enabled")
	}

	stored, err := s.deps.Workflows.Create(ctx, actor, workflows.NewFromGeneration(result))
	if err != nil {
		return "", err
	}

	record := workflows.RecordFromResult(result, prompt, actor)
	record.WorkflowID = &stored.ID
	if s.deps.Archiver != nil {
		record.DebugKey = s.deps.Archiver.Archive(ctx, prompt, result)
	}
	if err := s.deps.Workflows.SaveGeneration(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save generation record",
			"generation_id", result.ID,
			"error", err,
		)
	}

	s.publishGenerated(ctx, actor, result, stored.ID)

	return stored.ID, nil
}

func (s *Server) publishGenerated(ctx context.Context, actor workflows.Actor, result *generation.Result, workflowID string) {
	if s.deps.Publisher == nil {
		return
	}

	event := &messaging.WorkflowEvent{
		Type:         messaging.EventWorkflowGenerated,
		GenerationID: result.ID,
		WorkflowID:   workflowID,
		TeamID:       actor.TeamID,
		UserID:       actor.UserID,
		Model:        result.Model,
		Mode:         result.Mode,
		ErrorCount:   len(result.Errors),
	}
	if err := s.deps.Publisher.PublishEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish workflow event",
			"generation_id", result.ID,
			"error", err,
		)
	}
}
