package api

import (
	"fmt"
	"net/http"
	"strconv"

	"chainreact/internal/common"
	"chainreact/internal/generation"
	"chainreact/internal/workflows"
	"chainreact/pkg/errors"

	"github.com/go-chi/chi/v5"
)

// CreateWorkflowRequest is the body for POST /workflows. Created workflows
// start as drafts with a manual source.
type CreateWorkflowRequest struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	Graph       *generation.GeneratedWorkflow `json:"graph"`
}

// UpdateWorkflowRequest is the body for PUT /workflows/{id}. Absent fields
// keep their stored value; Status drives a lifecycle transition.
type UpdateWorkflowRequest struct {
	Name        *string                       `json:"name,omitempty"`
	Description *string                       `json:"description,omitempty"`
	Graph       *generation.GeneratedWorkflow `json:"graph,omitempty"`
	Status      *workflows.Status             `json:"status,omitempty"`
}

func (s *Server) workflowService() (WorkflowService, error) {
	if s.deps.Workflows == nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, errors.CodeInvalidConfig,
			"workflow persistence is not enabled")
	}
	return s.deps.Workflows, nil
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	query := r.URL.Query()

	page := common.PaginationRequest{
		Page:     queryInt(query.Get("page"), 1),
		PageSize: queryInt(query.Get("page_size"), common.DefaultPageSize),
		SortBy:   query.Get("sort_by"),
		SortDir:  query.Get("sort_dir"),
	}

	filter := &workflows.WorkflowListFilter{
		Limit:     page.GetPageSize(),
		Offset:    page.GetOffset(),
		SortBy:    page.SortBy,
		SortOrder: page.GetSortDirection(),
	}

	if v := query.Get("status"); v != "" {
		status := workflows.Status(v)
		if !status.Valid() {
			writeError(w, r, errors.NewValidationError(fmt.Sprintf("unknown workflow status %q", v)))
			return
		}
		filter.Status = &status
	}
	if v := query.Get("source"); v != "" {
		source := workflows.Source(v)
		if source != workflows.SourceAI && source != workflows.SourceManual {
			writeError(w, r, errors.NewValidationError(fmt.Sprintf("unknown workflow source %q", v)))
			return
		}
		filter.Source = &source
	}
	if v := query.Get("search"); v != "" {
		filter.Search = &v
	}

	items, total, err := svc.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePage(w, r, http.StatusOK, items, common.NewPaginationResponse(page.Page, page.GetPageSize(), total))
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateWorkflowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	created, err := svc.Create(r.Context(), actor, &workflows.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Source:      workflows.SourceManual,
		Graph:       req.Graph,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	workflow, err := svc.GetByID(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, workflow)
}

func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateWorkflowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	fieldsChanged := req.Name != nil || req.Description != nil || req.Graph != nil
	if !fieldsChanged && req.Status == nil {
		writeError(w, r, errors.NewValidationError("update body must set at least one field"))
		return
	}

	var updated *workflows.Workflow
	if fieldsChanged {
		current, err := svc.GetByID(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		patch := &workflows.Workflow{
			ID:          id,
			Name:        current.Name,
			Description: current.Description,
		}
		if req.Name != nil {
			patch.Name = *req.Name
		}
		if req.Description != nil {
			patch.Description = *req.Description
		}
		if req.Graph != nil {
			patch.Graph = req.Graph
		}

		updated, err = svc.Update(r.Context(), actor, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if req.Status != nil {
		updated, err = svc.UpdateStatus(r.Context(), actor, id, *req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeSuccess(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	if err := svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
