package api

import (
	"net/http"
	"testing"
	"time"

	"chainreact/internal/config"
	"chainreact/internal/generation"
	"chainreact/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkflow(env *testEnv, id string, status workflows.Status) *workflows.Workflow {
	workflow := &workflows.Workflow{
		ID:      id,
		Name:    "Lead Capture",
		Status:  status,
		OwnerID: "service",
		Source:  workflows.SourceManual,
		Graph: &generation.GeneratedWorkflow{
			Name: "Lead Capture",
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	env.store.workflows[id] = workflow
	return workflow
}

func TestCreateWorkflow(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:        "Ticket Triage",
		Description: "Route new tickets by priority",
		Graph:       &generation.GeneratedWorkflow{Name: "Ticket Triage"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var created workflows.Workflow
	decodeData(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ticket Triage", created.Name)
	assert.Equal(t, workflows.StatusDraft, created.Status)
	assert.Equal(t, workflows.SourceManual, created.Source)
	assert.Equal(t, "service", created.OwnerID)

	assert.Len(t, env.store.workflows, 1)
}

func TestCreateWorkflowRequiresGraph(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name: "Ticket Triage",
	})
	requireErrorEnvelope(t, rec, http.StatusBadRequest, "validation")
}

func TestCreateWorkflowWithoutStore(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config, deps *Dependencies) {
		deps.Workflows = nil
	})

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:  "Ticket Triage",
		Graph: &generation.GeneratedWorkflow{Name: "Ticket Triage"},
	})
	requireErrorEnvelope(t, rec, http.StatusInternalServerError, "configuration")
}

func TestGetWorkflow(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows/wf-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got workflows.Workflow
	decodeData(t, rec, &got)
	assert.Equal(t, "wf-1", got.ID)
	assert.Equal(t, "Lead Capture", got.Name)
}

func TestGetWorkflowNotFound(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows/missing", nil)
	response := requireErrorEnvelope(t, rec, http.StatusNotFound, "not_found")
	assert.Equal(t, "resource_not_found", response.Error.Code)
}

func TestGetWorkflowForbiddenForForeignTenant(t *testing.T) {
	env := newTestServer(t, nil)
	env.store.workflows["wf-9"] = &workflows.Workflow{
		ID:      "wf-9",
		Name:    "Foreign",
		Status:  workflows.StatusDraft,
		TeamID:  "team-9",
		OwnerID: "alice",
		Graph:   &generation.GeneratedWorkflow{Name: "Foreign"},
	}

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows/wf-9", nil)
	requireErrorEnvelope(t, rec, http.StatusForbidden, "authorization")
}

func TestListWorkflows(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)
	seedWorkflow(env, "wf-2", workflows.StatusDraft)
	seedWorkflow(env, "wf-3", workflows.StatusActive)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []*workflows.Workflow
	response := decodeData(t, rec, &items)
	assert.Len(t, items, 3)

	meta, ok := response.Meta.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["page"])
	assert.EqualValues(t, 50, meta["page_size"])
	assert.EqualValues(t, 3, meta["total"])
}

func TestListWorkflowsFiltersByStatus(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)
	seedWorkflow(env, "wf-2", workflows.StatusActive)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows?status=active", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []*workflows.Workflow
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "wf-2", items[0].ID)
}

func TestListWorkflowsRejectsUnknownStatus(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows?status=bogus", nil)
	requireErrorEnvelope(t, rec, http.StatusBadRequest, "validation")
}

func TestListWorkflowsRejectsUnknownSource(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows?source=imported", nil)
	requireErrorEnvelope(t, rec, http.StatusBadRequest, "validation")
}

func TestListWorkflowsAppliesPagination(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/workflows?page=3&page_size=20&sort_by=name&sort_dir=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, env.store.lastFilter)
	assert.Equal(t, 20, env.store.lastFilter.Limit)
	assert.Equal(t, 40, env.store.lastFilter.Offset)
	assert.Equal(t, "name", env.store.lastFilter.SortBy)
	assert.Equal(t, "ASC", env.store.lastFilter.SortOrder)
}

func TestUpdateWorkflowFields(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	name := "Lead Capture v2"
	rec := doRequest(t, env.server, http.MethodPut, "/api/v1/workflows/wf-1", UpdateWorkflowRequest{
		Name: &name,
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var updated workflows.Workflow
	decodeData(t, rec, &updated)
	assert.Equal(t, "Lead Capture v2", updated.Name)
	assert.Equal(t, workflows.StatusDraft, updated.Status)
}

func TestUpdateWorkflowStatusTransition(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	active := workflows.StatusActive
	rec := doRequest(t, env.server, http.MethodPut, "/api/v1/workflows/wf-1", UpdateWorkflowRequest{
		Status: &active,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated workflows.Workflow
	decodeData(t, rec, &updated)
	assert.Equal(t, workflows.StatusActive, updated.Status)

	draft := workflows.StatusDraft
	rec = doRequest(t, env.server, http.MethodPut, "/api/v1/workflows/wf-1", UpdateWorkflowRequest{
		Status: &draft,
	})
	requireErrorEnvelope(t, rec, http.StatusConflict, "conflict")
}

func TestUpdateWorkflowFieldsAndStatusTogether(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	name := "Renamed"
	active := workflows.StatusActive
	rec := doRequest(t, env.server, http.MethodPut, "/api/v1/workflows/wf-1", UpdateWorkflowRequest{
		Name:   &name,
		Status: &active,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated workflows.Workflow
	decodeData(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, workflows.StatusActive, updated.Status)
}

func TestUpdateWorkflowRejectsEmptyPatch(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	rec := doRequest(t, env.server, http.MethodPut, "/api/v1/workflows/wf-1", UpdateWorkflowRequest{})
	response := requireErrorEnvelope(t, rec, http.StatusBadRequest, "validation")
	assert.Contains(t, response.Error.Message, "at least one field")
}

func TestDeleteWorkflow(t *testing.T) {
	env := newTestServer(t, nil)
	seedWorkflow(env, "wf-1", workflows.StatusDraft)

	rec := doRequest(t, env.server, http.MethodDelete, "/api/v1/workflows/wf-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, env.store.workflows)

	rec = doRequest(t, env.server, http.MethodDelete, "/api/v1/workflows/wf-1", nil)
	requireErrorEnvelope(t, rec, http.StatusNotFound, "not_found")
}

func TestGetGenerationRecord(t *testing.T) {
	env := newTestServer(t, nil)
	workflowID := "wf-1"
	env.store.records[sampleGenerationID] = &workflows.GenerationRecord{
		ID:         sampleGenerationID,
		WorkflowID: &workflowID,
		UserID:     "service",
		Prompt:     "When a form is submitted, create a CRM contact",
		Model:      "gpt-4.1",
		Mode:       "four_category",
		Status:     workflows.GenerationSucceeded,
		DurationMS: 1800,
		CreatedAt:  time.Now().UTC(),
	}

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/generations/"+sampleGenerationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record workflows.GenerationRecord
	decodeData(t, rec, &record)
	assert.Equal(t, sampleGenerationID, record.ID)
	assert.Equal(t, workflows.GenerationSucceeded, record.Status)
	require.NotNil(t, record.WorkflowID)
	assert.Equal(t, "wf-1", *record.WorkflowID)
}

func TestGetGenerationRecordNotFound(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/generations/missing", nil)
	requireErrorEnvelope(t, rec, http.StatusNotFound, "not_found")
}
