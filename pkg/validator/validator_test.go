package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3"`
	Model  string `json:"model" validate:"omitempty,oneof=gpt-4o gpt-4o-mini"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := Validate(sampleRequest{Prompt: "create a discord workflow", Model: "gpt-4o"})
		assert.NoError(t, err)
	})

	t.Run("missing required field uses json name", func(t *testing.T) {
		err := Validate(sampleRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt is required")
	})

	t.Run("oneof violation", func(t *testing.T) {
		err := Validate(sampleRequest{Prompt: "workflow", Model: "claude"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model must be one of")
	})
}

func TestValidateNodeType(t *testing.T) {
	valid := []string{
		"webhook",
		"discord_trigger_new_message",
		"notion_action_search_pages",
		"google_sheets_action_append_row",
		"ai_agent",
	}
	for _, nt := range valid {
		t.Run(nt, func(t *testing.T) {
			assert.NoError(t, ValidateVar(nt, "node_type"))
		})
	}

	invalid := []string{
		"",
		"Discord_Trigger",
		"slack__action",
		"_webhook",
		"webhook_",
		"legacy-nodes.slack",
	}
	for _, nt := range invalid {
		t.Run("invalid/"+nt, func(t *testing.T) {
			assert.Error(t, ValidateVar(nt, "node_type"))
		})
	}
}

func TestValidateWorkflowName(t *testing.T) {
	assert.NoError(t, ValidateVar("Customer Feedback Triage", "workflow_name"))
	assert.NoError(t, ValidateVar("bug-intake_v2", "workflow_name"))
	assert.NoError(t, ValidateVar("Bugs & Feature Requests (v2)", "workflow_name"))
	assert.Error(t, ValidateVar("", "workflow_name"))
	assert.Error(t, ValidateVar("bad/name", "workflow_name"))
}

func TestValidatorStruct(t *testing.T) {
	v := New()
	require.NotNil(t, v)
	assert.Error(t, v.Struct(sampleRequest{}))
}
