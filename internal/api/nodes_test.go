package api

import (
	"net/http"
	"testing"

	"chainreact/internal/nodes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeListData struct {
	Nodes     []nodes.NodeDefinition `json:"nodes"`
	Total     int                    `json:"total"`
	Providers []string               `json:"providers"`
}

func TestListNodes(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data nodeListData
	decodeData(t, rec, &data)
	assert.Equal(t, 3, data.Total)
	assert.Len(t, data.Nodes, 3)
	assert.Equal(t, []string{"jira", "slack"}, data.Providers)
}

func TestListNodesFilters(t *testing.T) {
	env := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
		types []string
	}{
		{"triggers only", "?triggers=true", []string{"slack_trigger_new_message"}},
		{"actions only", "?actions=true", []string{"jira_action_create_issue", "slack_action_send_message"}},
		{"available only", "?available=true", []string{"slack_action_send_message", "slack_trigger_new_message"}},
		{"by provider", "?provider=slack", []string{"slack_action_send_message", "slack_trigger_new_message"}},
		{"by category", "?category=action", []string{"jira_action_create_issue", "slack_action_send_message"}},
		{"available actions", "?actions=true&available=true", []string{"slack_action_send_message"}},
		{"no matches", "?provider=notion", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes"+tc.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var data nodeListData
			decodeData(t, rec, &data)

			got := make([]string, 0, len(data.Nodes))
			for _, def := range data.Nodes {
				got = append(got, def.Type)
			}
			assert.Equal(t, tc.types, got)
			assert.Equal(t, len(tc.types), data.Total)
		})
	}
}

func TestGetNode(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes/slack_action_send_message", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var def nodes.NodeDefinition
	decodeData(t, rec, &def)
	assert.Equal(t, "slack_action_send_message", def.Type)
	assert.Equal(t, "Send Slack Message", def.Title)
	assert.Equal(t, "slack", def.ProviderID)
}

func TestGetNodeUnknownType(t *testing.T) {
	env := newTestServer(t, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/nodes/acme.doesNotExist", nil)
	response := requireErrorEnvelope(t, rec, http.StatusNotFound, "not_found")
	assert.Contains(t, response.Error.Message, "acme.doesNotExist")
}
