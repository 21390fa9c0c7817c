package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainreact/internal/nodes"
)

func TestDecodeChains(t *testing.T) {
	t.Run("raw model shape", func(t *testing.T) {
		var config map[string]interface{}
		doc := `{"model":"gpt-4o","chains":[{"id":"c1","name":"Bug Reports","actions":[{"type":"trello_action_create_card","aiConfigured":true}]}]}`
		require.NoError(t, json.Unmarshal([]byte(doc), &config))

		chains, err := DecodeChains(config)
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.Equal(t, "c1", chains[0].ID)
		assert.Equal(t, "Bug Reports", chains[0].Name)
		require.Len(t, chains[0].Actions, 1)
		assert.Equal(t, nodes.TypeTrelloCreateCard, chains[0].Actions[0].Type)
		assert.True(t, chains[0].Actions[0].AIConfigured)
	})

	t.Run("typed shape written back by the pipeline", func(t *testing.T) {
		config := map[string]interface{}{
			"chains": []Chain{{ID: "c1", Name: "Support Questions", Actions: []ChainAction{chainAction(nodes.TypeNotionSearchPages)}}},
		}

		chains, err := DecodeChains(config)
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.Equal(t, nodes.TypeNotionSearchPages, chains[0].Actions[0].Type)
	})

	t.Run("missing chains yields nil", func(t *testing.T) {
		chains, err := DecodeChains(map[string]interface{}{"model": "gpt-4o"})
		require.NoError(t, err)
		assert.Nil(t, chains)

		chains, err = DecodeChains(nil)
		require.NoError(t, err)
		assert.Nil(t, chains)
	})

	t.Run("unexpected shape errors", func(t *testing.T) {
		_, err := DecodeChains(map[string]interface{}{"chains": "not a list"})
		require.Error(t, err)
	})
}

func TestSetChainsRoundTrip(t *testing.T) {
	node := decisionNode(DecisionNodeID, nil)
	SetChains(&node, []Chain{{ID: "c1", Name: "Bug Reports", Actions: []ChainAction{chainAction(nodes.TypeTrelloCreateCard)}}})

	chains, err := DecodeChains(node.Data.Config)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "Bug Reports", chains[0].Name)
	assert.Equal(t, "gpt-4o", DecisionModel(&node))
}

func TestCloneIsDeep(t *testing.T) {
	original := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
		{ID: "c1", Name: "Bug Reports", Actions: []ChainAction{chainAction(nodes.TypeTrelloCreateCard)}},
	})

	clone := original.Clone()
	clone.Name = "Changed"
	clone.Nodes[0].Data.Type = "tampered"
	clone.Connections[0].Source = "tampered"
	SetChains(clone.FindDecision(), []Chain{{ID: "other", Name: "Other", Actions: []ChainAction{chainAction(nodes.TypeSlackSendMessage)}}})

	assert.Equal(t, "Test Workflow", original.Name)
	assert.Equal(t, nodes.TypeDiscordNewMessage, original.Nodes[0].Data.Type)
	assert.Equal(t, TriggerNodeID, original.Connections[0].Source)

	chains := decodedChains(t, original)
	require.Len(t, chains, 1)
	assert.Equal(t, "Bug Reports", chains[0].Name)

	assert.Nil(t, (*GeneratedWorkflow)(nil).Clone())
}

func TestGraphLookups(t *testing.T) {
	w := triageWorkflow(nodes.TypeWebhook, "", nil)

	trigger := w.FindTrigger()
	require.NotNil(t, trigger)
	assert.Equal(t, TriggerNodeID, trigger.ID)

	decision := w.FindDecision()
	require.NotNil(t, decision)
	assert.Equal(t, DecisionNodeID, decision.ID)

	assert.Equal(t, decision, w.NodeByID(DecisionNodeID))
	assert.Nil(t, w.NodeByID("missing"))

	assert.True(t, w.HasConnection(TriggerNodeID, DecisionNodeID))
	assert.False(t, w.HasConnection(DecisionNodeID, TriggerNodeID))
}
