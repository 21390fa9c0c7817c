package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainreact/internal/nodes"
)

func TestNotificationRequested(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"Notify me when a bug comes in", true},
		{"Send a notification to the channel", true},
		{"Always alert the team", true},
		{"Keep the team posted on progress", true},
		{"keep everyone POSTED", true},
		{"The posted schedule should keep running", false},
		{"File tickets quietly", false},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationRequested(tt.prompt))
		})
	}
}

func TestUpdateNotCreateRequested(t *testing.T) {
	assert.True(t, UpdateNotCreateRequested("Update existing pages in Notion"))
	assert.True(t, UpdateNotCreateRequested("append to the existing record"))
	assert.True(t, UpdateNotCreateRequested("instead of creating a new card"))
	assert.True(t, UpdateNotCreateRequested("modify the airtable row"))
	assert.False(t, UpdateNotCreateRequested("create a fresh page per request"))
}

func TestApplyNotification(t *testing.T) {
	applier := NewPolicyApplier(testRegistry(t))

	t.Run("follow-ups inserted after each primary action", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Bug Reports", Actions: []ChainAction{
				chainAction(nodes.TypeTrelloCreateCard),
				chainAction(nodes.TypeNotionCreatePage),
			}},
		})

		out := applier.ApplyNotification(w)

		chains := decodedChains(t, out)
		assert.Equal(t, []string{
			nodes.TypeTrelloCreateCard,
			nodes.TypeGmailSendEmail,
			nodes.TypeSlackSendMessage,
			nodes.TypeNotionCreatePage,
			nodes.TypeGmailSendEmail,
			nodes.TypeSlackSendMessage,
		}, actionTypes(chains[0]))

		inserted := chains[0].Actions[1]
		assert.Equal(t, "gmail", inserted.ProviderID)
		assert.Equal(t, "Send Email", inserted.Label)
		assert.True(t, inserted.AIConfigured)
	})

	t.Run("notification actions get no follow-ups", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Urgent Issues", Actions: []ChainAction{
				chainAction(nodes.TypeSlackSendMessage),
				chainAction(nodes.TypeGmailSendEmail),
			}},
		})

		out := applier.ApplyNotification(w)
		chains := decodedChains(t, out)
		assert.Equal(t, []string{nodes.TypeSlackSendMessage, nodes.TypeGmailSendEmail}, actionTypes(chains[0]))
	})

	t.Run("idempotent", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Bug Reports", Actions: []ChainAction{
				chainAction(nodes.TypeTrelloCreateCard),
				chainAction(nodes.TypeAirtableCreateRecord),
			}},
		})

		once := applier.ApplyNotification(w)
		twice := applier.ApplyNotification(once)

		assert.Equal(t, decodedChains(t, once), decodedChains(t, twice))
	})

	t.Run("input untouched", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Bug Reports", Actions: []ChainAction{chainAction(nodes.TypeTrelloCreateCard)}},
		})

		_ = applier.ApplyNotification(w)

		chains := decodedChains(t, w)
		assert.Equal(t, []string{nodes.TypeTrelloCreateCard}, actionTypes(chains[0]))
	})
}

func TestApplyUpdateNotCreate(t *testing.T) {
	applier := NewPolicyApplier(testRegistry(t))

	t.Run("creates rewritten and search prepended", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Feature Requests", Actions: []ChainAction{
				{Type: nodes.TypeAirtableCreateRecord, ProviderID: "airtable", AIConfigured: false},
				chainAction(nodes.TypeSlackSendMessage),
			}},
		})

		out := applier.ApplyUpdateNotCreate(w)

		chains := decodedChains(t, out)
		assert.Equal(t, []string{
			nodes.TypeNotionSearchPages,
			nodes.TypeAirtableUpdateRecord,
			nodes.TypeSlackSendMessage,
		}, actionTypes(chains[0]))

		rewritten := chains[0].Actions[1]
		assert.False(t, rewritten.AIConfigured)
		assert.Equal(t, "airtable", rewritten.ProviderID)
	})

	t.Run("notion create becomes update", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Support Questions", Actions: []ChainAction{
				chainAction(nodes.TypeNotionSearchPages),
				chainAction(nodes.TypeNotionCreatePage),
			}},
		})

		out := applier.ApplyUpdateNotCreate(w)

		chains := decodedChains(t, out)
		assert.Equal(t, []string{nodes.TypeNotionSearchPages, nodes.TypeNotionUpdatePage}, actionTypes(chains[0]))
	})

	t.Run("idempotent", func(t *testing.T) {
		w := triageWorkflow(nodes.TypeDiscordNewMessage, "discord", []Chain{
			{ID: "c1", Name: "Feature Requests", Actions: []ChainAction{chainAction(nodes.TypeAirtableCreateRecord)}},
		})

		once := applier.ApplyUpdateNotCreate(w)
		twice := applier.ApplyUpdateNotCreate(once)

		require.Equal(t, decodedChains(t, once), decodedChains(t, twice))
	})
}
