package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogShape(t *testing.T) {
	catalog := Catalog()

	t.Run("types are unique", func(t *testing.T) {
		seen := make(map[string]bool, len(catalog))
		for _, def := range catalog {
			assert.False(t, seen[def.Type], "duplicate type %s", def.Type)
			seen[def.Type] = true
		}
	})

	t.Run("triggers are flagged consistently", func(t *testing.T) {
		for _, def := range catalog {
			assert.Equal(t, def.Category == CategoryTrigger, def.IsTrigger,
				"%s category and isTrigger disagree", def.Type)
		}
	})

	t.Run("generic types have no provider", func(t *testing.T) {
		for _, nodeType := range []string{TypeWebhook, TypeSchedule, TypeAIAgent, TypeAddAction} {
			def := findDef(t, catalog, nodeType)
			assert.Empty(t, def.ProviderID, "%s should be generic", nodeType)
		}
	})

	t.Run("comingSoon flags", func(t *testing.T) {
		comingSoon := map[string]bool{
			TypeTeamsNewMessage:   true,
			TypeTeamsSendMessage:  true,
			TypeGitHubCreateIssue: true,
			TypeLinearCreateIssue: true,
		}
		for _, def := range catalog {
			assert.Equal(t, comingSoon[def.Type], def.ComingSoon, "comingSoon flag for %s", def.Type)
		}
	})

	t.Run("each call returns a fresh slice", func(t *testing.T) {
		first := Catalog()
		first[0].Title = "tampered"
		assert.NotEqual(t, "tampered", Catalog()[0].Title)
	})
}

func TestSemanticSets(t *testing.T) {
	t.Run("ticket creation", func(t *testing.T) {
		assert.True(t, IsTicketCreation(TypeGitHubCreateIssue))
		assert.True(t, IsTicketCreation(TypeTrelloCreateCard))
		assert.True(t, IsTicketCreation(TypeLinearCreateIssue))
		assert.False(t, IsTicketCreation(TypeSlackSendMessage))
	})

	t.Run("knowledge search", func(t *testing.T) {
		assert.True(t, IsKnowledgeSearch(TypeNotionSearchPages))
		assert.False(t, IsKnowledgeSearch(TypeNotionCreatePage))
	})

	t.Run("immediate alert", func(t *testing.T) {
		assert.True(t, IsImmediateAlert(TypeSlackSendMessage))
		assert.True(t, IsImmediateAlert(TypeDiscordSendMessage))
		assert.True(t, IsImmediateAlert(TypeGmailSendEmail))
		assert.False(t, IsImmediateAlert(TypeTeamsSendMessage))
	})

	t.Run("storage log", func(t *testing.T) {
		assert.True(t, IsStorageLog(TypeAirtableCreateRecord))
		assert.True(t, IsStorageLog(TypeGoogleSheetsAppendRow))
		assert.True(t, IsStorageLog(TypeNotionCreatePage))
		assert.False(t, IsStorageLog(TypeAirtableUpdateRecord))
	})

	t.Run("terminal notification includes teams", func(t *testing.T) {
		assert.True(t, IsTerminalNotification(TypeSlackSendMessage))
		assert.True(t, IsTerminalNotification(TypeDiscordSendMessage))
		assert.True(t, IsTerminalNotification(TypeTeamsSendMessage))
		assert.True(t, IsTerminalNotification(TypeGmailSendEmail))
		assert.False(t, IsTerminalNotification(TypeTrelloCreateCard))
	})
}

func TestCanonicalType(t *testing.T) {
	assert.Equal(t, TypeNotionSearchPages, CanonicalType("notion_action_search"))
	assert.Equal(t, TypeNotionSearchPages, CanonicalType("knowledge_base_search"))
	assert.Equal(t, TypeSlackSendMessage, CanonicalType(TypeSlackSendMessage))
	assert.Equal(t, "made_up_type", CanonicalType("made_up_type"))
}

func TestSubstituteAvailable(t *testing.T) {
	t.Run("github falls back to trello", func(t *testing.T) {
		substitute, ok := SubstituteAvailable(TypeGitHubCreateIssue)
		require.True(t, ok)
		assert.Equal(t, TypeTrelloCreateCard, substitute)
	})

	t.Run("substitute is itself available", func(t *testing.T) {
		substitute, ok := SubstituteAvailable(TypeGitHubCreateIssue)
		require.True(t, ok)
		def := findDef(t, Catalog(), substitute)
		assert.True(t, def.Available())
	})

	t.Run("no mapping for other comingSoon types", func(t *testing.T) {
		_, ok := SubstituteAvailable(TypeLinearCreateIssue)
		assert.False(t, ok)
		_, ok = SubstituteAvailable(TypeTeamsSendMessage)
		assert.False(t, ok)
	})
}

func findDef(t *testing.T, catalog []NodeDefinition, nodeType string) NodeDefinition {
	t.Helper()
	for _, def := range catalog {
		if def.Type == nodeType {
			return def
		}
	}
	t.Fatalf("type %s not in catalog", nodeType)
	return NodeDefinition{}
}
