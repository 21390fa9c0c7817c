package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
)

func TestNewCatalogRegistry(t *testing.T) {
	registry := NewCatalogRegistry(logger.New("test"))

	assert.Equal(t, len(Catalog()), registry.Len())

	t.Run("contains every catalog type", func(t *testing.T) {
		for _, def := range Catalog() {
			assert.True(t, registry.Has(def.Type), "missing %s", def.Type)
		}
	})
}

func TestRegistryRegister(t *testing.T) {
	log := logger.New("test")

	t.Run("first registration wins", func(t *testing.T) {
		registry := NewRegistry(log)
		require.NoError(t, registry.Register(NodeDefinition{
			Type:     TypeSlackSendMessage,
			Title:    "Send Slack Message",
			Category: CategoryAction,
		}))

		err := registry.Register(NodeDefinition{
			Type:     TypeSlackSendMessage,
			Title:    "Renamed",
			Category: CategoryAction,
		})
		require.NoError(t, err)

		def, err := registry.Get(TypeSlackSendMessage)
		require.NoError(t, err)
		assert.Equal(t, "Send Slack Message", def.Title)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("re-registering the catalog is a no-op", func(t *testing.T) {
		registry := NewCatalogRegistry(log)
		before := registry.Len()

		require.NoError(t, registry.Register(Catalog()...))
		assert.Equal(t, before, registry.Len())
	})

	t.Run("rejects definition without a type", func(t *testing.T) {
		registry := NewRegistry(log)
		err := registry.Register(NodeDefinition{Title: "Nameless", Category: CategoryAction})
		assert.Error(t, err)
	})

	t.Run("rejects definition without a title", func(t *testing.T) {
		registry := NewRegistry(log)
		err := registry.Register(NodeDefinition{Type: "mystery_action", Category: CategoryAction})
		assert.Error(t, err)
	})
}

func TestRegistryGet(t *testing.T) {
	registry := NewCatalogRegistry(logger.New("test"))

	t.Run("returns the definition", func(t *testing.T) {
		def, err := registry.Get(TypeTrelloCreateCard)
		require.NoError(t, err)
		assert.Equal(t, "Create Trello Card", def.Title)
		assert.Equal(t, ProviderTrello, def.ProviderID)
		assert.Equal(t, CategoryAction, def.Category)
		assert.False(t, def.IsTrigger)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := registry.Get("fax_action_send_page")
		require.Error(t, err)

		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.CodeUnknownNodeType, appErr.Code)
	})

	t.Run("returned copy is detached from the table", func(t *testing.T) {
		def, err := registry.Get(TypeGmailSendEmail)
		require.NoError(t, err)
		require.NotEmpty(t, def.InputSchema)

		def.Title = "tampered"
		def.InputSchema[0].Name = "tampered"

		fresh, err := registry.Get(TypeGmailSendEmail)
		require.NoError(t, err)
		assert.Equal(t, "Send Email", fresh.Title)
		assert.Equal(t, "to", fresh.InputSchema[0].Name)
	})
}

func TestRegistryList(t *testing.T) {
	registry := NewCatalogRegistry(logger.New("test"))

	t.Run("zero filter returns everything sorted by type", func(t *testing.T) {
		defs := registry.List(Filter{})
		require.Len(t, defs, len(Catalog()))
		for i := 1; i < len(defs); i++ {
			assert.Less(t, defs[i-1].Type, defs[i].Type)
		}
	})

	t.Run("filter by provider", func(t *testing.T) {
		defs := registry.List(Filter{ProviderID: ProviderNotion})
		require.Len(t, defs, 3)
		for _, def := range defs {
			assert.Equal(t, ProviderNotion, def.ProviderID)
		}
	})

	t.Run("filter by category", func(t *testing.T) {
		defs := registry.List(Filter{Category: CategoryLogic})
		require.Len(t, defs, 1)
		assert.Equal(t, TypeAIAgent, defs[0].Type)
	})

	t.Run("available only excludes comingSoon", func(t *testing.T) {
		defs := registry.List(Filter{AvailableOnly: true})
		for _, def := range defs {
			assert.False(t, def.ComingSoon, "%s should be excluded", def.Type)
		}
	})
}

func TestRegistryTriggersAndActions(t *testing.T) {
	registry := NewCatalogRegistry(logger.New("test"))

	t.Run("triggers", func(t *testing.T) {
		triggers := registry.Triggers(false)
		assert.Len(t, triggers, 6)
		for _, def := range triggers {
			assert.True(t, def.IsTrigger)
			assert.Equal(t, CategoryTrigger, def.Category)
		}
	})

	t.Run("available triggers exclude teams", func(t *testing.T) {
		triggers := registry.Triggers(true)
		assert.Len(t, triggers, 5)
		for _, def := range triggers {
			assert.NotEqual(t, TypeTeamsNewMessage, def.Type)
		}
	})

	t.Run("actions never include logic or ui entries", func(t *testing.T) {
		for _, def := range registry.Actions(false) {
			assert.NotEqual(t, TypeAIAgent, def.Type)
			assert.NotEqual(t, TypeAddAction, def.Type)
		}
	})

	t.Run("available actions exclude comingSoon integrations", func(t *testing.T) {
		actions := registry.Actions(true)
		assert.Len(t, actions, 10)

		types := make(map[string]bool, len(actions))
		for _, def := range actions {
			types[def.Type] = true
		}
		assert.False(t, types[TypeGitHubCreateIssue])
		assert.False(t, types[TypeLinearCreateIssue])
		assert.False(t, types[TypeTeamsSendMessage])
	})
}

func TestRegistryProviders(t *testing.T) {
	registry := NewCatalogRegistry(logger.New("test"))

	providers := registry.Providers()
	assert.Equal(t, []string{
		ProviderAirtable,
		ProviderDiscord,
		ProviderGitHub,
		ProviderGmail,
		ProviderGoogleSheets,
		ProviderLinear,
		ProviderNotion,
		ProviderSlack,
		ProviderTeams,
		ProviderTrello,
	}, providers)
}
