package nodes

// Node type keys. Types follow the <provider>_<kind>_<name> convention;
// generic types carry no provider segment.
const (
	// Triggers
	TypeDiscordNewMessage = "discord_trigger_new_message"
	TypeSlackNewMessage   = "slack_trigger_new_message"
	TypeTeamsNewMessage   = "teams_trigger_new_message"
	TypeGmailNewEmail     = "gmail_trigger_new_email"
	TypeWebhook           = "webhook"
	TypeSchedule          = "schedule"

	// Logic and canvas affordances
	TypeAIAgent   = "ai_agent"
	TypeAddAction = "add_action"

	// Actions
	TypeDiscordSendMessage    = "discord_action_send_message"
	TypeSlackSendMessage      = "slack_action_send_message"
	TypeTeamsSendMessage      = "teams_action_send_message"
	TypeGmailSendEmail        = "gmail_action_send_email"
	TypeGitHubCreateIssue     = "github_action_create_issue"
	TypeTrelloCreateCard      = "trello_action_create_card"
	TypeLinearCreateIssue     = "linear_action_create_issue"
	TypeNotionSearchPages     = "notion_action_search_pages"
	TypeNotionCreatePage      = "notion_action_create_page"
	TypeNotionUpdatePage      = "notion_action_update_page"
	TypeAirtableCreateRecord  = "airtable_action_create_record"
	TypeAirtableUpdateRecord  = "airtable_action_update_record"
	TypeGoogleSheetsAppendRow = "google_sheets_action_append_row"
)

// Provider ids used by the catalog.
const (
	ProviderDiscord      = "discord"
	ProviderSlack        = "slack"
	ProviderTeams        = "teams"
	ProviderGmail        = "gmail"
	ProviderGitHub       = "github"
	ProviderTrello       = "trello"
	ProviderLinear       = "linear"
	ProviderNotion       = "notion"
	ProviderAirtable     = "airtable"
	ProviderGoogleSheets = "google-sheets"
)

// Catalog returns the ChainReact integration catalog. Each call builds a
// fresh slice so callers can never alias the table.
func Catalog() []NodeDefinition {
	return []NodeDefinition{
		{
			Type:        TypeDiscordNewMessage,
			Title:       "New Discord Message",
			ProviderID:  ProviderDiscord,
			Category:    CategoryTrigger,
			IsTrigger:   true,
			Description: "Fires when a new message is posted in a Discord channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Channel to watch", Example: "#support"},
			},
			OutputSchema: []Field{
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "The checkout page is broken"},
				{Name: "author", Type: FieldTypeString, Description: "Display name of the sender", Example: "jamie"},
				{Name: "channel", Type: FieldTypeString, Description: "Channel the message was posted in", Example: "#support"},
			},
		},
		{
			Type:        TypeSlackNewMessage,
			Title:       "New Slack Message",
			ProviderID:  ProviderSlack,
			Category:    CategoryTrigger,
			IsTrigger:   true,
			Description: "Fires when a new message is posted in a Slack channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Channel to watch", Example: "#help-desk"},
			},
			OutputSchema: []Field{
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "How do I reset my password?"},
				{Name: "user", Type: FieldTypeString, Description: "Slack user id of the sender", Example: "U024BE7LH"},
				{Name: "channel", Type: FieldTypeString, Description: "Channel the message was posted in", Example: "#help-desk"},
			},
		},
		{
			Type:        TypeTeamsNewMessage,
			Title:       "New Teams Message",
			ProviderID:  ProviderTeams,
			Category:    CategoryTrigger,
			IsTrigger:   true,
			ComingSoon:  true,
			Description: "Fires when a new message is posted in a Teams channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Channel to watch", Example: "General"},
			},
			OutputSchema: []Field{
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "Printer on floor 3 is down again"},
				{Name: "from", Type: FieldTypeString, Description: "Display name of the sender", Example: "Priya Shah"},
			},
		},
		{
			Type:        TypeGmailNewEmail,
			Title:       "New Email",
			ProviderID:  ProviderGmail,
			Category:    CategoryTrigger,
			IsTrigger:   true,
			Description: "Fires when a new email arrives in the connected inbox",
			InputSchema: []Field{
				{Name: "label", Type: FieldTypeString, Description: "Only match mail carrying this label", Example: "support"},
			},
			OutputSchema: []Field{
				{Name: "from", Type: FieldTypeString, Description: "Sender address", Example: "customer@example.com"},
				{Name: "subject", Type: FieldTypeString, Description: "Email subject line", Example: "Crash when exporting reports"},
				{Name: "body", Type: FieldTypeString, Description: "Plain-text body", Example: "Every time I export, the app crashes."},
			},
		},
		{
			Type:        TypeWebhook,
			Title:       "Webhook",
			Category:    CategoryTrigger,
			IsTrigger:   true,
			Description: "Fires when an HTTP request hits the workflow's endpoint",
			InputSchema: []Field{
				{Name: "path", Type: FieldTypeString, Description: "Endpoint path", Example: "/hooks/incident"},
				{Name: "method", Type: FieldTypeString, Description: "Accepted HTTP method", Example: "POST"},
			},
			OutputSchema: []Field{
				{Name: "body", Type: FieldTypeObject, Description: "Parsed request body"},
				{Name: "headers", Type: FieldTypeObject, Description: "Request headers"},
			},
		},
		{
			Type:        TypeSchedule,
			Title:       "Schedule",
			Category:    CategoryTrigger,
			IsTrigger:   true,
			Description: "Fires on a fixed schedule",
			InputSchema: []Field{
				{Name: "cron", Type: FieldTypeString, Description: "Cron expression", Example: "0 9 * * 1-5"},
			},
			OutputSchema: []Field{
				{Name: "firedAt", Type: FieldTypeString, Description: "RFC 3339 timestamp of the tick", Example: "2025-06-02T09:00:00Z"},
			},
		},
		{
			Type:        TypeAIAgent,
			Title:       "AI Agent",
			Category:    CategoryLogic,
			Description: "Classifies incoming events and routes each one to the matching action chain",
			InputSchema: []Field{
				{Name: "model", Type: FieldTypeString, Description: "Model used for classification", Example: "gpt-4o"},
				{Name: "chains", Type: FieldTypeArray, Description: "Action chains, one per category"},
			},
			OutputSchema: []Field{
				{Name: "category", Type: FieldTypeString, Description: "Chosen category label", Example: "Bug"},
			},
		},
		{
			Type:        TypeAddAction,
			Title:       "Add Action",
			Category:    CategoryUI,
			Description: "Canvas placeholder appended to the end of each chain",
		},
		{
			Type:        TypeDiscordSendMessage,
			Title:       "Send Discord Message",
			ProviderID:  ProviderDiscord,
			Category:    CategoryAction,
			Description: "Posts a message to a Discord channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Target channel", Example: "#alerts"},
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "New bug report filed"},
			},
			OutputSchema: []Field{
				{Name: "messageId", Type: FieldTypeString, Description: "Id of the posted message", Example: "1146837"},
			},
		},
		{
			Type:        TypeSlackSendMessage,
			Title:       "Send Slack Message",
			ProviderID:  ProviderSlack,
			Category:    CategoryAction,
			Description: "Posts a message to a Slack channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Target channel", Example: "#eng-alerts"},
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "Ticket created for the checkout bug"},
			},
			OutputSchema: []Field{
				{Name: "ts", Type: FieldTypeString, Description: "Timestamp id of the posted message", Example: "1717320000.000100"},
			},
		},
		{
			Type:        TypeTeamsSendMessage,
			Title:       "Send Teams Message",
			ProviderID:  ProviderTeams,
			Category:    CategoryAction,
			ComingSoon:  true,
			Description: "Posts a message to a Teams channel",
			InputSchema: []Field{
				{Name: "channel", Type: FieldTypeString, Description: "Target channel", Example: "General"},
				{Name: "message", Type: FieldTypeString, Description: "Message text", Example: "Incident acknowledged"},
			},
			OutputSchema: []Field{
				{Name: "messageId", Type: FieldTypeString, Description: "Id of the posted message"},
			},
		},
		{
			Type:        TypeGmailSendEmail,
			Title:       "Send Email",
			ProviderID:  ProviderGmail,
			Category:    CategoryAction,
			Description: "Sends an email from the connected account",
			InputSchema: []Field{
				{Name: "to", Type: FieldTypeString, Description: "Recipient address", Example: "customer@example.com"},
				{Name: "subject", Type: FieldTypeString, Description: "Subject line", Example: "Re: Crash when exporting reports"},
				{Name: "body", Type: FieldTypeString, Description: "Message body", Example: "Thanks for the report, we are on it."},
			},
			OutputSchema: []Field{
				{Name: "messageId", Type: FieldTypeString, Description: "Id of the sent message", Example: "18ade4f2b9c1"},
			},
		},
		{
			Type:        TypeGitHubCreateIssue,
			Title:       "Create GitHub Issue",
			ProviderID:  ProviderGitHub,
			Category:    CategoryAction,
			ComingSoon:  true,
			Description: "Opens an issue in a GitHub repository",
			InputSchema: []Field{
				{Name: "repository", Type: FieldTypeString, Description: "Target repository", Example: "acme/storefront"},
				{Name: "title", Type: FieldTypeString, Description: "Issue title", Example: "Checkout page crashes on submit"},
				{Name: "body", Type: FieldTypeString, Description: "Issue body"},
			},
			OutputSchema: []Field{
				{Name: "number", Type: FieldTypeNumber, Description: "Issue number", Example: 482},
				{Name: "url", Type: FieldTypeString, Description: "Issue URL", Example: "https://github.com/acme/storefront/issues/482"},
			},
		},
		{
			Type:        TypeTrelloCreateCard,
			Title:       "Create Trello Card",
			ProviderID:  ProviderTrello,
			Category:    CategoryAction,
			Description: "Creates a card on a Trello board",
			InputSchema: []Field{
				{Name: "board", Type: FieldTypeString, Description: "Target board", Example: "Engineering"},
				{Name: "list", Type: FieldTypeString, Description: "Target list", Example: "Inbox"},
				{Name: "name", Type: FieldTypeString, Description: "Card name", Example: "Checkout page crashes on submit"},
				{Name: "description", Type: FieldTypeString, Description: "Card description"},
			},
			OutputSchema: []Field{
				{Name: "cardId", Type: FieldTypeString, Description: "Id of the created card", Example: "6650f1d2"},
				{Name: "url", Type: FieldTypeString, Description: "Card URL", Example: "https://trello.com/c/6650f1d2"},
			},
		},
		{
			Type:        TypeLinearCreateIssue,
			Title:       "Create Linear Issue",
			ProviderID:  ProviderLinear,
			Category:    CategoryAction,
			ComingSoon:  true,
			Description: "Creates an issue in a Linear team",
			InputSchema: []Field{
				{Name: "team", Type: FieldTypeString, Description: "Target team", Example: "ENG"},
				{Name: "title", Type: FieldTypeString, Description: "Issue title", Example: "Checkout page crashes on submit"},
				{Name: "description", Type: FieldTypeString, Description: "Issue description"},
			},
			OutputSchema: []Field{
				{Name: "identifier", Type: FieldTypeString, Description: "Issue identifier", Example: "ENG-1042"},
				{Name: "url", Type: FieldTypeString, Description: "Issue URL"},
			},
		},
		{
			Type:        TypeNotionSearchPages,
			Title:       "Search Notion Pages",
			ProviderID:  ProviderNotion,
			Category:    CategoryAction,
			Description: "Searches the connected Notion workspace for matching pages",
			InputSchema: []Field{
				{Name: "query", Type: FieldTypeString, Description: "Search query", Example: "password reset"},
			},
			OutputSchema: []Field{
				{Name: "results", Type: FieldTypeArray, Description: "Matching pages, best match first"},
			},
		},
		{
			Type:        TypeNotionCreatePage,
			Title:       "Create Notion Page",
			ProviderID:  ProviderNotion,
			Category:    CategoryAction,
			Description: "Creates a page in the connected Notion workspace",
			InputSchema: []Field{
				{Name: "parent", Type: FieldTypeString, Description: "Parent page or database", Example: "Feedback"},
				{Name: "title", Type: FieldTypeString, Description: "Page title", Example: "Feature request: dark mode"},
				{Name: "content", Type: FieldTypeString, Description: "Page content"},
			},
			OutputSchema: []Field{
				{Name: "pageId", Type: FieldTypeString, Description: "Id of the created page"},
				{Name: "url", Type: FieldTypeString, Description: "Page URL"},
			},
		},
		{
			Type:        TypeNotionUpdatePage,
			Title:       "Update Notion Page",
			ProviderID:  ProviderNotion,
			Category:    CategoryAction,
			Description: "Appends content to an existing Notion page",
			InputSchema: []Field{
				{Name: "pageId", Type: FieldTypeString, Description: "Page to update"},
				{Name: "content", Type: FieldTypeString, Description: "Content to append"},
			},
			OutputSchema: []Field{
				{Name: "pageId", Type: FieldTypeString, Description: "Id of the updated page"},
			},
		},
		{
			Type:        TypeAirtableCreateRecord,
			Title:       "Create Airtable Record",
			ProviderID:  ProviderAirtable,
			Category:    CategoryAction,
			Description: "Creates a record in an Airtable table",
			InputSchema: []Field{
				{Name: "base", Type: FieldTypeString, Description: "Target base", Example: "Product"},
				{Name: "table", Type: FieldTypeString, Description: "Target table", Example: "Feature Requests"},
				{Name: "fields", Type: FieldTypeObject, Description: "Column values for the new record"},
			},
			OutputSchema: []Field{
				{Name: "recordId", Type: FieldTypeString, Description: "Id of the created record", Example: "recA1B2C3"},
			},
		},
		{
			Type:        TypeAirtableUpdateRecord,
			Title:       "Update Airtable Record",
			ProviderID:  ProviderAirtable,
			Category:    CategoryAction,
			Description: "Updates an existing record in an Airtable table",
			InputSchema: []Field{
				{Name: "base", Type: FieldTypeString, Description: "Target base", Example: "Product"},
				{Name: "table", Type: FieldTypeString, Description: "Target table", Example: "Feature Requests"},
				{Name: "recordId", Type: FieldTypeString, Description: "Record to update", Example: "recA1B2C3"},
				{Name: "fields", Type: FieldTypeObject, Description: "Column values to change"},
			},
			OutputSchema: []Field{
				{Name: "recordId", Type: FieldTypeString, Description: "Id of the updated record"},
			},
		},
		{
			Type:        TypeGoogleSheetsAppendRow,
			Title:       "Append Sheet Row",
			ProviderID:  ProviderGoogleSheets,
			Category:    CategoryAction,
			Description: "Appends a row to a Google Sheets spreadsheet",
			InputSchema: []Field{
				{Name: "spreadsheetId", Type: FieldTypeString, Description: "Target spreadsheet"},
				{Name: "sheet", Type: FieldTypeString, Description: "Sheet name", Example: "Requests"},
				{Name: "values", Type: FieldTypeArray, Description: "Cell values for the new row"},
			},
			OutputSchema: []Field{
				{Name: "updatedRange", Type: FieldTypeString, Description: "Range the row was written to", Example: "Requests!A42:D42"},
			},
		},
	}
}

// Semantic type sets. Validation, repair, and the policy appliers reason
// about actions through these roles rather than hard-coding types inline.

var ticketCreationTypes = map[string]bool{
	TypeGitHubCreateIssue: true,
	TypeTrelloCreateCard:  true,
	TypeLinearCreateIssue: true,
}

var knowledgeSearchTypes = map[string]bool{
	TypeNotionSearchPages: true,
}

var immediateAlertTypes = map[string]bool{
	TypeSlackSendMessage:   true,
	TypeDiscordSendMessage: true,
	TypeGmailSendEmail:     true,
}

var storageLogTypes = map[string]bool{
	TypeAirtableCreateRecord:  true,
	TypeGoogleSheetsAppendRow: true,
	TypeNotionCreatePage:      true,
}

var terminalNotificationTypes = map[string]bool{
	TypeSlackSendMessage:   true,
	TypeDiscordSendMessage: true,
	TypeTeamsSendMessage:   true,
	TypeGmailSendEmail:     true,
}

// IsTicketCreation reports whether the type files a ticket in an external
// tracker.
func IsTicketCreation(nodeType string) bool { return ticketCreationTypes[nodeType] }

// IsKnowledgeSearch reports whether the type searches a knowledge base.
func IsKnowledgeSearch(nodeType string) bool { return knowledgeSearchTypes[nodeType] }

// IsImmediateAlert reports whether the type notifies a human right away.
func IsImmediateAlert(nodeType string) bool { return immediateAlertTypes[nodeType] }

// IsStorageLog reports whether the type records data in a storage backend.
func IsStorageLog(nodeType string) bool { return storageLogTypes[nodeType] }

// IsTerminalNotification reports whether the type is a chat or email send,
// the family deduplicated when two land back to back in a chain.
func IsTerminalNotification(nodeType string) bool { return terminalNotificationTypes[nodeType] }

// Legacy search aliases left behind by older model outputs, mapped onto the
// supported search action.
var legacySearchAliases = map[string]string{
	"notion_action_search":  TypeNotionSearchPages,
	"knowledge_base_search": TypeNotionSearchPages,
}

// CanonicalType maps legacy aliases onto their supported replacement and
// returns every other type unchanged.
func CanonicalType(nodeType string) string {
	if canonical, ok := legacySearchAliases[nodeType]; ok {
		return canonical
	}
	return nodeType
}

// Substitutions for comingSoon actions. The lookup is a single hop: the
// replacement must itself be available.
var comingSoonSubstitutes = map[string]string{
	TypeGitHubCreateIssue: TypeTrelloCreateCard,
}

// SubstituteAvailable returns the available stand-in for a comingSoon type,
// if one exists.
func SubstituteAvailable(nodeType string) (string, bool) {
	substitute, ok := comingSoonSubstitutes[nodeType]
	return substitute, ok
}
