package generation

import (
	"strings"

	"chainreact/internal/nodes"
)

// Category is the closed set of chain categories recognized by the
// four-category support-triage mode.
type Category string

const (
	CategoryBug          Category = "Bug"
	CategorySupport      Category = "Support"
	CategoryUrgent       Category = "Urgent"
	CategoryFeature      Category = "Feature"
	CategoryUnclassified Category = "Unclassified"
)

// canonicalCategories is the fixed chain order in four-category mode.
var canonicalCategories = []Category{CategoryBug, CategorySupport, CategoryUrgent, CategoryFeature}

// CanonicalCategories returns the four categories in their fixed order.
func CanonicalCategories() []Category {
	out := make([]Category, len(canonicalCategories))
	copy(out, canonicalCategories)
	return out
}

// classifyPriority orders the keyword checks. Urgent is matched first so
// "urgent bug" chains land in Urgent, not Bug.
var classifyPriority = []Category{CategoryUrgent, CategoryBug, CategorySupport, CategoryFeature}

var categoryKeywords = map[Category][]string{
	CategoryUrgent:  {"urgent", "emergency", "critical", "outage", "escalat"},
	CategoryBug:     {"bug", "ticket", "defect", "error", "broken", "crash"},
	CategorySupport: {"support", "question", "help", "faq", "how-to", "inquiry"},
	CategoryFeature: {"feature", "request", "idea", "enhancement", "suggestion"},
}

// ClassifyChain assigns a category by keyword-matching the chain's name and
// description. First match in priority order wins; no match yields
// CategoryUnclassified.
func ClassifyChain(name, description string) Category {
	text := strings.ToLower(name + " " + description)
	for _, category := range classifyPriority {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(text, keyword) {
				return category
			}
		}
	}
	return CategoryUnclassified
}

// categoryRuleViolations checks a classified chain's actions against its
// category's required-action rule. Each unmet condition is one violation
// message; an empty result means the chain satisfies its category.
func categoryRuleViolations(category Category, actions []ChainAction) []string {
	var violations []string
	switch category {
	case CategoryBug:
		if !containsTicketCreation(actions) {
			violations = append(violations, "bug chain needs at least one ticket-creation action")
		}
	case CategorySupport:
		if !firstActionIsKnowledgeSearch(actions) {
			violations = append(violations, "support chain must start with a knowledge-search action")
		}
	case CategoryUrgent:
		if !firstActionIsImmediateAlert(actions) {
			violations = append(violations, "urgent chain must start with an immediate-alert action")
		}
		if !containsTicketCreation(actions) {
			violations = append(violations, "urgent chain needs at least one ticket-creation action")
		}
	case CategoryFeature:
		if !containsStorageLog(actions) {
			violations = append(violations, "feature chain needs at least one storage or logging action")
		}
	}
	return violations
}

func containsTicketCreation(actions []ChainAction) bool {
	for _, action := range actions {
		if nodes.IsTicketCreation(action.Type) {
			return true
		}
	}
	return false
}

func containsStorageLog(actions []ChainAction) bool {
	for _, action := range actions {
		if nodes.IsStorageLog(action.Type) {
			return true
		}
	}
	return false
}

func firstActionIsKnowledgeSearch(actions []ChainAction) bool {
	return len(actions) > 0 && nodes.IsKnowledgeSearch(actions[0].Type)
}

func firstActionIsImmediateAlert(actions []ChainAction) bool {
	return len(actions) > 0 && nodes.IsImmediateAlert(actions[0].Type)
}

// chainTemplate describes the fallback chain synthesized for a category
// that ended up with no matching chain in four-category mode.
type chainTemplate struct {
	name        string
	description string
	actionTypes []string
}

var chainTemplates = map[Category]chainTemplate{
	CategoryBug: {
		name:        "Bug Reports",
		description: "Files a ticket for each reported bug and notifies the team",
		actionTypes: []string{nodes.TypeTrelloCreateCard, nodes.TypeSlackSendMessage},
	},
	CategorySupport: {
		name:        "Support Questions",
		description: "Searches the knowledge base and emails the answer back",
		actionTypes: []string{nodes.TypeNotionSearchPages, nodes.TypeGmailSendEmail},
	},
	CategoryUrgent: {
		name:        "Urgent Issues",
		description: "Alerts the team immediately and files a ticket",
		actionTypes: []string{nodes.TypeSlackSendMessage, nodes.TypeTrelloCreateCard},
	},
	CategoryFeature: {
		name:        "Feature Requests",
		description: "Records the request and notifies the team",
		actionTypes: []string{nodes.TypeAirtableCreateRecord, nodes.TypeSlackSendMessage},
	},
}
