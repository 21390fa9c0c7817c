package generation

import (
	"strings"

	"chainreact/internal/nodes"
)

// Scenario is one detected intent tag from the user prompt.
type Scenario string

const (
	ScenarioBug     Scenario = "bug"
	ScenarioSupport Scenario = "support"
	ScenarioUrgent  Scenario = "urgent"
	ScenarioFeature Scenario = "feature"
	ScenarioFAQ     Scenario = "faq"
)

// allScenarios lists every tag in deterministic order.
var allScenarios = []Scenario{ScenarioBug, ScenarioSupport, ScenarioUrgent, ScenarioFeature, ScenarioFAQ}

// defaultScenarios is used when the prompt matches nothing.
var defaultScenarios = []Scenario{ScenarioBug, ScenarioSupport, ScenarioUrgent}

var scenarioKeywords = map[Scenario][]string{
	ScenarioBug:     {"bug", "defect", "broken", "crash", "error"},
	ScenarioSupport: {"support", "question", "help", "inquiry"},
	ScenarioUrgent:  {"urgent", "emergency", "critical", "outage", "escalat"},
	ScenarioFeature: {"feature", "enhancement", "idea", "suggestion"},
	ScenarioFAQ:     {"faq", "knowledge base", "documentation", "how do i", "how-to"},
}

// ambiguityKeywords signal a prompt that wants every message type handled,
// expanding detection to all five scenarios.
var ambiguityKeywords = []string{
	"different types", "each type", "categorize", "figure out", "triage", "classify",
}

// webhookKeywords pull the workflow onto a generic webhook entry point.
var webhookKeywords = []string{"form", "submission", "submitted", "webhook"}

// Detection is the outcome of scanning one prompt.
type Detection struct {
	// Scenarios is the non-empty detected tag set in deterministic order.
	Scenarios []Scenario
	// ChatTrigger is set when the prompt names a provider with an
	// available message trigger; that trigger becomes the entry point and
	// four-category mode activates.
	ChatTrigger *nodes.NodeDefinition
	// ForceWebhook is set when the prompt mentions a form or submission
	// and no chat provider was detected. Never set together with
	// ChatTrigger; the chat provider wins.
	ForceWebhook bool
}

// FourCategoryMode reports whether the stricter four-category rule set
// applies to this detection.
func (d Detection) FourCategoryMode() bool {
	return d.ChatTrigger != nil
}

// Detect scans the prompt for scenario tags and structural overrides.
func Detect(prompt string, registry *nodes.Registry) Detection {
	lower := strings.ToLower(prompt)

	detection := Detection{Scenarios: detectScenarios(lower)}

	if trigger, ok := detectChatTrigger(lower, registry); ok {
		detection.ChatTrigger = &trigger
		return detection
	}

	for _, keyword := range webhookKeywords {
		if strings.Contains(lower, keyword) {
			detection.ForceWebhook = true
			break
		}
	}

	return detection
}

func detectScenarios(lower string) []Scenario {
	for _, keyword := range ambiguityKeywords {
		if strings.Contains(lower, keyword) {
			out := make([]Scenario, len(allScenarios))
			copy(out, allScenarios)
			return out
		}
	}

	var detected []Scenario
	for _, scenario := range allScenarios {
		for _, keyword := range scenarioKeywords[scenario] {
			if strings.Contains(lower, keyword) {
				detected = append(detected, scenario)
				break
			}
		}
	}

	if len(detected) == 0 {
		out := make([]Scenario, len(defaultScenarios))
		copy(out, defaultScenarios)
		return out
	}
	return detected
}

// detectChatTrigger matches the prompt against providers that have an
// available chat-message trigger in the registry. Providers whose trigger
// is still comingSoon never match, whatever the prompt says.
func detectChatTrigger(lower string, registry *nodes.Registry) (nodes.NodeDefinition, bool) {
	for _, def := range registry.Triggers(true) {
		if def.ProviderID == "" || !strings.HasSuffix(def.Type, "_trigger_new_message") {
			continue
		}
		if strings.Contains(lower, def.ProviderID) {
			return def, true
		}
	}
	return nodes.NodeDefinition{}, false
}
