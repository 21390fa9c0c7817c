package generation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"chainreact/internal/nodes"
)

// Fixed node ids the user message instructs the model to use, so downstream
// stages can address the trigger and decision node reliably.
const (
	TriggerNodeID  = "trigger"
	DecisionNodeID = "ai-agent"
)

// Synthesizer builds the system instruction document from the live
// registry. The enumerated lists are regenerated on every call, never
// cached, so they always reflect current node availability.
type Synthesizer struct {
	registry *nodes.Registry
}

// NewSynthesizer creates a synthesizer over the given registry.
func NewSynthesizer(registry *nodes.Registry) *Synthesizer {
	return &Synthesizer{registry: registry}
}

// BuildSystemPrompt renders the full instruction document: the
// decision-node mental model, the provider-grouped catalog of available
// triggers and actions, a worked example in the exact output shape, and
// the hard constraints.
func (s *Synthesizer) BuildSystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a workflow designer for an automation platform. ")
	b.WriteString("A workflow starts at exactly one trigger node, flows into exactly one decision node ")
	b.WriteString("(type \"ai_agent\"), and the decision node routes each incoming event into one of its ")
	b.WriteString("named chains. A chain is an ordered list of actions handling one kind of event. ")
	b.WriteString("You output a single JSON object describing the workflow; you never output prose.\n\n")

	s.writeCatalog(&b)
	s.writeExample(&b)
	s.writeConstraints(&b)

	return b.String()
}

// writeCatalog enumerates available triggers and actions grouped by
// provider. Providers are sorted alphabetically with generic types last;
// types are sorted within each provider.
func (s *Synthesizer) writeCatalog(b *strings.Builder) {
	b.WriteString("## Available triggers\n\n")
	writeGrouped(b, s.registry.Triggers(true))

	b.WriteString("\n## Available actions\n\n")
	writeGrouped(b, s.registry.Actions(true))
	b.WriteString("\n")
}

func writeGrouped(b *strings.Builder, defs []nodes.NodeDefinition) {
	byProvider := make(map[string][]nodes.NodeDefinition)
	var providers []string
	var generic []nodes.NodeDefinition

	for _, def := range defs {
		if def.ProviderID == "" {
			generic = append(generic, def)
			continue
		}
		if _, seen := byProvider[def.ProviderID]; !seen {
			providers = append(providers, def.ProviderID)
		}
		byProvider[def.ProviderID] = append(byProvider[def.ProviderID], def)
	}
	sort.Strings(providers)

	for _, provider := range providers {
		group := byProvider[provider]
		sort.Slice(group, func(i, j int) bool { return group[i].Type < group[j].Type })
		fmt.Fprintf(b, "%s:\n", provider)
		for _, def := range group {
			fmt.Fprintf(b, "- `%s` (%s): %s\n", def.Type, def.Title, def.Description)
		}
	}

	if len(generic) > 0 {
		sort.Slice(generic, func(i, j int) bool { return generic[i].Type < generic[j].Type })
		b.WriteString("generic:\n")
		for _, def := range generic {
			fmt.Fprintf(b, "- `%s` (%s): %s\n", def.Type, def.Title, def.Description)
		}
	}
}

// writeExample renders one fully worked workflow in the output shape. The
// example is built as a real model value and marshalled, so it can never
// drift from the JSON the pipeline expects back.
func (s *Synthesizer) writeExample(b *strings.Builder) {
	example := GeneratedWorkflow{
		Name:        "Discord Support Triage",
		Description: "Routes new Discord messages to the right handling chain",
		Nodes: []Node{
			{
				ID:       TriggerNodeID,
				Position: Position{X: 400, Y: 80},
				Data: NodeData{
					Type:       nodes.TypeDiscordNewMessage,
					Title:      "New Discord Message",
					IsTrigger:  true,
					ProviderID: "discord",
					Config:     map[string]interface{}{"channel": "#support"},
				},
			},
			{
				ID:       DecisionNodeID,
				Position: Position{X: 400, Y: 300},
				Data: NodeData{
					Type:  nodes.TypeAIAgent,
					Title: "AI Agent",
					Config: map[string]interface{}{
						"model": "gpt-4o",
						"chains": []Chain{
							{
								ID:          "chain-bug",
								Name:        "Bug Reports",
								Description: "Messages describing something broken",
								Actions: []ChainAction{
									{Type: nodes.TypeTrelloCreateCard, ProviderID: "trello", AIConfigured: true, Label: "Create Trello Card"},
									{Type: nodes.TypeSlackSendMessage, ProviderID: "slack", AIConfigured: true, Label: "Send Slack Message"},
								},
							},
							{
								ID:          "chain-support",
								Name:        "Support Questions",
								Description: "Questions needing an answer",
								Actions: []ChainAction{
									{Type: nodes.TypeNotionSearchPages, ProviderID: "notion", AIConfigured: true, Label: "Search Notion Pages"},
									{Type: nodes.TypeGmailSendEmail, ProviderID: "gmail", AIConfigured: true, Label: "Send Email"},
								},
							},
						},
					},
				},
			},
		},
		Connections: []Connection{
			{ID: "e-trigger-ai-agent", Source: TriggerNodeID, Target: DecisionNodeID},
		},
	}

	b.WriteString("## Example output\n\n```json\n")
	if buf, err := json.MarshalIndent(example, "", "  "); err == nil {
		b.Write(buf)
	}
	b.WriteString("\n```\n\n")
}

func (s *Synthesizer) writeConstraints(b *strings.Builder) {
	b.WriteString("## Hard constraints\n\n")
	b.WriteString("- Exactly one trigger node and exactly one decision node (type \"ai_agent\").\n")
	b.WriteString("- Every node type and every chain action type must come from the lists above.\n")
	b.WriteString("- When asked to handle multiple message categories, the decision node must have exactly 4 chains, one per category, each with 2 to 6 actions.\n")
	b.WriteString("- A bug chain must create a ticket. A support chain must start by searching the knowledge base. ")
	b.WriteString("An urgent chain must start with an immediate alert and also create a ticket. ")
	b.WriteString("A feature chain must record the request in a storage backend.\n")
	b.WriteString("- A chain must never consist solely of one notification action.\n")
	b.WriteString("- Connect the trigger node to the decision node.\n")
}
