package generation

import (
	"strings"

	"chainreact/internal/nodes"
)

// notificationKeywords trigger the notification policy.
var notificationKeywords = []string{"notify", "notification", "alert the team"}

// updateKeywords trigger the update-not-create policy.
var updateKeywords = []string{"update existing", "existing record", "instead of creating", "modify the"}

// NotificationRequested reports whether the prompt asks for the
// notification policy. "keep ... posted" phrasing counts too.
func NotificationRequested(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, keyword := range notificationKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	if keep := strings.Index(lower, "keep"); keep >= 0 && strings.Contains(lower[keep:], "posted") {
		return true
	}
	return false
}

// UpdateNotCreateRequested reports whether the prompt implies editing an
// existing resource rather than creating a new one.
func UpdateNotCreateRequested(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, keyword := range updateKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// PolicyApplier rewrites decision-node chains according to prompt-triggered
// policies. Both appliers work on a deep copy and are strictly additive or
// substitutive; they never remove unrelated actions.
type PolicyApplier struct {
	registry *nodes.Registry
}

// NewPolicyApplier creates an applier over the given registry.
func NewPolicyApplier(registry *nodes.Registry) *PolicyApplier {
	return &PolicyApplier{registry: registry}
}

// ApplyNotification inserts an email send followed by a chat send after
// every primary action in every chain. An action that is itself one of the
// two follow-up types gets no follow-ups, and a primary action already
// followed by a follow-up type is left alone, which makes the policy
// idempotent on already-notified chains.
func (p *PolicyApplier) ApplyNotification(w *GeneratedWorkflow) *GeneratedWorkflow {
	return p.rewriteChains(w, func(chain Chain) []ChainAction {
		out := make([]ChainAction, 0, len(chain.Actions)*3)
		for i, action := range chain.Actions {
			out = append(out, action)
			if isNotificationFollowUp(action.Type) {
				continue
			}
			if i+1 < len(chain.Actions) && isNotificationFollowUp(chain.Actions[i+1].Type) {
				continue
			}
			out = append(out,
				p.catalogAction(nodes.TypeGmailSendEmail),
				p.catalogAction(nodes.TypeSlackSendMessage))
		}
		return out
	})
}

// ApplyUpdateNotCreate prepends a knowledge search to chains lacking one
// and rewrites create actions into their update counterparts.
func (p *PolicyApplier) ApplyUpdateNotCreate(w *GeneratedWorkflow) *GeneratedWorkflow {
	rewrites := map[string]string{
		nodes.TypeNotionCreatePage:     nodes.TypeNotionUpdatePage,
		nodes.TypeAirtableCreateRecord: nodes.TypeAirtableUpdateRecord,
	}

	return p.rewriteChains(w, func(chain Chain) []ChainAction {
		out := make([]ChainAction, 0, len(chain.Actions)+1)
		if !containsKnowledgeSearch(chain.Actions) {
			out = append(out, p.catalogAction(nodes.TypeNotionSearchPages))
		}
		for _, action := range chain.Actions {
			if target, ok := rewrites[action.Type]; ok {
				rewritten := p.catalogAction(target)
				rewritten.AIConfigured = action.AIConfigured
				out = append(out, rewritten)
				continue
			}
			out = append(out, action)
		}
		return out
	})
}

// rewriteChains applies one chain transform to each decision-node chain of
// a cloned workflow.
func (p *PolicyApplier) rewriteChains(w *GeneratedWorkflow, transform func(Chain) []ChainAction) *GeneratedWorkflow {
	out := w.Clone()

	decision := out.FindDecision()
	if decision == nil {
		return out
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil || len(chains) == 0 {
		return out
	}

	for i := range chains {
		chains[i].Actions = transform(chains[i])
	}
	SetChains(decision, chains)
	return out
}

func (p *PolicyApplier) catalogAction(actionType string) ChainAction {
	action := ChainAction{Type: actionType, AIConfigured: true}
	if def, err := p.registry.Get(actionType); err == nil {
		action.ProviderID = def.ProviderID
		action.Label = def.Title
	}
	return action
}

func isNotificationFollowUp(actionType string) bool {
	return actionType == nodes.TypeGmailSendEmail || actionType == nodes.TypeSlackSendMessage
}

func containsKnowledgeSearch(actions []ChainAction) bool {
	for _, action := range actions {
		if nodes.IsKnowledgeSearch(action.Type) {
			return true
		}
	}
	return false
}
