package generation

import (
	"fmt"
	"strings"

	"chainreact/internal/nodes"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
)

// Repairer deterministically patches model output toward schema and
// semantic compliance. Repair never mutates its input and is idempotent:
// repairing already-repaired output changes nothing and reports no errors.
type Repairer struct {
	registry *nodes.Registry
	logger   logger.Logger
}

// NewRepairer creates a repairer over the given registry.
func NewRepairer(registry *nodes.Registry, log logger.Logger) *Repairer {
	return &Repairer{registry: registry, logger: log}
}

// Repair returns a patched copy of the workflow, whether the patched copy
// passes semantic validation, and the list of structured errors describing
// what had to be dropped or synthesized. Silent fixes (substitutions,
// relabels, prepends, dedup) are not reported as errors.
func (r *Repairer) Repair(raw *GeneratedWorkflow, vctx Context) (*GeneratedWorkflow, bool, []ValidationError) {
	fixed := raw.Clone()
	var errs []ValidationError

	errs = append(errs, r.resolveNodes(fixed)...)
	errs = append(errs, r.repairChains(fixed, vctx)...)

	valid := true
	if validator, err := NewValidator(r.registry, vctx); err == nil {
		valid = len(validator.ValidateSemantics(fixed)) == 0
	}

	return fixed, valid, errs
}

// resolveNodes resolves every concrete node against the registry: unknown
// types are dropped with their connections, comingSoon types are swapped
// through the substitution table or dropped, and titles and provider ids
// are overwritten with the registry's canonical values.
func (r *Repairer) resolveNodes(w *GeneratedWorkflow) []ValidationError {
	var errs []ValidationError
	kept := make([]Node, 0, len(w.Nodes))
	dropped := make(map[string]bool)

	for i, node := range w.Nodes {
		if node.Data.Type == nodes.TypeAIAgent {
			kept = append(kept, node)
			continue
		}

		resolved, verr := r.resolveType(node.Data.Type)
		if verr != nil {
			verr.Rule = ruleRegistryMembership
			verr.NodeID = node.ID
			verr.Index = i
			verr.Message = fmt.Sprintf("node %d (%s) dropped: %s", i, node.ID, verr.Message)
			errs = append(errs, *verr)
			dropped[node.ID] = true
			r.logger.Debug("Dropped unresolvable node", "node_id", node.ID, "type", node.Data.Type)
			continue
		}

		if resolved.Type != node.Data.Type {
			r.logger.Debug("Substituted comingSoon node type",
				"node_id", node.ID, "from", node.Data.Type, "to", resolved.Type)
		}
		node.Data.Type = resolved.Type
		node.Data.Title = resolved.Title
		node.Data.ProviderID = resolved.ProviderID
		kept = append(kept, node)
	}

	w.Nodes = kept
	if len(dropped) > 0 {
		conns := make([]Connection, 0, len(w.Connections))
		for _, conn := range w.Connections {
			if dropped[conn.Source] || dropped[conn.Target] {
				continue
			}
			conns = append(conns, conn)
		}
		w.Connections = conns
	}
	return errs
}

// resolveType resolves a node type to an available registry definition,
// following the substitution table exactly one hop for comingSoon types.
// The returned ValidationError has Code and Message set; callers fill in
// position fields.
func (r *Repairer) resolveType(nodeType string) (nodes.NodeDefinition, *ValidationError) {
	def, err := r.registry.Get(nodeType)
	if err != nil {
		return nodes.NodeDefinition{}, &ValidationError{
			Code:     errors.CodeUnknownNodeType,
			Message:  fmt.Sprintf("unknown type %q", nodeType),
			NodeType: nodeType,
		}
	}
	if !def.ComingSoon {
		return def, nil
	}

	substitute, ok := nodes.SubstituteAvailable(nodeType)
	if ok {
		if subDef, err := r.registry.Get(substitute); err == nil && !subDef.ComingSoon {
			return subDef, nil
		}
	}
	return nodes.NodeDefinition{}, &ValidationError{
		Code:     errors.CodeNodeComingSoon,
		Message:  fmt.Sprintf("type %q is not yet available and has no substitute", nodeType),
		NodeType: nodeType,
	}
}

// repairChains runs the chain-level repair steps on the decision node:
// action resolution, per-category prepends, notification dedup, empty-chain
// pruning, and in four-category mode coverage synthesis plus reordering.
func (r *Repairer) repairChains(w *GeneratedWorkflow, vctx Context) []ValidationError {
	decision := w.FindDecision()
	if decision == nil {
		return nil
	}

	chains, err := DecodeChains(decision.Data.Config)
	if err != nil {
		return []ValidationError{{
			Rule:    ruleChainCount,
			Code:    errors.CodeInvalidWorkflow,
			Message: "decision node chains could not be decoded: " + err.Error(),
			NodeID:  decision.ID,
		}}
	}

	var errs []ValidationError

	kept := make([]Chain, 0, len(chains))
	for _, chain := range chains {
		actions, actionErrs := r.resolveChainActions(chain)
		errs = append(errs, actionErrs...)

		category := ClassifyChain(chain.Name, chain.Description)
		actions = r.applyCategoryPrepends(category, actions)
		actions = collapseConsecutiveNotifications(actions)

		if len(actions) == 0 {
			r.logger.Debug("Dropped empty chain", "chain", chain.Name)
			continue
		}
		chain.Actions = actions
		kept = append(kept, chain)
	}

	if vctx.RequireCategories {
		kept, errs = r.enforceCategoryCoverage(kept, errs)
	}

	SetChains(decision, kept)
	return errs
}

// resolveChainActions resolves each action of one chain against the
// registry, mapping legacy search aliases first.
func (r *Repairer) resolveChainActions(chain Chain) ([]ChainAction, []ValidationError) {
	var errs []ValidationError
	kept := make([]ChainAction, 0, len(chain.Actions))

	for i, action := range chain.Actions {
		action.Type = nodes.CanonicalType(action.Type)

		resolved, verr := r.resolveType(action.Type)
		if verr != nil {
			verr.Rule = ruleRegistryMembership
			verr.Chain = chain.Name
			verr.Index = i
			verr.Message = fmt.Sprintf("chain %q action %d dropped: %s", chain.Name, i, verr.Message)
			errs = append(errs, *verr)
			r.logger.Debug("Dropped unresolvable chain action", "chain", chain.Name, "type", action.Type)
			continue
		}

		action.Type = resolved.Type
		action.ProviderID = resolved.ProviderID
		action.Label = resolved.Title
		kept = append(kept, action)
	}

	return kept, errs
}

// applyCategoryPrepends injects the category's required actions when the
// chain does not satisfy its rule. Prepends run even on chains emptied by
// action resolution, re-seeding them with the category's fallbacks.
func (r *Repairer) applyCategoryPrepends(category Category, actions []ChainAction) []ChainAction {
	switch category {
	case CategoryBug:
		if !containsTicketCreation(actions) {
			actions = prependActions(actions,
				r.catalogAction(nodes.TypeTrelloCreateCard),
				r.catalogAction(nodes.TypeSlackSendMessage))
		}
	case CategorySupport:
		if !firstActionIsKnowledgeSearch(actions) {
			actions = prependActions(actions, r.catalogAction(nodes.TypeNotionSearchPages))
		}
	case CategoryUrgent:
		if !containsTicketCreation(actions) {
			ticket := r.catalogAction(nodes.TypeTrelloCreateCard)
			if firstActionIsImmediateAlert(actions) {
				// Slot the ticket behind the existing leading alert.
				rest := make([]ChainAction, len(actions[1:]))
				copy(rest, actions[1:])
				actions = append([]ChainAction{actions[0], ticket}, rest...)
			} else {
				actions = prependActions(actions, ticket)
			}
		}
		if !firstActionIsImmediateAlert(actions) {
			actions = prependActions(actions, r.catalogAction(nodes.TypeSlackSendMessage))
		}
	case CategoryFeature:
		if !containsStorageLog(actions) {
			actions = prependActions(actions, r.catalogAction(nodes.TypeAirtableCreateRecord))
		}
	}
	return actions
}

// enforceCategoryCoverage reduces the chain list to exactly the four
// canonical categories in fixed order. The first chain per category wins;
// extras and unclassified chains are dropped with an error each; a
// category with no chain gets a synthesized fallback from its template.
func (r *Repairer) enforceCategoryCoverage(chains []Chain, errs []ValidationError) ([]Chain, []ValidationError) {
	claimed := make(map[Category]*Chain, 4)
	for i := range chains {
		chain := &chains[i]
		category := ClassifyChain(chain.Name, chain.Description)
		if category == CategoryUnclassified {
			errs = append(errs, ValidationError{
				Rule:    ruleChainCount,
				Code:    errors.CodeChainCount,
				Message: fmt.Sprintf("chain %q dropped: does not match any category", chain.Name),
				Chain:   chain.Name,
			})
			continue
		}
		if claimed[category] != nil {
			errs = append(errs, ValidationError{
				Rule:     ruleChainCount,
				Code:     errors.CodeChainCount,
				Message:  fmt.Sprintf("chain %q dropped: category %s already covered by %q", chain.Name, category, claimed[category].Name),
				Chain:    chain.Name,
				Category: category,
			})
			continue
		}
		claimed[category] = chain
	}

	out := make([]Chain, 0, 4)
	for _, category := range CanonicalCategories() {
		if chain := claimed[category]; chain != nil {
			out = append(out, *chain)
			continue
		}
		synthesized := r.synthesizeChain(category)
		out = append(out, synthesized)
		errs = append(errs, ValidationError{
			Rule:     ruleCategoryCoverage,
			Code:     errors.CodeChainCoverage,
			Message:  fmt.Sprintf("no chain covered the %s category; synthesized %q", category, synthesized.Name),
			Category: category,
			Chain:    synthesized.Name,
		})
		r.logger.Debug("Synthesized fallback chain", "category", string(category))
	}
	return out, errs
}

// synthesizeChain builds the fallback chain for a category from its
// template, with canonical labels from the registry.
func (r *Repairer) synthesizeChain(category Category) Chain {
	template := chainTemplates[category]
	actions := make([]ChainAction, 0, len(template.actionTypes))
	for _, actionType := range template.actionTypes {
		actions = append(actions, r.catalogAction(actionType))
	}
	return Chain{
		ID:          "chain-" + strings.ToLower(string(category)),
		Name:        template.name,
		Description: template.description,
		Actions:     actions,
	}
}

// catalogAction builds a chain action with the registry's canonical title
// and provider for the type.
func (r *Repairer) catalogAction(actionType string) ChainAction {
	action := ChainAction{Type: actionType, AIConfigured: true}
	if def, err := r.registry.Get(actionType); err == nil {
		action.ProviderID = def.ProviderID
		action.Label = def.Title
	}
	return action
}

func prependActions(actions []ChainAction, prefix ...ChainAction) []ChainAction {
	out := make([]ChainAction, 0, len(prefix)+len(actions))
	out = append(out, prefix...)
	return append(out, actions...)
}

// collapseConsecutiveNotifications keeps the first of any run of identical
// terminal-notification actions.
func collapseConsecutiveNotifications(actions []ChainAction) []ChainAction {
	if len(actions) < 2 {
		return actions
	}
	out := make([]ChainAction, 0, len(actions))
	out = append(out, actions[0])
	for _, action := range actions[1:] {
		last := out[len(out)-1]
		if action.Type == last.Type && nodes.IsTerminalNotification(action.Type) {
			continue
		}
		out = append(out, action)
	}
	return out
}
