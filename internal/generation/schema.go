package generation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"chainreact/internal/nodes"
	"chainreact/pkg/errors"
)

// Context parameterizes validation for one generation request. The same
// context shapes the JSON-schema document handed to the model.
type Context struct {
	// ChatProvider is the provider id of the preferred chat trigger, when
	// the prompt named one.
	ChatProvider string
	// ForceWebhook pins the workflow to the generic webhook trigger.
	ForceWebhook bool
	// RequireCategories activates the stricter four-category rule set.
	RequireCategories bool
}

// Named semantic rules. Every violation carries the name of the rule that
// produced it so the repair pass and callers can act on it.
const (
	ruleSchema             = "schema"
	ruleTriggerCount       = "ruleTriggerCount"
	ruleDecisionCount      = "ruleDecisionCount"
	ruleRegistryMembership = "ruleRegistryMembership"
	ruleChainCount         = "ruleChainCount"
	ruleCategoryCoverage   = "ruleCategoryCoverage"
	ruleCategoryActions    = "ruleCategoryActions"
)

// ValidationError is one structured violation, specific enough for the
// repair pass to act on.
type ValidationError struct {
	Rule     string           `json:"rule"`
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
	NodeID   string           `json:"nodeId,omitempty"`
	NodeType string           `json:"nodeType,omitempty"`
	Chain    string           `json:"chain,omitempty"`
	Category Category         `json:"category,omitempty"`
	Index    int              `json:"index"`
}

// Validator checks generated workflows in two phases: a structural
// JSON-schema pass over the raw model output, and an ordered list of named
// semantic rules over the decoded graph. Validation never mutates its
// input.
type Validator struct {
	registry *nodes.Registry
	ctx      Context
	doc      json.RawMessage
	schema   *gojsonschema.Schema
}

// NewValidator compiles the structural schema for the given context.
func NewValidator(registry *nodes.Registry, vctx Context) (*Validator, error) {
	doc, err := json.Marshal(buildSchemaDocument(vctx))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"building workflow schema document")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"compiling workflow schema")
	}

	return &Validator{
		registry: registry,
		ctx:      vctx,
		doc:      doc,
		schema:   schema,
	}, nil
}

// SchemaDocument returns the JSON-schema document. The identical document
// constrains the model's structured output.
func (v *Validator) SchemaDocument() json.RawMessage {
	out := make(json.RawMessage, len(v.doc))
	copy(out, v.doc)
	return out
}

// ValidateStructure runs the schema over raw model output.
func (v *Validator) ValidateStructure(raw []byte) []ValidationError {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []ValidationError{{
			Rule:    ruleSchema,
			Code:    errors.CodeInvalidWorkflow,
			Message: "response is not valid JSON: " + err.Error(),
		}}
	}

	var out []ValidationError
	for _, resErr := range result.Errors() {
		out = append(out, ValidationError{
			Rule:    ruleSchema,
			Code:    errors.CodeInvalidWorkflow,
			Message: fmt.Sprintf("%s: %s", resErr.Field(), resErr.Description()),
		})
	}
	return out
}

type semanticRule struct {
	name  string
	check func(*GeneratedWorkflow) []ValidationError
}

func (v *Validator) semanticRules() []semanticRule {
	rules := []semanticRule{
		{ruleTriggerCount, v.checkTriggerCount},
		{ruleDecisionCount, v.checkDecisionCount},
		{ruleRegistryMembership, v.checkRegistryMembership},
	}
	if v.ctx.RequireCategories {
		rules = append(rules,
			semanticRule{ruleChainCount, v.checkChainCount},
			semanticRule{ruleCategoryCoverage, v.checkCategoryCoverage},
		)
	}
	rules = append(rules, semanticRule{ruleCategoryActions, v.checkCategoryActions})
	return rules
}

// ValidateSemantics runs the ordered semantic rules over a decoded graph.
func (v *Validator) ValidateSemantics(w *GeneratedWorkflow) []ValidationError {
	var out []ValidationError
	for _, rule := range v.semanticRules() {
		violations := rule.check(w)
		for i := range violations {
			violations[i].Rule = rule.name
		}
		out = append(out, violations...)
	}
	return out
}

func (v *Validator) checkTriggerCount(w *GeneratedWorkflow) []ValidationError {
	count := 0
	for _, node := range w.Nodes {
		if node.Data.IsTrigger {
			count++
		}
	}
	if count == 1 {
		return nil
	}
	return []ValidationError{{
		Code:    errors.CodeTriggerCardinality,
		Message: fmt.Sprintf("workflow has %d trigger nodes, expected exactly 1", count),
	}}
}

func (v *Validator) checkDecisionCount(w *GeneratedWorkflow) []ValidationError {
	count := 0
	for _, node := range w.Nodes {
		if node.Data.Type == nodes.TypeAIAgent {
			count++
		}
	}
	if count == 1 {
		return nil
	}
	return []ValidationError{{
		Code:    errors.CodeDecisionCardinality,
		Message: fmt.Sprintf("workflow has %d decision nodes, expected exactly 1", count),
	}}
}

func (v *Validator) checkRegistryMembership(w *GeneratedWorkflow) []ValidationError {
	var out []ValidationError
	for i, node := range w.Nodes {
		if node.Data.Type == nodes.TypeAIAgent {
			continue
		}
		def, err := v.registry.Get(node.Data.Type)
		if err != nil {
			out = append(out, ValidationError{
				Code:     errors.CodeUnknownNodeType,
				Message:  fmt.Sprintf("node %d references unknown type %q", i, node.Data.Type),
				NodeID:   node.ID,
				NodeType: node.Data.Type,
				Index:    i,
			})
			continue
		}
		if def.ComingSoon {
			out = append(out, ValidationError{
				Code:     errors.CodeNodeComingSoon,
				Message:  fmt.Sprintf("node %d uses %q, which is not yet available", i, node.Data.Type),
				NodeID:   node.ID,
				NodeType: node.Data.Type,
				Index:    i,
			})
		}
	}
	return out
}

func (v *Validator) checkChainCount(w *GeneratedWorkflow) []ValidationError {
	decision := w.FindDecision()
	if decision == nil {
		return nil
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil {
		return []ValidationError{{
			Code:    errors.CodeInvalidWorkflow,
			Message: "decision node chains could not be decoded: " + err.Error(),
			NodeID:  decision.ID,
		}}
	}

	var out []ValidationError
	if len(chains) != 4 {
		out = append(out, ValidationError{
			Code:    errors.CodeChainCount,
			Message: fmt.Sprintf("decision node has %d chains, expected exactly 4", len(chains)),
			NodeID:  decision.ID,
		})
	}
	for _, chain := range chains {
		if len(chain.Actions) < 2 || len(chain.Actions) > 6 {
			out = append(out, ValidationError{
				Code:    errors.CodeChainBounds,
				Message: fmt.Sprintf("chain %q has %d actions, expected between 2 and 6", chain.Name, len(chain.Actions)),
				Chain:   chain.Name,
			})
		}
		for i, action := range chain.Actions {
			if v.registry.Has(action.Type) {
				continue
			}
			out = append(out, ValidationError{
				Code:     errors.CodeUnknownNodeType,
				Message:  fmt.Sprintf("chain %q action %d references unknown type %q", chain.Name, i, action.Type),
				NodeType: action.Type,
				Chain:    chain.Name,
				Index:    i,
			})
		}
	}
	return out
}

func (v *Validator) checkCategoryCoverage(w *GeneratedWorkflow) []ValidationError {
	decision := w.FindDecision()
	if decision == nil {
		return nil
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil {
		return nil
	}

	covered := make(map[Category]bool)
	for _, chain := range chains {
		covered[ClassifyChain(chain.Name, chain.Description)] = true
	}

	var out []ValidationError
	for _, category := range CanonicalCategories() {
		if !covered[category] {
			out = append(out, ValidationError{
				Code:     errors.CodeChainCoverage,
				Message:  fmt.Sprintf("no chain covers the %s category", category),
				Category: category,
			})
		}
	}
	return out
}

func (v *Validator) checkCategoryActions(w *GeneratedWorkflow) []ValidationError {
	decision := w.FindDecision()
	if decision == nil {
		return nil
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil {
		return nil
	}

	var out []ValidationError
	for _, chain := range chains {
		category := ClassifyChain(chain.Name, chain.Description)
		if category == CategoryUnclassified {
			continue
		}
		for _, violation := range categoryRuleViolations(category, chain.Actions) {
			out = append(out, ValidationError{
				Code:     errors.CodeCategoryRule,
				Message:  fmt.Sprintf("chain %q: %s", chain.Name, violation),
				Chain:    chain.Name,
				Category: category,
			})
		}
	}
	return out
}

// buildSchemaDocument constructs the structural JSON schema for the given
// context. Context hints surface as description text so a schema-constrained
// model sees them alongside the shape.
func buildSchemaDocument(vctx Context) map[string]interface{} {
	triggerHint := "The workflow's nodes."
	if vctx.ChatProvider != "" {
		triggerHint = fmt.Sprintf("The workflow's nodes. The trigger must be the %s message trigger.", vctx.ChatProvider)
	} else if vctx.ForceWebhook {
		triggerHint = "The workflow's nodes. The trigger must be the generic webhook trigger."
	}

	actionSchema := map[string]interface{}{
		"type":     "object",
		"required": []string{"type"},
		"properties": map[string]interface{}{
			"type":         map[string]interface{}{"type": "string"},
			"providerId":   map[string]interface{}{"type": "string"},
			"aiConfigured": map[string]interface{}{"type": "boolean"},
			"label":        map[string]interface{}{"type": "string"},
		},
		"additionalProperties": false,
	}

	chainActions := map[string]interface{}{
		"type":  "array",
		"items": actionSchema,
	}
	if vctx.RequireCategories {
		chainActions["minItems"] = 2
		chainActions["maxItems"] = 6
	}

	chainSchema := map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "name", "actions"},
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "string"},
			"name":        map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
			"actions":     chainActions,
		},
		"additionalProperties": false,
	}

	chainsSchema := map[string]interface{}{
		"type":        "array",
		"items":       chainSchema,
		"description": "One chain per event category handled by the decision node.",
	}
	if vctx.RequireCategories {
		chainsSchema["minItems"] = 4
		chainsSchema["maxItems"] = 4
		chainsSchema["description"] = "Exactly four chains covering bug reports, support questions, urgent issues, and feature requests."
	}

	nodeSchema := map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "position", "data"},
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string"},
			"position": map[string]interface{}{
				"type":     "object",
				"required": []string{"x", "y"},
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"type": "number"},
					"y": map[string]interface{}{"type": "number"},
				},
				"additionalProperties": false,
			},
			"data": map[string]interface{}{
				"type":     "object",
				"required": []string{"type", "title"},
				"properties": map[string]interface{}{
					"type":       map[string]interface{}{"type": "string"},
					"title":      map[string]interface{}{"type": "string"},
					"isTrigger":  map[string]interface{}{"type": "boolean"},
					"providerId": map[string]interface{}{"type": "string"},
					"config": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"model":  map[string]interface{}{"type": "string"},
							"chains": chainsSchema,
						},
					},
				},
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}

	connectionSchema := map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "source", "target"},
		"properties": map[string]interface{}{
			"id":           map[string]interface{}{"type": "string"},
			"source":       map[string]interface{}{"type": "string"},
			"target":       map[string]interface{}{"type": "string"},
			"sourceHandle": map[string]interface{}{"type": "string"},
			"targetHandle": map[string]interface{}{"type": "string"},
		},
		"additionalProperties": false,
	}

	return map[string]interface{}{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"name", "description", "nodes", "connections"},
		"properties": map[string]interface{}{
			"name":        map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
			"nodes": map[string]interface{}{
				"type":        "array",
				"items":       nodeSchema,
				"description": triggerHint,
			},
			"connections": map[string]interface{}{
				"type":  "array",
				"items": connectionSchema,
			},
		},
		"additionalProperties": false,
	}
}
