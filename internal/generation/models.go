package generation

import (
	"encoding/json"

	"chainreact/internal/nodes"
	"chainreact/pkg/errors"
)

// GeneratedWorkflow is the graph produced by one generation request. It is
// built fresh per request and never shared across requests.
type GeneratedWorkflow struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Node is one positioned node on the canvas.
type Node struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Position is a canvas coordinate in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries the node's type and configuration. Config is an opaque
// bag; for the decision node it holds the model id and the chain list.
type NodeData struct {
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	IsTrigger  bool                   `json:"isTrigger"`
	ProviderID string                 `json:"providerId,omitempty"`
	Config     map[string]interface{} `json:"config,omitempty"`
}

// Connection is a directed edge between two nodes.
type Connection struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Chain is one named branch under the decision node: an ordered list of
// abstract action references, not yet positioned nodes.
type Chain struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Actions     []ChainAction `json:"actions"`
}

// ChainAction is one abstract action reference inside a chain.
type ChainAction struct {
	Type         string `json:"type"`
	ProviderID   string `json:"providerId,omitempty"`
	AIConfigured bool   `json:"aiConfigured"`
	Label        string `json:"label,omitempty"`
}

// FindTrigger returns the first node flagged as a trigger, or nil.
func (w *GeneratedWorkflow) FindTrigger() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Data.IsTrigger {
			return &w.Nodes[i]
		}
	}
	return nil
}

// FindDecision returns the decision node, or nil.
func (w *GeneratedWorkflow) FindDecision() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Data.Type == nodes.TypeAIAgent {
			return &w.Nodes[i]
		}
	}
	return nil
}

// NodeByID returns the node with the given id, or nil.
func (w *GeneratedWorkflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// HasConnection reports whether an edge with the given endpoints exists.
func (w *GeneratedWorkflow) HasConnection(source, target string) bool {
	for _, conn := range w.Connections {
		if conn.Source == source && conn.Target == target {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the workflow. Config bags round-trip through
// JSON, so typed values inside them decay to their JSON representation.
func (w *GeneratedWorkflow) Clone() *GeneratedWorkflow {
	if w == nil {
		return nil
	}
	buf, err := json.Marshal(w)
	if err != nil {
		// The model is built from plain JSON-compatible values; marshalling
		// it cannot fail with well-formed input.
		return &GeneratedWorkflow{Name: w.Name, Description: w.Description}
	}
	var out GeneratedWorkflow
	if err := json.Unmarshal(buf, &out); err != nil {
		return &GeneratedWorkflow{Name: w.Name, Description: w.Description}
	}
	return &out
}

// DecodeChains extracts the chain list from a decision node's config bag.
// It accepts both the raw JSON shape returned by the model and the typed
// shape written back by the pipeline. A missing chains entry yields nil.
func DecodeChains(config map[string]interface{}) ([]Chain, error) {
	if config == nil {
		return nil, nil
	}
	raw, ok := config["chains"]
	if !ok || raw == nil {
		return nil, nil
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeGeneration, errors.CodeInvalidWorkflow,
			"decision node chains are not encodable")
	}
	var chains []Chain
	if err := json.Unmarshal(buf, &chains); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeGeneration, errors.CodeInvalidWorkflow,
			"decision node chains have an unexpected shape")
	}
	return chains, nil
}

// SetChains writes the chain list back into a decision node's config bag.
func SetChains(node *Node, chains []Chain) {
	if node.Data.Config == nil {
		node.Data.Config = make(map[string]interface{})
	}
	node.Data.Config["chains"] = chains
}

// DecisionModel returns the model id stored in the decision node's config.
func DecisionModel(node *Node) string {
	if node == nil || node.Data.Config == nil {
		return ""
	}
	if model, ok := node.Data.Config["model"].(string); ok {
		return model
	}
	return ""
}
