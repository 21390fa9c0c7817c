package generation

import (
	"testing"
	"time"

	"chainreact/internal/nodes"
	"chainreact/pkg/logger"
)

func testRegistry(t *testing.T) *nodes.Registry {
	t.Helper()
	return nodes.NewCatalogRegistry(logger.New("test"))
}

func chainAction(actionType string) ChainAction {
	return ChainAction{Type: actionType, AIConfigured: true}
}

func triggerNode(id, nodeType, providerID string) Node {
	return Node{
		ID:       id,
		Position: Position{X: 400, Y: 80},
		Data: NodeData{
			Type:       nodeType,
			Title:      nodeType,
			IsTrigger:  true,
			ProviderID: providerID,
		},
	}
}

func decisionNode(id string, chains []Chain) Node {
	return Node{
		ID:       id,
		Position: Position{X: 400, Y: 300},
		Data: NodeData{
			Type:  nodes.TypeAIAgent,
			Title: "AI Agent",
			Config: map[string]interface{}{
				"model":  "gpt-4o",
				"chains": chains,
			},
		},
	}
}

// triageWorkflow builds the canonical two-node workflow around the given
// chains: one trigger wired into one decision node.
func triageWorkflow(triggerType, providerID string, chains []Chain) *GeneratedWorkflow {
	return &GeneratedWorkflow{
		Name:        "Test Workflow",
		Description: "Workflow used by tests",
		Nodes: []Node{
			triggerNode(TriggerNodeID, triggerType, providerID),
			decisionNode(DecisionNodeID, chains),
		},
		Connections: []Connection{
			{ID: "e-trigger-ai-agent", Source: TriggerNodeID, Target: DecisionNodeID},
		},
	}
}

func decodedChains(t *testing.T, w *GeneratedWorkflow) []Chain {
	t.Helper()
	decision := w.FindDecision()
	if decision == nil {
		t.Fatal("workflow has no decision node")
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil {
		t.Fatalf("decoding chains: %v", err)
	}
	return chains
}

func actionTypes(chain Chain) []string {
	out := make([]string, len(chain.Actions))
	for i, action := range chain.Actions {
		out[i] = action.Type
	}
	return out
}

func fixedClock(t *testing.T) (func() time.Time, int64) {
	t.Helper()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }, at.UnixMilli()
}
