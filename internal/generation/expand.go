package generation

import (
	"fmt"
	"time"

	"chainreact/internal/nodes"
)

// Canvas layout constants. Columns are spaced generously so chains never
// overlap visually.
const (
	chainColumnSpacing = 460.0
	firstActionOffsetY = 180.0
	actionSpacingY     = 160.0
)

// Expander materializes the decision node's abstract chains into
// positioned, connected canvas nodes. Expansion is pure: the input
// workflow is never mutated.
type Expander struct {
	now func() time.Time
}

// NewExpander creates an expander using the wall clock.
func NewExpander() *Expander {
	return &Expander{now: time.Now}
}

// NewExpanderWithClock creates an expander with an injected clock. Node ids
// derive from the clock, so tests pin it for deterministic output.
func NewExpanderWithClock(now func() time.Time) *Expander {
	return &Expander{now: now}
}

// Expand lays each chain out as a column under the decision node: the
// first action 180px below it, 160px between successive actions, columns
// 460px apart and centered. Every chain gets a trailing add_action
// affordance node. For chain action counts [n1..nk] expansion adds exactly
// sum(ni)+k nodes and sum(ni)+k edges. Pre-existing connections that do
// not duplicate a generated one are preserved.
func (e *Expander) Expand(w *GeneratedWorkflow) *GeneratedWorkflow {
	out := w.Clone()

	decision := out.FindDecision()
	if decision == nil {
		return out
	}
	chains, err := DecodeChains(decision.Data.Config)
	if err != nil || len(chains) == 0 {
		return out
	}

	base := e.now().UnixMilli()
	offset := int64(0)

	columns := len(chains)
	startX := decision.Position.X - chainColumnSpacing*float64(columns-1)/2

	var newNodes []Node
	var newEdges []Connection

	for ci, chain := range chains {
		x := startX + float64(ci)*chainColumnSpacing
		y := decision.Position.Y + firstActionOffsetY
		prevID := decision.ID

		for ai, action := range chain.Actions {
			id := fmt.Sprintf("%s-chain%d-node%d-%d", decision.ID, ci, ai, base+offset)
			offset++

			title := action.Label
			if title == "" {
				title = action.Type
			}
			newNodes = append(newNodes, Node{
				ID:       id,
				Position: Position{X: x, Y: y},
				Data: NodeData{
					Type:       action.Type,
					Title:      title,
					ProviderID: action.ProviderID,
					Config:     map[string]interface{}{"aiConfigured": action.AIConfigured},
				},
			})

			edge := Connection{ID: fmt.Sprintf("e-%s-%s", prevID, id), Source: prevID, Target: id}
			if prevID == decision.ID {
				edge.SourceHandle = chain.ID
			}
			newEdges = append(newEdges, edge)

			prevID = id
			y += actionSpacingY
		}

		addID := fmt.Sprintf("%s-chain%d-addnode-%d", decision.ID, ci, base+offset)
		offset++
		newNodes = append(newNodes, Node{
			ID:       addID,
			Position: Position{X: x, Y: y},
			Data: NodeData{
				Type:  nodes.TypeAddAction,
				Title: "Add Action",
			},
		})
		addEdge := Connection{ID: fmt.Sprintf("e-%s-%s", prevID, addID), Source: prevID, Target: addID}
		if prevID == decision.ID {
			addEdge.SourceHandle = chain.ID
		}
		newEdges = append(newEdges, addEdge)
	}

	generated := make(map[string]bool, len(newEdges))
	for _, edge := range newEdges {
		generated[edge.Source+"\x00"+edge.Target] = true
	}

	conns := make([]Connection, 0, len(out.Connections)+len(newEdges))
	for _, conn := range out.Connections {
		if generated[conn.Source+"\x00"+conn.Target] {
			continue
		}
		conns = append(conns, conn)
	}
	conns = append(conns, newEdges...)

	out.Nodes = append(out.Nodes, newNodes...)
	out.Connections = conns
	return out
}
