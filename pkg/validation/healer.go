package validation

import (
	"fmt"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/google/uuid"
)

// maxHealedConnections bounds how many disconnected nodes a single healing
// pass will wire up to a trigger. The repair is heuristic, not semantic;
// wiring everything blindly would hide genuinely broken generations.
const maxHealedConnections = 3

// Default layout geometry for healed positions.
const (
	healedPositionX      = 100.0
	healedPositionY      = 100.0
	healedPositionOffset = 80.0
)

// AutoHealer deterministically repairs the fixed set of healable finding
// codes. A healing pass is pure and single-shot: it never mutates its
// input, never deletes nodes or edges, and does not loop to a fixpoint.
// Convergence is the caller's job (see HealUntilStable), which bounds the
// cost of adversarial graphs.
type AutoHealer struct{}

// NewAutoHealer creates an auto-healer.
func NewAutoHealer() *AutoHealer {
	return &AutoHealer{}
}

// Heal returns a corrected copy of the graph with all healable findings
// repaired, plus a description of each repair applied. Findings with
// non-healable codes are ignored.
func (h *AutoHealer) Heal(graph *models.WorkflowGraph, findings []ValidationError) (*models.WorkflowGraph, []string) {
	healed := graph.Clone()
	applied := make([]string, 0)

	for _, finding := range findings {
		switch finding.Code {
		case CodeMissingID:
			applied = append(applied, h.healMissingIDs(healed)...)
		case CodeMissingRequiredConfig:
			applied = append(applied, h.healMissingConfig(healed, finding)...)
		case CodeMissingPosition:
			applied = append(applied, h.healMissingPositions(healed)...)
		case CodeUnreachableNodes:
			applied = append(applied, h.healDisconnected(healed)...)
		}
	}

	return healed, applied
}

func (h *AutoHealer) healMissingIDs(graph *models.WorkflowGraph) []string {
	applied := make([]string, 0)

	for _, node := range graph.Nodes {
		if node.ID == "" {
			node.ID = "node-" + uuid.New().String()

			applied = append(applied, fmt.Sprintf("assigned id %q to node with missing id", node.ID))
		}
	}

	return applied
}

func (h *AutoHealer) healMissingConfig(graph *models.WorkflowGraph, finding ValidationError) []string {
	node := graph.NodeByID(finding.NodeID)
	if node == nil {
		return nil
	}

	defaults := models.DefaultConfig(node.BlockType)
	if node.Config == nil {
		node.Config = make(map[string]any, len(defaults))
	}

	applied := make([]string, 0)

	for _, field := range models.RequiredConfigFields(node.BlockType) {
		if _, ok := node.Config[field]; !ok {
			node.Config[field] = defaults[field]

			applied = append(applied, fmt.Sprintf("set default config %q on node %q", field, node.ID))
		}
	}

	return applied
}

func (h *AutoHealer) healMissingPositions(graph *models.WorkflowGraph) []string {
	applied := make([]string, 0)

	for i, node := range graph.Nodes {
		if node.Position == nil {
			node.Position = &models.Position{
				X: healedPositionX,
				Y: healedPositionY + float64(i)*healedPositionOffset,
			}

			applied = append(applied, fmt.Sprintf("assigned default position to node %q", node.ID))
		}
	}

	return applied
}

// healDisconnected wires up to maxHealedConnections unreachable nodes as
// targets of new edges from the first trigger node. The repair restores
// structural reachability only; whether the wiring makes semantic sense is
// for the caller to review.
func (h *AutoHealer) healDisconnected(graph *models.WorkflowGraph) []string {
	triggers := graph.TriggerNodes()
	if len(triggers) == 0 {
		// Nothing to wire from; NO_TRIGGER_NODE is not a healable code.
		return nil
	}

	trigger := triggers[0]
	analyzer := NewGraphAnalyzer()

	applied := make([]string, 0)
	wired := 0

	for _, node := range analyzer.FindUnreachable(graph) {
		if wired >= maxHealedConnections {
			break
		}

		if node.ID == trigger.ID || node.IsTriggerNode() {
			continue
		}

		graph.Edges = append(graph.Edges, &models.Edge{
			ID:     "edge-" + uuid.New().String(),
			Source: trigger.ID,
			Target: node.ID,
		})

		applied = append(applied, fmt.Sprintf("connected unreachable node %q to trigger %q", node.ID, trigger.ID))
		wired++
	}

	return applied
}
