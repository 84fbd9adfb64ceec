package validation

import (
	"testing"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoHealer_AssignsMissingIDs(t *testing.T) {
	healer := NewAutoHealer()

	node := testAction("")
	graph := &models.WorkflowGraph{Nodes: []*models.Node{node}}

	healed, applied := healer.Heal(graph, []ValidationError{{Code: CodeMissingID, Severity: SeverityError}})

	require.Len(t, applied, 1)
	assert.NotEmpty(t, healed.Nodes[0].ID)
	assert.Contains(t, healed.Nodes[0].ID, "node-")

	// Input stays untouched.
	assert.Empty(t, graph.Nodes[0].ID)
}

func TestAutoHealer_FillsMissingConfig(t *testing.T) {
	healer := NewAutoHealer()

	node := testNode("n1", models.NodeTypeAction, models.BlockTypeHTTPRequest)
	node.Config = map[string]any{"url": "https://example.com"}
	graph := &models.WorkflowGraph{Nodes: []*models.Node{node}}

	healed, applied := healer.Heal(graph, []ValidationError{{
		Code:     CodeMissingRequiredConfig,
		NodeID:   "n1",
		Severity: SeverityError,
	}})

	require.Len(t, applied, 1)

	healedNode := healed.NodeByID("n1")
	require.NotNil(t, healedNode)
	assert.Equal(t, "https://example.com", healedNode.Config["url"])
	assert.NotEmpty(t, healedNode.Config["method"])

	// Existing config values are never overwritten.
	assert.NotContains(t, graph.Nodes[0].Config, "method")
}

func TestAutoHealer_AssignsMissingPositions(t *testing.T) {
	healer := NewAutoHealer()

	first := testAction("a")
	first.Position = nil
	second := testAction("b")
	second.Position = nil

	graph := &models.WorkflowGraph{Nodes: []*models.Node{first, second}}

	healed, applied := healer.Heal(graph, []ValidationError{{Code: CodeMissingPosition, Severity: SeverityError}})

	require.Len(t, applied, 2)
	require.NotNil(t, healed.Nodes[0].Position)
	require.NotNil(t, healed.Nodes[1].Position)

	// Nodes get staggered layout positions, not the same point.
	assert.NotEqual(t, healed.Nodes[0].Position.Y, healed.Nodes[1].Position.Y)
}

func TestAutoHealer_ConnectsUnreachableNodes(t *testing.T) {
	healer := NewAutoHealer()

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), testAction("island")},
	}

	healed, applied := healer.Heal(graph, []ValidationError{{Code: CodeUnreachableNodes, Severity: SeverityError}})

	require.Len(t, applied, 1)
	require.Len(t, healed.Edges, 1)
	assert.Equal(t, "t1", healed.Edges[0].Source)
	assert.Equal(t, "island", healed.Edges[0].Target)

	assert.Empty(t, graph.Edges)
}

func TestAutoHealer_ConnectionsAreBounded(t *testing.T) {
	healer := NewAutoHealer()

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{
			testTrigger("t1"),
			testAction("a"), testAction("b"), testAction("c"), testAction("d"), testAction("e"),
		},
	}

	healed, applied := healer.Heal(graph, []ValidationError{{Code: CodeUnreachableNodes, Severity: SeverityError}})

	assert.Len(t, applied, maxHealedConnections)
	assert.Len(t, healed.Edges, maxHealedConnections)
}

func TestAutoHealer_NoTriggerMeansNoWiring(t *testing.T) {
	healer := NewAutoHealer()

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testAction("a"), testAction("b")},
	}

	healed, applied := healer.Heal(graph, []ValidationError{{Code: CodeUnreachableNodes, Severity: SeverityError}})

	assert.Empty(t, applied)
	assert.Empty(t, healed.Edges)
}

func TestAutoHealer_IgnoresNonHealableCodes(t *testing.T) {
	healer := NewAutoHealer()

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), testAction("a1")},
		Edges: []*models.Edge{testEdge("e1", "t1", "a1"), testEdge("e2", "a1", "t1")},
	}

	healed, applied := healer.Heal(graph, []ValidationError{
		{Code: CodeCycleDetected, Severity: SeverityError},
		{Code: CodeNoTriggerNode, Severity: SeverityError},
	})

	assert.Empty(t, applied)
	assert.Equal(t, len(graph.Edges), len(healed.Edges))
	assert.Equal(t, len(graph.Nodes), len(healed.Nodes))
}

func TestAutoHealer_SecondPassIsIdempotent(t *testing.T) {
	healer := NewAutoHealer()

	node := testAction("")
	node.Position = nil
	graph := &models.WorkflowGraph{Nodes: []*models.Node{testTrigger("t1"), node}}

	findings := []ValidationError{
		{Code: CodeMissingID, Severity: SeverityError},
		{Code: CodeMissingPosition, Severity: SeverityError},
	}

	healed, applied := healer.Heal(graph, findings)
	require.NotEmpty(t, applied)

	// Re-healing an already repaired graph applies nothing further.
	_, secondApplied := healer.Heal(healed, findings)
	assert.Empty(t, secondApplied)
}
