package validation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_ValidGraph(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), testAction("a1")},
		Edges: []*models.Edge{testEdge("e1", "t1", "a1")},
	}

	result := pipeline.Validate(context.Background(), graph, DefaultOptions())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, result.CorrectedGraph)
}

func TestPipeline_HealsDisconnectedAction(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), testAction("island")},
	}

	result := pipeline.Validate(context.Background(), graph, DefaultOptions())

	assert.False(t, result.IsValid)
	assert.Contains(t, findingCodes(result.Errors), CodeUnreachableNodes)
	require.NotNil(t, result.CorrectedGraph)

	// The corrected graph wires the island to the trigger and passes a
	// re-validation cleanly.
	revalidated := pipeline.Validate(context.Background(), result.CorrectedGraph, DefaultOptions())
	assert.True(t, revalidated.IsValid)

	// The input graph is never mutated.
	assert.Empty(t, graph.Edges)
}

func TestPipeline_NoHealWithoutHealableErrors(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testAction("a1"), testAction("a2")},
		Edges: []*models.Edge{
			testEdge("e1", "a1", "a2"),
			testEdge("e2", "a2", "a1"),
		},
	}

	result := pipeline.Validate(context.Background(), graph, Options{AutoHeal: false})

	assert.False(t, result.IsValid)
	assert.Nil(t, result.CorrectedGraph)
	assert.Contains(t, findingCodes(result.Errors), CodeCycleDetected)
	assert.Contains(t, findingCodes(result.Errors), CodeNoTriggerNode)
}

func TestPipeline_StrictModeFailsOnWarnings(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	// Four triggers: valid, but warned about.
	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{
			testTrigger("t1"), testTrigger("t2"), testTrigger("t3"), testTrigger("t4"),
			testAction("a1"),
		},
		Edges: []*models.Edge{
			testEdge("e1", "t1", "a1"),
			testEdge("e2", "t2", "a1"),
			testEdge("e3", "t3", "a1"),
			testEdge("e4", "t4", "a1"),
		},
	}

	normal := pipeline.Validate(context.Background(), graph, DefaultOptions())
	assert.True(t, normal.IsValid)
	assert.NotEmpty(t, normal.Warnings)

	strict := pipeline.Validate(context.Background(), graph, Options{StrictMode: true})
	assert.False(t, strict.IsValid)
}

func TestPipeline_FlagsCriticalEmbeddedCode(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	node := testNode("code1", models.NodeTypeAction, models.BlockTypeCustomCode)
	node.Config = map[string]any{"code": `eval(userInput);`}

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), node},
		Edges: []*models.Edge{testEdge("e1", "t1", "code1")},
	}

	result := pipeline.Validate(context.Background(), graph, DefaultOptions())

	assert.False(t, result.IsValid)
	assert.Contains(t, findingCodes(result.Errors), CodeUnsafeCode)
}

func TestPipeline_BenignEmbeddedCodePasses(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	node := testNode("code1", models.NodeTypeAction, models.BlockTypeCustomCode)
	node.Config = map[string]any{"code": `return input.map(x => x * 2);`}

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), node},
		Edges: []*models.Edge{testEdge("e1", "t1", "code1")},
	}

	result := pipeline.Validate(context.Background(), graph, DefaultOptions())
	assert.True(t, result.IsValid)
}

func TestPipeline_HealUntilStable(t *testing.T) {
	pipeline := NewPipeline(testLogger())

	island := testAction("island")
	island.Position = nil

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{testTrigger("t1"), island},
	}

	result, finalGraph := pipeline.HealUntilStable(context.Background(), graph, DefaultOptions(), 5)

	assert.True(t, result.IsValid)
	require.NotNil(t, finalGraph)
	assert.Len(t, finalGraph.Edges, 1)
	require.NotNil(t, finalGraph.NodeByID("island").Position)
}
