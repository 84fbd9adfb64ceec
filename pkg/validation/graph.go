package validation

import (
	"fmt"
	"strings"

	"github.com/gateflow/gateflow/pkg/models"
)

// GraphAnalyzer provides pure structural analysis over a workflow graph:
// cycle detection, trigger reachability and orphan detection. All methods
// are side-effect-free and safe for concurrent use.
type GraphAnalyzer struct{}

// NewGraphAnalyzer creates a graph analyzer.
func NewGraphAnalyzer() *GraphAnalyzer {
	return &GraphAnalyzer{}
}

// HasCycle reports whether the graph contains at least one directed cycle.
// It detects, it does not enumerate: a pass/fail gate needs no more.
// Edges with dangling endpoints are ignored here; they are reported
// separately by Analyze.
func (a *GraphAnalyzer) HasCycle(graph *models.WorkflowGraph) bool {
	adjacency := adjacencyList(graph)

	visited := make(map[string]bool, len(graph.Nodes))
	inStack := make(map[string]bool, len(graph.Nodes))

	var visit func(id string) bool

	visit = func(id string) bool {
		visited[id] = true
		inStack[id] = true

		for _, next := range adjacency[id] {
			if inStack[next] {
				return true
			}

			if !visited[next] && visit(next) {
				return true
			}
		}

		inStack[id] = false

		return false
	}

	for _, node := range graph.Nodes {
		if !visited[node.ID] && visit(node.ID) {
			return true
		}
	}

	return false
}

// FindUnreachable returns nodes with no directed path from any trigger
// node, via multi-source BFS seeded from all triggers.
//
// Edge case: a graph with zero trigger nodes has no reachable node at all,
// so every node is returned.
func (a *GraphAnalyzer) FindUnreachable(graph *models.WorkflowGraph) []*models.Node {
	adjacency := adjacencyList(graph)

	queue := make([]string, 0, len(graph.Nodes))
	reached := make(map[string]bool, len(graph.Nodes))

	for _, trigger := range graph.TriggerNodes() {
		if !reached[trigger.ID] {
			reached[trigger.ID] = true

			queue = append(queue, trigger.ID)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if !reached[next] {
				reached[next] = true

				queue = append(queue, next)
			}
		}
	}

	unreachable := make([]*models.Node, 0)

	for _, node := range graph.Nodes {
		if !reached[node.ID] {
			unreachable = append(unreachable, node)
		}
	}

	return unreachable
}

// FindOrphans returns nodes with no incident edge in either direction.
func (a *GraphAnalyzer) FindOrphans(graph *models.WorkflowGraph) []*models.Node {
	connected := make(map[string]bool, len(graph.Nodes))

	for _, edge := range graph.Edges {
		connected[edge.Source] = true
		connected[edge.Target] = true
	}

	orphans := make([]*models.Node, 0)

	for _, node := range graph.Nodes {
		if !connected[node.ID] {
			orphans = append(orphans, node)
		}
	}

	return orphans
}

// Analyze runs all graph checks and returns them as findings: dangling
// edge endpoints, cycles, unreachable nodes and orphans.
func (a *GraphAnalyzer) Analyze(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	nodeIDs := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		nodeIDs[node.ID] = true
	}

	for _, edge := range graph.Edges {
		if !nodeIDs[edge.Source] {
			findings = append(findings, ValidationError{
				Kind:     KindGraph,
				Code:     CodeInvalidEdge,
				Message:  fmt.Sprintf("edge %q references missing source node %q", edge.ID, edge.Source),
				EdgeID:   edge.ID,
				Severity: SeverityError,
			})
		}

		if !nodeIDs[edge.Target] {
			findings = append(findings, ValidationError{
				Kind:     KindGraph,
				Code:     CodeInvalidEdge,
				Message:  fmt.Sprintf("edge %q references missing target node %q", edge.ID, edge.Target),
				EdgeID:   edge.ID,
				Severity: SeverityError,
			})
		}
	}

	if a.HasCycle(graph) {
		findings = append(findings, ValidationError{
			Kind:     KindGraph,
			Code:     CodeCycleDetected,
			Message:  "workflow graph contains a cycle; execution would never terminate",
			Severity: SeverityError,
		})
	}

	unreachable := a.FindUnreachable(graph)

	if len(unreachable) > 0 {
		ids := make([]string, 0, len(unreachable))
		for _, node := range unreachable {
			ids = append(ids, node.ID)
		}

		message := fmt.Sprintf("%d node(s) have no path from any trigger: %s",
			len(unreachable), strings.Join(ids, ", "))

		if len(graph.TriggerNodes()) == 0 {
			message = "graph has no trigger nodes, so every node is unreachable"
		}

		findings = append(findings, ValidationError{
			Kind:     KindGraph,
			Code:     CodeUnreachableNodes,
			Message:  message,
			Severity: SeverityError,
			Details:  map[string]any{"node_ids": ids},
		})
	}

	for _, orphan := range a.FindOrphans(graph) {
		findings = append(findings, ValidationError{
			Kind:     KindGraph,
			Code:     CodeOrphanNode,
			Message:  fmt.Sprintf("node %q has no incoming or outgoing edges", orphan.ID),
			NodeID:   orphan.ID,
			Severity: SeverityWarning,
		})
	}

	return findings
}

// adjacencyList builds source -> targets over edges whose endpoints both
// exist in the graph.
func adjacencyList(graph *models.WorkflowGraph) map[string][]string {
	nodeIDs := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		nodeIDs[node.ID] = true
	}

	adjacency := make(map[string][]string, len(graph.Nodes))

	for _, edge := range graph.Edges {
		if nodeIDs[edge.Source] && nodeIDs[edge.Target] {
			adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		}
	}

	return adjacency
}
