package versioning

import (
	"encoding/json"

	"github.com/gateflow/gateflow/pkg/models"
)

// significantChangeCount is the total change count above which a diff is
// flagged significant.
const significantChangeCount = 5

// NodeModification records field-level changes to a node present in both
// versions.
type NodeModification struct {
	NodeID        string   `json:"node_id"`
	ChangedFields []string `json:"changed_fields"`
	// BlockTypeChanged marks the one field change that always alters
	// execution semantics.
	BlockTypeChanged bool `json:"block_type_changed"`
}

// EdgeModification records field-level changes to an edge present in both
// versions.
type EdgeModification struct {
	EdgeID        string   `json:"edge_id"`
	ChangedFields []string `json:"changed_fields"`
}

// VersionDiff describes the differences between two versions of a
// workflow.
type VersionDiff struct {
	FromVersionID      string             `json:"from_version_id"`
	ToVersionID        string             `json:"to_version_id"`
	AddedNodes         []string           `json:"added_nodes"`
	RemovedNodes       []string           `json:"removed_nodes"`
	ModifiedNodes      []NodeModification `json:"modified_nodes"`
	AddedEdges         []string           `json:"added_edges"`
	RemovedEdges       []string           `json:"removed_edges"`
	ModifiedEdges      []EdgeModification `json:"modified_edges"`
	SignificantChanges bool               `json:"significant_changes"`
}

// TotalChanges counts every addition, removal and modification.
func (d *VersionDiff) TotalChanges() int {
	return len(d.AddedNodes) + len(d.RemovedNodes) + len(d.ModifiedNodes) +
		len(d.AddedEdges) + len(d.RemovedEdges) + len(d.ModifiedEdges)
}

// diffVersions computes the set and field level differences between the
// contents of two versions.
//
// A diff is significant when total changes exceed significantChangeCount,
// when any node was removed, or when any surviving node changed its block
// type — the latter regardless of count, since it alters execution
// semantics.
func diffVersions(from, to *models.WorkflowVersion) *VersionDiff {
	diff := &VersionDiff{
		FromVersionID: from.ID,
		ToVersionID:   to.ID,
		AddedNodes:    make([]string, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]NodeModification, 0),
		AddedEdges:    make([]string, 0),
		RemovedEdges:  make([]string, 0),
		ModifiedEdges: make([]EdgeModification, 0),
	}

	fromNodes := make(map[string]*models.Node, len(from.Nodes))
	for _, node := range from.Nodes {
		fromNodes[node.ID] = node
	}

	toNodes := make(map[string]*models.Node, len(to.Nodes))
	for _, node := range to.Nodes {
		toNodes[node.ID] = node
	}

	blockTypeChanged := false

	for _, node := range to.Nodes {
		previous, ok := fromNodes[node.ID]
		if !ok {
			diff.AddedNodes = append(diff.AddedNodes, node.ID)

			continue
		}

		modification := diffNode(previous, node)
		if modification != nil {
			diff.ModifiedNodes = append(diff.ModifiedNodes, *modification)

			if modification.BlockTypeChanged {
				blockTypeChanged = true
			}
		}
	}

	for _, node := range from.Nodes {
		if _, ok := toNodes[node.ID]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, node.ID)
		}
	}

	fromEdges := make(map[string]*models.Edge, len(from.Edges))
	for _, edge := range from.Edges {
		fromEdges[edge.ID] = edge
	}

	toEdges := make(map[string]*models.Edge, len(to.Edges))
	for _, edge := range to.Edges {
		toEdges[edge.ID] = edge
	}

	for _, edge := range to.Edges {
		previous, ok := fromEdges[edge.ID]
		if !ok {
			diff.AddedEdges = append(diff.AddedEdges, edge.ID)

			continue
		}

		modification := diffEdge(previous, edge)
		if modification != nil {
			diff.ModifiedEdges = append(diff.ModifiedEdges, *modification)
		}
	}

	for _, edge := range from.Edges {
		if _, ok := toEdges[edge.ID]; !ok {
			diff.RemovedEdges = append(diff.RemovedEdges, edge.ID)
		}
	}

	diff.SignificantChanges = diff.TotalChanges() > significantChangeCount ||
		len(diff.RemovedNodes) > 0 ||
		blockTypeChanged

	return diff
}

func diffNode(from, to *models.Node) *NodeModification {
	changed := make([]string, 0)

	if from.Label != to.Label {
		changed = append(changed, "label")
	}

	if from.BlockType != to.BlockType {
		changed = append(changed, "block_type")
	}

	if serializeConfig(from.Config) != serializeConfig(to.Config) {
		changed = append(changed, "config")
	}

	if !samePosition(from.Position, to.Position) {
		changed = append(changed, "position")
	}

	if len(changed) == 0 {
		return nil
	}

	return &NodeModification{
		NodeID:           to.ID,
		ChangedFields:    changed,
		BlockTypeChanged: from.BlockType != to.BlockType,
	}
}

func diffEdge(from, to *models.Edge) *EdgeModification {
	changed := make([]string, 0)

	if from.Source != to.Source {
		changed = append(changed, "source")
	}

	if from.Target != to.Target {
		changed = append(changed, "target")
	}

	if from.SourceHandle != to.SourceHandle {
		changed = append(changed, "source_handle")
	}

	if from.TargetHandle != to.TargetHandle {
		changed = append(changed, "target_handle")
	}

	if len(changed) == 0 {
		return nil
	}

	return &EdgeModification{EdgeID: to.ID, ChangedFields: changed}
}

// serializeConfig renders a config map deterministically for comparison.
func serializeConfig(config map[string]any) string {
	if len(config) == 0 {
		return ""
	}

	data, err := json.Marshal(config)
	if err != nil {
		return ""
	}

	return string(data)
}

func samePosition(from, to *models.Position) bool {
	if from == nil || to == nil {
		return from == to
	}

	return from.X == to.X && from.Y == to.Y
}
