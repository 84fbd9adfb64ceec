// Package models defines the core domain models for AI-generated workflow graphs.
package models

// NodeType represents the execution role of a node within a workflow graph.
type NodeType string

const (
	NodeTypeTrigger NodeType = "TRIGGER" // Entry points that start execution
	NodeTypeAction  NodeType = "ACTION"  // Side-effecting work (http, notification, code, ...)
	NodeTypeLogic   NodeType = "LOGIC"   // Flow control (condition, loop, delay, ...)
)

// BlockType identifies the concrete block a node instantiates.
// The config schema of a node depends on its block type.
type BlockType string

const (
	BlockTypeWebhookTrigger  BlockType = "webhook_trigger"
	BlockTypeScheduleTrigger BlockType = "schedule_trigger"
	BlockTypeManualTrigger   BlockType = "manual_trigger"
	BlockTypeHTTPRequest     BlockType = "http_request"
	BlockTypeWebhookCall     BlockType = "webhook_call"
	BlockTypeNotification    BlockType = "notification"
	BlockTypeCustomCode      BlockType = "custom_code"
	BlockTypeDataTransform   BlockType = "data_transform"
	BlockTypeCondition       BlockType = "condition"
	BlockTypeLoop            BlockType = "loop"
	BlockTypeDelay           BlockType = "delay"
)

// KnownBlockTypes returns every block type the core recognizes.
func KnownBlockTypes() []BlockType {
	return []BlockType{
		BlockTypeWebhookTrigger,
		BlockTypeScheduleTrigger,
		BlockTypeManualTrigger,
		BlockTypeHTTPRequest,
		BlockTypeWebhookCall,
		BlockTypeNotification,
		BlockTypeCustomCode,
		BlockTypeDataTransform,
		BlockTypeCondition,
		BlockTypeLoop,
		BlockTypeDelay,
	}
}

// IsKnown reports whether the block type is one of the recognized values.
func (b BlockType) IsKnown() bool {
	for _, known := range KnownBlockTypes() {
		if b == known {
			return true
		}
	}

	return false
}

// IsKnown reports whether the node type is one of TRIGGER, ACTION or LOGIC.
func (t NodeType) IsKnown() bool {
	return t == NodeTypeTrigger || t == NodeTypeAction || t == NodeTypeLogic
}

// Position is the editor layout position of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a single block instance in a workflow graph.
//
// Config is an open, block-type-dependent map; its required keys are
// described by the per-block JSON Schemas in BlockConfigSchemas.
type Node struct {
	ID          string         `json:"id"          validate:"required"`
	BlockType   BlockType      `json:"block_type"  validate:"required"`
	NodeType    NodeType       `json:"node_type"   validate:"required,oneof=TRIGGER ACTION LOGIC"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
	Position    *Position      `json:"position"`
	Enabled     bool           `json:"enabled"`
}

// IsTriggerNode reports whether the node is a trigger.
func (n *Node) IsTriggerNode() bool {
	return n.NodeType == NodeTypeTrigger
}

// IsActionNode reports whether the node is an action.
func (n *Node) IsActionNode() bool {
	return n.NodeType == NodeTypeAction
}

// Edge connects two nodes. Source and Target are soft references:
// an edge pointing at a missing node is a graph validation finding,
// never a crash.
type Edge struct {
	ID           string `json:"id"     validate:"required"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// WorkflowGraph is an untrusted candidate graph produced by a generation
// provider. It is treated as immutable by the validation core: repairs
// always produce a new graph.
type WorkflowGraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NodeByID returns the node with the given ID, or nil.
func (g *WorkflowGraph) NodeByID(id string) *Node {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerNodes returns all trigger nodes in declaration order.
func (g *WorkflowGraph) TriggerNodes() []*Node {
	triggers := make([]*Node, 0)

	for _, node := range g.Nodes {
		if node.IsTriggerNode() {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// Clone creates a deep copy of the graph. Node config maps are copied one
// level deep, matching how snapshots are taken before mutation elsewhere.
func (g *WorkflowGraph) Clone() *WorkflowGraph {
	clone := &WorkflowGraph{
		Nodes: make([]*Node, len(g.Nodes)),
		Edges: make([]*Edge, len(g.Edges)),
	}

	for i, node := range g.Nodes {
		clone.Nodes[i] = node.Clone()
	}

	for i, edge := range g.Edges {
		copied := *edge
		clone.Edges[i] = &copied
	}

	return clone
}

// Clone creates a deep copy of the node.
func (n *Node) Clone() *Node {
	copied := *n
	copied.Config = CopyMap(n.Config)

	if n.Position != nil {
		position := *n.Position
		copied.Position = &position
	}

	return &copied
}

// CopyMap creates a copy of a map[string]any. Values are copied shallowly.
func CopyMap(original map[string]any) map[string]any {
	if original == nil {
		return nil
	}

	result := make(map[string]any, len(original))
	for k, v := range original {
		result[k] = v
	}

	return result
}
