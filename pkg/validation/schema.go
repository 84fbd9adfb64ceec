package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// SchemaValidator checks structural and type correctness of a candidate
// graph: required fields, recognized enum values and numeric positions.
// It is a pure function over its input and safe for concurrent use.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a schema validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate returns all structural findings for the graph.
func (v *SchemaValidator) Validate(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	seen := make(map[string]bool, len(graph.Nodes))

	for i, node := range graph.Nodes {
		findings = append(findings, v.validateNode(i, node)...)

		if node.ID == "" {
			continue
		}

		if seen[node.ID] {
			findings = append(findings, ValidationError{
				Kind:     KindSchema,
				Code:     CodeDuplicateNodeID,
				Message:  fmt.Sprintf("duplicate node id %q", node.ID),
				NodeID:   node.ID,
				Severity: SeverityError,
			})
		}

		seen[node.ID] = true
	}

	for i, edge := range graph.Edges {
		findings = append(findings, v.validateEdge(i, edge)...)
	}

	return findings
}

func (v *SchemaValidator) validateNode(index int, node *models.Node) []ValidationError {
	findings := make([]ValidationError, 0)

	if err := v.validate.Struct(node); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			// Struct-level validator malfunction degrades to a finding,
			// never a silent pass.
			return append(findings, ValidationError{
				Kind:     KindSchema,
				Code:     CodeSchemaValidation,
				Message:  fmt.Sprintf("nodes[%d]: %v", index, err),
				Severity: SeverityError,
			})
		}

		for _, fieldError := range fieldErrors {
			findings = append(findings, v.nodeFieldFinding(index, node, fieldError))
		}
	}

	if node.BlockType != "" && !node.BlockType.IsKnown() {
		findings = append(findings, ValidationError{
			Kind:     KindSchema,
			Code:     CodeSchemaValidation,
			Message:  fmt.Sprintf("nodes[%d].block_type: unrecognized block type %q", index, node.BlockType),
			NodeID:   node.ID,
			Field:    "block_type",
			Severity: SeverityError,
		})
	}

	switch {
	case node.Position == nil:
		findings = append(findings, ValidationError{
			Kind:     KindSchema,
			Code:     CodeMissingPosition,
			Message:  fmt.Sprintf("nodes[%d].position: missing layout position", index),
			NodeID:   node.ID,
			Field:    "position",
			Severity: SeverityError,
		})
	case !isFinite(node.Position.X) || !isFinite(node.Position.Y):
		findings = append(findings, ValidationError{
			Kind:     KindSchema,
			Code:     CodeSchemaValidation,
			Message:  fmt.Sprintf("nodes[%d].position: coordinates must be finite numbers", index),
			NodeID:   node.ID,
			Field:    "position",
			Severity: SeverityError,
		})
	}

	return findings
}

func (v *SchemaValidator) nodeFieldFinding(index int, node *models.Node, fieldError validator.FieldError) ValidationError {
	finding := ValidationError{
		Kind:     KindSchema,
		Code:     CodeSchemaValidation,
		NodeID:   node.ID,
		Severity: SeverityError,
	}

	switch fieldError.Field() {
	case "ID":
		finding.Code = CodeMissingID
		finding.Field = "id"
		finding.Message = fmt.Sprintf("nodes[%d].id: node id is required", index)
	case "BlockType":
		finding.Field = "block_type"
		finding.Message = fmt.Sprintf("nodes[%d].block_type: block type is required", index)
	case "NodeType":
		finding.Field = "node_type"
		finding.Message = fmt.Sprintf(
			"nodes[%d].node_type: node type must be one of TRIGGER, ACTION, LOGIC (got %q)",
			index, node.NodeType)
	default:
		finding.Field = fieldError.Field()
		finding.Message = fmt.Sprintf("nodes[%d].%s: failed %q validation", index, fieldError.Field(), fieldError.Tag())
	}

	return finding
}

func (v *SchemaValidator) validateEdge(index int, edge *models.Edge) []ValidationError {
	findings := make([]ValidationError, 0)

	err := v.validate.Struct(edge)
	if err == nil {
		return findings
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return append(findings, ValidationError{
			Kind:     KindSchema,
			Code:     CodeSchemaValidation,
			Message:  fmt.Sprintf("edges[%d]: %v", index, err),
			EdgeID:   edge.ID,
			Severity: SeverityError,
		})
	}

	for _, fieldError := range fieldErrors {
		findings = append(findings, ValidationError{
			Kind:     KindSchema,
			Code:     CodeSchemaValidation,
			Message:  fmt.Sprintf("edges[%d].%s: field is required", index, fieldError.Field()),
			EdgeID:   edge.ID,
			Field:    fieldError.Field(),
			Severity: SeverityError,
		})
	}

	return findings
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
