package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// maxRecommendedTriggers is the trigger count above which a workflow is
// flagged as overly complex (warning only).
const maxRecommendedTriggers = 3

// BusinessRuleValidator enforces domain invariants: trigger presence,
// per-block required configuration and node-type adjacency heuristics.
// Block config schemas are compiled once at construction.
type BusinessRuleValidator struct {
	configSchemas map[models.BlockType]*gojsonschema.Schema
}

// NewBusinessRuleValidator creates a business rule validator, compiling
// the per-block-type config schemas. Compilation of the built-in schemas
// cannot fail; a broken schema is a programmer error and panics at startup.
func NewBusinessRuleValidator() *BusinessRuleValidator {
	schemas := make(map[models.BlockType]*gojsonschema.Schema)

	for blockType, document := range models.BlockConfigSchemas() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
		if err != nil {
			panic(fmt.Sprintf("invalid config schema for block type %q: %v", blockType, err))
		}

		schemas[blockType] = schema
	}

	return &BusinessRuleValidator{configSchemas: schemas}
}

// Validate returns all business rule findings for the graph.
func (v *BusinessRuleValidator) Validate(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	findings = append(findings, v.checkTriggers(graph)...)
	findings = append(findings, v.checkNodeConfigs(graph)...)
	findings = append(findings, v.checkAdjacency(graph)...)

	return findings
}

func (v *BusinessRuleValidator) checkTriggers(graph *models.WorkflowGraph) []ValidationError {
	triggers := graph.TriggerNodes()

	if len(triggers) == 0 {
		return []ValidationError{{
			Kind:     KindBusiness,
			Code:     CodeNoTriggerNode,
			Message:  "workflow must have at least one trigger node",
			Severity: SeverityError,
		}}
	}

	if len(triggers) > maxRecommendedTriggers {
		return []ValidationError{{
			Kind:     KindBusiness,
			Code:     CodeTooManyTriggers,
			Message:  fmt.Sprintf("workflow has %d trigger nodes; more than %d makes behavior hard to reason about", len(triggers), maxRecommendedTriggers),
			Severity: SeverityWarning,
		}}
	}

	return nil
}

func (v *BusinessRuleValidator) checkNodeConfigs(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	for _, node := range graph.Nodes {
		schema, ok := v.configSchemas[node.BlockType]
		if !ok {
			// Unrecognized and custom blocks carry an open config map.
			continue
		}

		config := node.Config
		if config == nil {
			config = map[string]any{}
		}

		result, err := schema.Validate(gojsonschema.NewGoLoader(config))
		if err != nil {
			// A malfunctioning schema evaluation degrades to a finding,
			// never a silent pass.
			findings = append(findings, ValidationError{
				Kind:     KindBusiness,
				Code:     CodeMissingRequiredConfig,
				Message:  fmt.Sprintf("node %q: config could not be evaluated: %v", node.ID, err),
				NodeID:   node.ID,
				Severity: SeverityError,
			})

			continue
		}

		if result.Valid() {
			continue
		}

		missing := missingFields(node, result)
		if len(missing) == 0 {
			// Present but malformed fields are schema findings, not
			// healable missing-config ones.
			for _, resultError := range result.Errors() {
				findings = append(findings, ValidationError{
					Kind:     KindBusiness,
					Code:     CodeSchemaValidation,
					Message:  fmt.Sprintf("node %q: config.%s %s", node.ID, resultError.Field(), resultError.Description()),
					NodeID:   node.ID,
					Field:    resultError.Field(),
					Severity: SeverityError,
				})
			}

			continue
		}

		findings = append(findings, ValidationError{
			Kind:     KindBusiness,
			Code:     CodeMissingRequiredConfig,
			Message:  fmt.Sprintf("node %q (%s) is missing required config fields: %s", node.ID, node.BlockType, strings.Join(missing, ", ")),
			NodeID:   node.ID,
			Severity: SeverityError,
			Details:  map[string]any{"missing_fields": missing},
		})
	}

	return findings
}

// checkAdjacency flags an action node feeding directly into a trigger
// node. Domain-suspicious but not categorically invalid (legitimate
// feedback loops exist), so this is a warning, never a hard error.
func (v *BusinessRuleValidator) checkAdjacency(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	for _, edge := range graph.Edges {
		source := graph.NodeByID(edge.Source)
		target := graph.NodeByID(edge.Target)

		if source == nil || target == nil {
			continue
		}

		if source.IsActionNode() && target.IsTriggerNode() {
			findings = append(findings, ValidationError{
				Kind:     KindBusiness,
				Code:     CodeActionIntoTrigger,
				Message:  fmt.Sprintf("edge %q wires action %q into trigger %q; triggers are usually entry points", edge.ID, source.ID, target.ID),
				EdgeID:   edge.ID,
				Severity: SeverityWarning,
			})
		}
	}

	return findings
}

// missingFields extracts required-property violations from a schema result,
// restricted to the fields the block type actually requires.
func missingFields(node *models.Node, result *gojsonschema.Result) []string {
	required := models.RequiredConfigFields(node.BlockType)

	requiredSet := make(map[string]bool, len(required))
	for _, field := range required {
		requiredSet[field] = true
	}

	missingSet := make(map[string]bool)

	for _, resultError := range result.Errors() {
		if resultError.Type() != "required" {
			continue
		}

		property, ok := resultError.Details()["property"].(string)
		if ok && requiredSet[property] {
			missingSet[property] = true
		}
	}

	missing := make([]string, 0, len(missingSet))
	for field := range missingSet {
		missing = append(missing, field)
	}

	sort.Strings(missing)

	return missing
}
