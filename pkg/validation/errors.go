// Package validation implements the gate that every AI-generated workflow
// graph must pass before it is stored or executed: schema checks, business
// rules, graph analysis, security scanning and deterministic auto-healing.
package validation

import "github.com/gateflow/gateflow/pkg/models"

// Kind groups findings by which validator produced them.
type Kind string

const (
	KindSchema   Kind = "schema"
	KindBusiness Kind = "business"
	KindGraph    Kind = "graph"
	KindSecurity Kind = "security"
)

// Severity of a finding. Findings are data, never Go errors: callers and
// the auto-healer branch on stable codes instead of parsing messages.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Stable finding codes.
const (
	CodeSchemaValidation      = "SCHEMA_VALIDATION_ERROR"
	CodeMissingID             = "MISSING_ID"
	CodeMissingPosition       = "MISSING_POSITION"
	CodeDuplicateNodeID       = "DUPLICATE_NODE_ID"
	CodeInvalidEdge           = "INVALID_EDGE"
	CodeCycleDetected         = "CYCLE_DETECTED"
	CodeUnreachableNodes      = "UNREACHABLE_NODES"
	CodeOrphanNode            = "ORPHAN_NODE"
	CodeNoTriggerNode         = "NO_TRIGGER_NODE"
	CodeTooManyTriggers       = "TOO_MANY_TRIGGERS"
	CodeMissingRequiredConfig = "MISSING_REQUIRED_CONFIG"
	CodeActionIntoTrigger     = "ACTION_INTO_TRIGGER"
	CodeUnsafeCode            = "UNSAFE_CODE_PATTERN"
	CodeSuspiciousDomain      = "SUSPICIOUS_DOMAIN"
)

// ValidationError is a single typed finding.
type ValidationError struct {
	Kind     Kind           `json:"kind"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	NodeID   string         `json:"node_id,omitempty"`
	EdgeID   string         `json:"edge_id,omitempty"`
	Field    string         `json:"field,omitempty"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details,omitempty"`
}

// Result is the aggregated outcome of a full pipeline run.
//
// CorrectedGraph is populated only when auto-healing ran; the input graph
// itself is never mutated.
type Result struct {
	IsValid        bool                  `json:"is_valid"`
	Errors         []ValidationError     `json:"errors"`
	Warnings       []ValidationError     `json:"warnings"`
	CorrectedGraph *models.WorkflowGraph `json:"corrected_graph,omitempty"`
}

// HealableCodes is the fixed set of finding codes auto-healing repairs.
// Anything outside this set requires a human or a regeneration round-trip.
func HealableCodes() map[string]bool {
	return map[string]bool{
		CodeMissingID:             true,
		CodeMissingRequiredConfig: true,
		CodeUnreachableNodes:      true,
		CodeMissingPosition:       true,
	}
}

// IsHealable reports whether a finding code is in the healable set.
func IsHealable(code string) bool {
	return HealableCodes()[code]
}

// splitBySeverity partitions findings into errors and warnings.
func splitBySeverity(findings []ValidationError) (errs, warnings []ValidationError) {
	errs = make([]ValidationError, 0)
	warnings = make([]ValidationError, 0)

	for _, finding := range findings {
		if finding.Severity == SeverityWarning {
			warnings = append(warnings, finding)
		} else {
			errs = append(errs, finding)
		}
	}

	return errs, warnings
}
