// Package security provides pattern-based scanning of untrusted model
// output: prompt injection detection over generation prompts and static
// heuristics over generated code. Detection is heuristic by design; it is
// a gate against known-bad shapes, not a program analyzer.
package security

// Severity grades a detected issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue type identifiers, stable across releases so callers can branch on
// them.
const (
	IssueInstructionOverride = "instruction_override"
	IssueRoleManipulation    = "role_manipulation"
	IssueSystemTag           = "system_tag"
	IssueCodeBlock           = "code_block"
	IssueScriptTag           = "script_tag"
	IssueInputTruncated      = "input_truncated"

	IssueDynamicEvaluation = "dynamic_evaluation"
	IssueProcessEscape     = "process_escape"
	IssueCredentialAccess  = "credential_access"
	IssueOutboundNetwork   = "outbound_network"
	IssueEmbeddedSecret    = "embedded_secret"
	IssueUnboundedLoop     = "unbounded_loop"
	IssueSuspiciousDomain  = "suspicious_domain"
)

// Issue is a single finding from a scan.
type Issue struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Match       string   `json:"match,omitempty"`
}

// PromptScanResult is the outcome of sanitizing a generation prompt.
// IsSecure is false iff at least one high or critical issue was found.
type PromptScanResult struct {
	IsSecure      bool    `json:"is_secure"`
	Issues        []Issue `json:"issues"`
	SanitizedText string  `json:"sanitized_text"`
}

// CodeScanResult is the outcome of analyzing generated code.
// IsSafe is false iff at least one critical issue was found.
type CodeScanResult struct {
	IsSafe        bool    `json:"is_safe"`
	Issues        []Issue `json:"issues"`
	SanitizedCode string  `json:"sanitized_code"`
}

// isBlocking reports whether the severity invalidates a prompt.
func (s Severity) isBlocking() bool {
	return s == SeverityHigh || s == SeverityCritical
}
