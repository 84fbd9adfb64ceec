package models

import "time"

// AuditEventType classifies audit trail entries by the operation recorded.
type AuditEventType string

const (
	AuditEventWorkflowGeneration AuditEventType = "workflow_generation"
	AuditEventWorkflowValidation AuditEventType = "workflow_validation"
	AuditEventSecurityViolation  AuditEventType = "security_violation"
	AuditEventVersionOperation   AuditEventType = "version_operation"
	AuditEventUserAction         AuditEventType = "user_action"
)

// AuditOutcome is the result of the audited operation.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
	AuditOutcomePartial AuditOutcome = "partial"
)

// RiskLevel grades the risk associated with an audit event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// AuditEvent is one append-only, immutable audit trail entry.
// Once persisted it is never modified.
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	EventType AuditEventType `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Resource  string         `json:"resource"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Outcome   AuditOutcome   `json:"outcome"`
	Risk      RiskLevel      `json:"risk"`
}
