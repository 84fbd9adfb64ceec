// Package audit records every significant core operation — generation,
// validation, security events, version operations — as structured,
// append-only events with risk scoring, and answers queries over the
// trail.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
	"github.com/google/uuid"
)

// Risk classification thresholds over the error count of a failed
// operation.
const (
	highRiskErrorCount   = 10
	mediumRiskErrorCount = 5
)

// AlertSink receives high and critical security events for out-of-band
// delivery. It is invoked fire-and-forget: a failing or panicking sink
// never fails the underlying audit write.
type AlertSink interface {
	Alert(ctx context.Context, event *models.AuditEvent) error
}

// Log is the audit trail service.
type Log struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	alerts      AlertSink
}

// LogOption configures optional audit log collaborators.
type LogOption func(*Log)

// WithAlertSink attaches a sink for high/critical security events.
func WithAlertSink(sink AlertSink) LogOption {
	return func(l *Log) {
		l.alerts = sink
	}
}

// NewLog creates an audit log over the given persistence backend.
func NewLog(p persistence.Persistence, logger *slog.Logger, opts ...LogOption) *Log {
	auditLog := &Log{
		persistence: p,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(auditLog)
	}

	return auditLog
}

// Record persists an event, assigning its ID and timestamp. Events are
// immutable once written.
func (l *Log) Record(ctx context.Context, event *models.AuditEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.Risk == "" {
		event.Risk = models.RiskLow
	}

	if err := l.persistence.AuditRepository().Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	l.maybeAlert(ctx, event)

	return nil
}

// GenerationRecord describes one workflow generation round-trip.
type GenerationRecord struct {
	UserID     string
	SessionID  string
	WorkflowID string
	Prompt     string
	Outcome    models.AuditOutcome
	NodeCount  int
	Duration   time.Duration
}

// LogWorkflowGeneration records a generation operation.
func (l *Log) LogWorkflowGeneration(ctx context.Context, record GenerationRecord) error {
	return l.Record(ctx, &models.AuditEvent{
		EventType: models.AuditEventWorkflowGeneration,
		UserID:    record.UserID,
		SessionID: record.SessionID,
		Resource:  "workflow:" + record.WorkflowID,
		Action:    "generate",
		Outcome:   record.Outcome,
		Risk:      models.RiskLow,
		Details: map[string]any{
			"prompt_length": len(record.Prompt),
			"node_count":    record.NodeCount,
			"duration_ms":   record.Duration.Milliseconds(),
		},
	})
}

// ValidationRecord describes one pipeline run.
type ValidationRecord struct {
	UserID       string
	SessionID    string
	WorkflowID   string
	Outcome      models.AuditOutcome
	ErrorCount   int
	WarningCount int
	Healed       bool
	Duration     time.Duration
}

// LogValidation records a validation run, grading risk from the outcome
// and error count.
func (l *Log) LogValidation(ctx context.Context, record ValidationRecord) error {
	return l.Record(ctx, &models.AuditEvent{
		EventType: models.AuditEventWorkflowValidation,
		UserID:    record.UserID,
		SessionID: record.SessionID,
		Resource:  "workflow:" + record.WorkflowID,
		Action:    "validate",
		Outcome:   record.Outcome,
		Risk:      classifyRisk(record.Outcome, record.ErrorCount),
		Details: map[string]any{
			"error_count":   record.ErrorCount,
			"warning_count": record.WarningCount,
			"healed":        record.Healed,
			"duration_ms":   record.Duration.Milliseconds(),
		},
	})
}

// SecurityViolationRecord describes a scanner finding worth auditing.
type SecurityViolationRecord struct {
	UserID        string
	SessionID     string
	Resource      string
	ViolationType string
	Severity      string
	Detail        string
}

// LogSecurityViolation records a security violation. High and critical
// violations are forwarded to the alert sink.
func (l *Log) LogSecurityViolation(ctx context.Context, record SecurityViolationRecord) error {
	risk := models.RiskLevel(record.Severity)

	switch risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical:
	default:
		risk = models.RiskMedium
	}

	return l.Record(ctx, &models.AuditEvent{
		EventType: models.AuditEventSecurityViolation,
		UserID:    record.UserID,
		SessionID: record.SessionID,
		Resource:  record.Resource,
		Action:    "security_scan",
		Outcome:   models.AuditOutcomeFailure,
		Risk:      risk,
		Details: map[string]any{
			"violation_type": record.ViolationType,
			"severity":       record.Severity,
			"detail":         record.Detail,
		},
	})
}

// LogVersionOperation records a version store operation (create,
// activate, rollback, archive, delete).
func (l *Log) LogVersionOperation(ctx context.Context, userID, workflowID, operation string, outcome models.AuditOutcome, details map[string]any) error {
	return l.Record(ctx, &models.AuditEvent{
		EventType: models.AuditEventVersionOperation,
		UserID:    userID,
		Resource:  "workflow:" + workflowID,
		Action:    operation,
		Outcome:   outcome,
		Risk:      models.RiskLow,
		Details:   details,
	})
}

// LogUserAction records a generic user-initiated action.
func (l *Log) LogUserAction(ctx context.Context, userID, resource, action string, outcome models.AuditOutcome) error {
	return l.Record(ctx, &models.AuditEvent{
		EventType: models.AuditEventUserAction,
		UserID:    userID,
		Resource:  resource,
		Action:    action,
		Outcome:   outcome,
		Risk:      models.RiskLow,
	})
}

// TrailOptions filter a user audit trail query.
type TrailOptions struct {
	From       time.Time
	To         time.Time
	EventTypes []models.AuditEventType
	Limit      int
}

// GetUserAuditTrail returns a user's events, newest first.
func (l *Log) GetUserAuditTrail(ctx context.Context, userID string, opts TrailOptions) ([]*models.AuditEvent, error) {
	events, err := l.persistence.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		UserID:     userID,
		From:       opts.From,
		To:         opts.To,
		EventTypes: opts.EventTypes,
		Limit:      opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail for user %s: %w", userID, err)
	}

	return events, nil
}

// classifyRisk grades an operation outcome: failures escalate with their
// error count, everything else stays low.
func classifyRisk(outcome models.AuditOutcome, errorCount int) models.RiskLevel {
	if outcome == models.AuditOutcomeFailure {
		if errorCount > highRiskErrorCount {
			return models.RiskHigh
		}

		if errorCount > mediumRiskErrorCount {
			return models.RiskMedium
		}
	}

	return models.RiskLow
}

// maybeAlert forwards high/critical security events to the alert sink.
// Sink failures are logged and swallowed: auditing must never depend on
// alert delivery.
func (l *Log) maybeAlert(ctx context.Context, event *models.AuditEvent) {
	if l.alerts == nil || event.EventType != models.AuditEventSecurityViolation {
		return
	}

	if event.Risk != models.RiskHigh && event.Risk != models.RiskCritical {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "Alert sink panicked", "panic", r)
		}
	}()

	if err := l.alerts.Alert(ctx, event); err != nil {
		l.logger.ErrorContext(ctx, "Alert sink failed", "error", err, "event_id", event.EventID)
	}
}
