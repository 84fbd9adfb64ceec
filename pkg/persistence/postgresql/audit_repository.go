package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// AuditRepository handles append-only audit event records in PostgreSQL.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append inserts an audit event. Records are never updated afterwards.
func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	if event.EventID == "" || event.EventType == "" {
		return persistence.ErrAuditEventInvalid
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event details: %w", err)
	}

	query := `
		INSERT INTO audit_events
			(event_id, event_type, timestamp, user_id, session_id,
			 resource, action, details, outcome, risk)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.EventID, string(event.EventType), event.Timestamp,
		nullable(event.UserID), nullable(event.SessionID),
		event.Resource, event.Action, details,
		string(event.Outcome), string(event.Risk),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event %s: %w", event.EventID, err)
	}

	return nil
}

// List returns matching events, newest first.
func (r *AuditRepository) List(ctx context.Context, opts persistence.AuditQueryOptions) ([]*models.AuditEvent, error) {
	var (
		conditions []string
		args       []any
	)

	appendCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if opts.UserID != "" {
		appendCondition("user_id = $%d", opts.UserID)
	}

	if !opts.From.IsZero() {
		appendCondition("timestamp >= $%d", opts.From)
	}

	if !opts.To.IsZero() {
		appendCondition("timestamp <= $%d", opts.To)
	}

	if len(opts.EventTypes) > 0 {
		types := make([]string, 0, len(opts.EventTypes))

		for _, eventType := range opts.EventTypes {
			args = append(args, string(eventType))
			types = append(types, fmt.Sprintf("$%d", len(args)))
		}

		conditions = append(conditions, "event_type IN ("+strings.Join(types, ", ")+")")
	}

	query := `
		SELECT event_id, event_type, timestamp, user_id, session_id,
		       resource, action, details, outcome, risk
		FROM audit_events
	`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*models.AuditEvent, 0)

	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return events, nil
}

// Count returns the number of stored events.
func (r *AuditRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}

func scanAuditEvent(rows *sql.Rows) (*models.AuditEvent, error) {
	var (
		event       models.AuditEvent
		eventType   string
		userID      sql.NullString
		sessionID   sql.NullString
		detailsJSON []byte
		outcome     string
		risk        string
	)

	err := rows.Scan(
		&event.EventID, &eventType, &event.Timestamp, &userID, &sessionID,
		&event.Resource, &event.Action, &detailsJSON, &outcome, &risk,
	)
	if err != nil {
		return nil, err
	}

	event.EventType = models.AuditEventType(eventType)
	event.UserID = userID.String
	event.SessionID = sessionID.String
	event.Outcome = models.AuditOutcome(outcome)
	event.Risk = models.RiskLevel(risk)

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit event details: %w", err)
		}
	}

	return &event, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}

	return value
}
