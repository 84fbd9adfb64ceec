// Package persistence provides the data storage abstraction for workflow
// versions and audit events. The validation core never talks to a backend
// directly; it programs against these interfaces so the in-memory
// reference store, the file store and the PostgreSQL store are
// interchangeable without touching core logic.
package persistence

import (
	"context"
	"time"

	"github.com/gateflow/gateflow/pkg/models"
)

// VersionRepository stores workflow version snapshots.
type VersionRepository interface {
	// Save inserts or updates a version record.
	Save(ctx context.Context, version *models.WorkflowVersion) error
	// GetByID returns a version by its ID, or ErrVersionNotFound.
	GetByID(ctx context.Context, id string) (*models.WorkflowVersion, error)
	// ListByWorkflow returns all versions of a workflow, newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error)
	// Delete removes a version record by ID.
	Delete(ctx context.Context, id string) error
}

// AuditQueryOptions filter audit event listings. Zero values mean
// "no constraint"; results are always newest first.
type AuditQueryOptions struct {
	UserID     string
	EventTypes []models.AuditEventType
	From       time.Time
	To         time.Time
	Limit      int
}

// AuditRepository stores the append-only audit trail. Events, once
// appended, are never modified.
type AuditRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	List(ctx context.Context, opts AuditQueryOptions) ([]*models.AuditEvent, error)
	Count(ctx context.Context) (int, error)
}

// Persistence bundles the repositories behind a single backend handle.
type Persistence interface {
	VersionRepository() VersionRepository
	AuditRepository() AuditRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Matches reports whether an event satisfies the query options, ignoring
// Limit. Shared by backends that filter in memory.
func (o AuditQueryOptions) Matches(event *models.AuditEvent) bool {
	if o.UserID != "" && event.UserID != o.UserID {
		return false
	}

	if !o.From.IsZero() && event.Timestamp.Before(o.From) {
		return false
	}

	if !o.To.IsZero() && event.Timestamp.After(o.To) {
		return false
	}

	if len(o.EventTypes) > 0 {
		found := false

		for _, eventType := range o.EventTypes {
			if event.EventType == eventType {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
