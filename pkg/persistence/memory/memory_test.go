package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVersion(id, workflowID string, number int) *models.WorkflowVersion {
	return &models.WorkflowVersion{
		ID:         id,
		WorkflowID: workflowID,
		Version:    number,
		Status:     models.VersionStatusDraft,
		Nodes: []*models.Node{{
			ID:        "n1",
			BlockType: models.BlockTypeNotification,
			NodeType:  models.NodeTypeAction,
			Config:    map[string]any{"message": "hi"},
			Position:  &models.Position{X: 1, Y: 2},
		}},
		Metadata: models.VersionMetadata{
			CreatedBy: "user-1",
			CreatedAt: time.Now().UTC(),
		},
	}
}

func sampleEvent(id string, eventType models.AuditEventType, at time.Time) *models.AuditEvent {
	return &models.AuditEvent{
		EventID:   id,
		EventType: eventType,
		Timestamp: at,
		UserID:    "user-1",
		Resource:  "workflow:wf-1",
		Action:    "test",
		Outcome:   models.AuditOutcomeSuccess,
		Risk:      models.RiskLow,
	}
}

func TestVersionRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()

	version := sampleVersion("v1", "wf-1", 1)
	require.NoError(t, p.VersionRepository().Save(ctx, version))

	loaded, err := p.VersionRepository().GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, version.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, version.Version, loaded.Version)
}

func TestVersionRepository_GetMissing(t *testing.T) {
	p := NewPersistence()

	_, err := p.VersionRepository().GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, persistence.ErrVersionNotFound)
}

func TestVersionRepository_StoredCopiesAreIsolated(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()

	version := sampleVersion("v1", "wf-1", 1)
	require.NoError(t, p.VersionRepository().Save(ctx, version))

	// Mutating the saved pointer must not affect the stored record.
	version.Status = models.VersionStatusActive
	version.Nodes[0].Config["message"] = "tampered"

	loaded, err := p.VersionRepository().GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusDraft, loaded.Status)
	assert.Equal(t, "hi", loaded.Nodes[0].Config["message"])

	// Mutating a loaded copy must not affect later reads.
	loaded.Nodes[0].Config["message"] = "also tampered"

	reloaded, err := p.VersionRepository().GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "hi", reloaded.Nodes[0].Config["message"])
}

func TestVersionRepository_ListByWorkflowNewestFirst(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()

	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v1", "wf-1", 1)))
	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v3", "wf-1", 3)))
	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v2", "wf-1", 2)))
	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("other", "wf-2", 1)))

	versions, err := p.VersionRepository().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
	assert.Equal(t, 1, versions[2].Version)
}

func TestVersionRepository_Delete(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()

	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v1", "wf-1", 1)))
	require.NoError(t, p.VersionRepository().Delete(ctx, "v1"))

	assert.ErrorIs(t, p.VersionRepository().Delete(ctx, "v1"), persistence.ErrVersionNotFound)
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, p.AuditRepository().Append(ctx, sampleEvent("e1", models.AuditEventUserAction, now.Add(-2*time.Hour))))
	require.NoError(t, p.AuditRepository().Append(ctx, sampleEvent("e2", models.AuditEventWorkflowValidation, now.Add(-time.Hour))))
	require.NoError(t, p.AuditRepository().Append(ctx, sampleEvent("e3", models.AuditEventUserAction, now)))

	events, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e3", events[0].EventID)
	assert.Equal(t, "e1", events[2].EventID)
}

func TestAuditRepository_RejectsInvalidEvents(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()

	err := p.AuditRepository().Append(ctx, &models.AuditEvent{EventType: models.AuditEventUserAction})
	assert.ErrorIs(t, err, persistence.ErrAuditEventInvalid)

	err = p.AuditRepository().Append(ctx, &models.AuditEvent{EventID: "e1"})
	assert.ErrorIs(t, err, persistence.ErrAuditEventInvalid)
}

func TestAuditRepository_QueryFilters(t *testing.T) {
	p := NewPersistence()
	ctx := context.Background()
	now := time.Now().UTC()

	older := sampleEvent("e1", models.AuditEventUserAction, now.Add(-3*time.Hour))
	older.UserID = "someone-else"
	require.NoError(t, p.AuditRepository().Append(ctx, older))
	require.NoError(t, p.AuditRepository().Append(ctx, sampleEvent("e2", models.AuditEventSecurityViolation, now.Add(-time.Hour))))
	require.NoError(t, p.AuditRepository().Append(ctx, sampleEvent("e3", models.AuditEventUserAction, now)))

	byUser, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byType, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		EventTypes: []models.AuditEventType{models.AuditEventSecurityViolation},
	})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "e2", byType[0].EventID)

	recent, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{From: now.Add(-90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "e3", limited[0].EventID)
}

func TestAuditRepository_CapacityEvictsOldest(t *testing.T) {
	p := NewPersistenceWithCapacity(5)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 8; i++ {
		event := sampleEvent(fmt.Sprintf("e%d", i), models.AuditEventUserAction, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, p.AuditRepository().Append(ctx, event))
	}

	count, err := p.AuditRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	events, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "e7", events[0].EventID)
	assert.Equal(t, "e3", events[4].EventID)
}
