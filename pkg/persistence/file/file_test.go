package file

import (
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
			BlockType: models.BlockTypeHTTPRequest,
			NodeType:  models.NodeTypeAction,
			Config:    map[string]any{"url": "https://example.com", "method": "GET"},
			Position:  &models.Position{X: 10, Y: 20},
		}},
		Edges: []*models.Edge{{ID: "e1", Source: "n1", Target: "n1"}},
		Metadata: models.VersionMetadata{
			CreatedBy: "user-1",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			Tags:      []string{"backup"},
		},
	}
}

func TestFilePersistence_RoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	version := sampleVersion("v1", "wf-1", 1)
	require.NoError(t, p.VersionRepository().Save(ctx, version))

	loaded, err := p.VersionRepository().GetByID(ctx, "v1")
	require.NoError(t, err)

	assert.Equal(t, version.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, version.Status, loaded.Status)
	assert.Equal(t, version.Metadata.Tags, loaded.Metadata.Tags)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "https://example.com", loaded.Nodes[0].Config["url"])
}

func TestFilePersistence_GetMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.VersionRepository().GetByID(t.Context(), "nope")
	assert.ErrorIs(t, err, persistence.ErrVersionNotFound)
}

func TestFilePersistence_URLSchemeIsStripped(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)
	ctx := t.Context()

	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v1", "wf-1", 1)))
	require.NoError(t, p.HealthCheck(ctx))

	loaded, err := p.VersionRepository().GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", loaded.ID)
}

func TestFilePersistence_ListByWorkflowNewestFirst(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v2", "wf-1", 2)))
	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v1", "wf-1", 1)))
	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("x1", "wf-2", 1)))

	versions, err := p.VersionRepository().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, 1, versions[1].Version)
}

func TestFilePersistence_ListEmptyWorkflow(t *testing.T) {
	p := NewPersistence(t.TempDir())

	versions, err := p.VersionRepository().ListByWorkflow(t.Context(), "wf-none")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestFilePersistence_Delete(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.VersionRepository().Save(ctx, sampleVersion("v1", "wf-1", 1)))
	require.NoError(t, p.VersionRepository().Delete(ctx, "v1"))

	assert.ErrorIs(t, p.VersionRepository().Delete(ctx, "v1"), persistence.ErrVersionNotFound)
}

func TestFileAudit_AppendListCount(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()
	now := time.Now().UTC()

	for i, id := range []string{"e1", "e2", "e3"} {
		event := &models.AuditEvent{
			EventID:   id,
			EventType: models.AuditEventWorkflowValidation,
			Timestamp: now.Add(time.Duration(i) * time.Second),
			UserID:    "user-1",
			Resource:  "workflow:wf-1",
			Action:    "validate",
			Outcome:   models.AuditOutcomeSuccess,
			Risk:      models.RiskLow,
		}
		require.NoError(t, p.AuditRepository().Append(ctx, event))
	}

	count, err := p.AuditRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	events, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e3", events[0].EventID)

	limited, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFileAudit_RejectsInvalidEvents(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.AuditRepository().Append(t.Context(), &models.AuditEvent{EventID: "e1"})
	assert.ErrorIs(t, err, persistence.ErrAuditEventInvalid)
}
