package postgresql

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// openTestPersistence connects to the database named by
// GATEFLOW_TEST_DATABASE_URL, or skips the test when it is unset.
func openTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	databaseURL := os.Getenv("GATEFLOW_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("GATEFLOW_TEST_DATABASE_URL not set")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewPersistence(context.Background(), logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, p.Close(context.Background()))
	})

	return p
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := openTestPersistence(t)

	require.NoError(t, p.HealthCheck(context.Background()))
}

func TestVersionRepository_RoundTrip(t *testing.T) {
	p := openTestPersistence(t)
	ctx := context.Background()

	workflowID := "wf-" + uuid.New().String()

	version := &models.WorkflowVersion{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Version:    1,
		Name:       "initial",
		Status:     models.VersionStatusActive,
		Nodes: []*models.Node{{
			ID:        "n1",
			BlockType: models.BlockTypeNotification,
			NodeType:  models.NodeTypeAction,
			Config:    map[string]any{"message": "hi"},
			Position:  &models.Position{X: 1, Y: 2},
		}},
		Edges: []*models.Edge{},
		Checksums: models.Checksums{
			Nodes: "aaaa",
			Edges: "bbbb",
			Full:  "cccc",
		},
		Metadata: models.VersionMetadata{
			CreatedBy: "user-1",
			CreatedAt: time.Now().UTC(),
		},
	}

	require.NoError(t, p.VersionRepository().Save(ctx, version))

	loaded, err := p.VersionRepository().GetByID(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, workflowID, loaded.WorkflowID)
	assert.Equal(t, "initial", loaded.Name)
	assert.Equal(t, models.VersionStatusActive, loaded.Status)
	assert.Equal(t, "cccc", loaded.Checksums.Full)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "n1", loaded.Nodes[0].ID)

	// Upsert on conflict updates the mutable columns.
	version.Status = models.VersionStatusArchived
	require.NoError(t, p.VersionRepository().Save(ctx, version))

	loaded, err = p.VersionRepository().GetByID(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusArchived, loaded.Status)

	require.NoError(t, p.VersionRepository().Delete(ctx, version.ID))

	_, err = p.VersionRepository().GetByID(ctx, version.ID)
	assert.ErrorIs(t, err, persistence.ErrVersionNotFound)
}

func TestVersionRepository_ListByWorkflowOrder(t *testing.T) {
	p := openTestPersistence(t)
	ctx := context.Background()

	workflowID := "wf-" + uuid.New().String()

	for number := 1; number <= 3; number++ {
		version := &models.WorkflowVersion{
			ID:         uuid.New().String(),
			WorkflowID: workflowID,
			Version:    number,
			Status:     models.VersionStatusDraft,
			Metadata: models.VersionMetadata{
				CreatedBy: "user-1",
				CreatedAt: time.Now().UTC(),
			},
		}
		require.NoError(t, p.VersionRepository().Save(ctx, version))
	}

	versions, err := p.VersionRepository().ListByWorkflow(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 1, versions[2].Version)
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	p := openTestPersistence(t)
	ctx := context.Background()

	userID := "user-" + uuid.New().String()
	base := time.Now().UTC().Truncate(time.Second)

	for i := range 3 {
		event := &models.AuditEvent{
			EventID:   uuid.New().String(),
			EventType: models.AuditEventUserAction,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    userID,
			Resource:  "workflow:wf-1",
			Action:    "test",
			Details:   map[string]any{"index": i},
			Outcome:   models.AuditOutcomeSuccess,
			Risk:      models.RiskLow,
		}
		require.NoError(t, p.AuditRepository().Append(ctx, event))
	}

	events, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		UserID: userID,
	})
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.True(t, events[0].Timestamp.After(events[2].Timestamp))

	limited, err := p.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		UserID: userID,
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
