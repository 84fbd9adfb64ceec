package versioning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(memory.NewPersistence(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func createRequest(workflowID, label string) CreateVersionRequest {
	return CreateVersionRequest{
		WorkflowID: workflowID,
		Name:       label,
		Nodes:      []*models.Node{checksumNode("n1", label)},
		Edges:      []*models.Edge{{ID: "e1", Source: "n1", Target: "n1"}},
		CreatedBy:  "user-1",
	}
}

func TestStore_CreateVersion_NumbersMonotonically(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)
	third, err := store.CreateVersion(ctx, createRequest("wf-1", "three"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 3, third.Version)

	// Only the first version is active by default.
	assert.Equal(t, models.VersionStatusActive, first.Status)
	assert.Equal(t, models.VersionStatusDraft, second.Status)
	assert.Equal(t, models.VersionStatusDraft, third.Status)
}

func TestStore_CreateVersion_DeduplicatesIdenticalContent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "same"))
	require.NoError(t, err)

	duplicate, err := store.CreateVersion(ctx, createRequest("wf-1", "same"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, duplicate.ID)

	history, err := store.GetVersionHistory(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_CreateVersion_SameContentDifferentWorkflows(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "same"))
	require.NoError(t, err)

	other, err := store.CreateVersion(ctx, createRequest("wf-2", "same"))
	require.NoError(t, err)

	// Deduplication is scoped per workflow.
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 1, other.Version)
}

func TestStore_ActivateVersion_SingleActiveInvariant(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)

	require.NoError(t, store.ActivateVersion(ctx, "wf-1", second.ID))

	history, err := store.GetVersionHistory(ctx, "wf-1")
	require.NoError(t, err)

	activeCount := 0
	for _, version := range history {
		if version.Status == models.VersionStatusActive {
			activeCount++
			assert.Equal(t, second.ID, version.ID)
		}
	}

	assert.Equal(t, 1, activeCount)
}

func TestStore_ActivateVersion_WrongWorkflow(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	version, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)

	err = store.ActivateVersion(ctx, "wf-2", version.ID)
	assert.ErrorIs(t, err, ErrVersionWorkflowMismatch)
}

func TestStore_Rollback_CreatesTaggedBackup(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)
	require.NoError(t, store.ActivateVersion(ctx, "wf-1", second.ID))

	result, err := store.Rollback(ctx, "wf-1", first.ID, RollbackOptions{
		PerformedBy:  "user-1",
		Reason:       "two broke production",
		CreateBackup: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, first.ID, result.RolledBackTo.ID)
	assert.Equal(t, models.VersionStatusActive, result.RolledBackTo.Status)

	// The backup snapshots the pre-rollback content even though it is
	// byte-identical to an existing version.
	require.NotNil(t, result.Backup)
	assert.Equal(t, 3, result.Backup.Version)
	assert.True(t, result.Backup.HasTag(TagBackup))
	assert.True(t, result.Backup.HasTag(TagRollback))
	assert.Equal(t, second.ID, result.Backup.Metadata.ParentVersionID)

	active, err := store.GetActiveVersion(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestStore_Rollback_WithoutBackup(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)
	require.NoError(t, store.ActivateVersion(ctx, "wf-1", second.ID))

	result, err := store.Rollback(ctx, "wf-1", first.ID, RollbackOptions{})
	require.NoError(t, err)

	assert.Nil(t, result.Backup)
	assert.Empty(t, result.Warnings)

	history, err := store.GetVersionHistory(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStore_Rollback_DistantTargetWarns(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "v1"))
	require.NoError(t, err)

	var latest *models.WorkflowVersion
	for i := 2; i <= rollbackWarningDistance+2; i++ {
		latest, err = store.CreateVersion(ctx, createRequest("wf-1", fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}

	require.NoError(t, store.ActivateVersion(ctx, "wf-1", latest.ID))

	result, err := store.Rollback(ctx, "wf-1", first.ID, RollbackOptions{})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "rolling back")
}

func TestStore_CompareVersions(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)

	diff, err := store.CompareVersions(ctx, first.ID, second.ID)
	require.NoError(t, err)

	require.Len(t, diff.ModifiedNodes, 1)
	assert.Contains(t, diff.ModifiedNodes[0].ChangedFields, "label")
	assert.False(t, diff.SignificantChanges)

	// Comparing a version with itself yields no changes.
	self, err := store.CompareVersions(ctx, first.ID, first.ID)
	require.NoError(t, err)
	assert.Zero(t, self.TotalChanges())
}

func TestStore_CompareVersions_DifferentWorkflows(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	other, err := store.CreateVersion(ctx, createRequest("wf-2", "one"))
	require.NoError(t, err)

	_, err = store.CompareVersions(ctx, first.ID, other.ID)
	assert.ErrorIs(t, err, ErrVersionWorkflowMismatch)
}

func TestStore_ArchiveAndDeleteGuards(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	active, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	draft, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.ArchiveVersion(ctx, "wf-1", active.ID), ErrArchiveActiveVersion)
	assert.ErrorIs(t, store.DeleteVersion(ctx, "wf-1", active.ID), ErrDeleteActiveVersion)

	require.NoError(t, store.ArchiveVersion(ctx, "wf-1", draft.ID))
	require.NoError(t, store.DeleteVersion(ctx, "wf-1", draft.ID))

	history, err := store.GetVersionHistory(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_GetActiveVersion_NoVersions(t *testing.T) {
	store := newTestStore()

	_, err := store.GetActiveVersion(context.Background(), "wf-missing")
	assert.ErrorIs(t, err, ErrNoVersions)
}

func TestStore_Retention_ArchivesOldDrafts(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	for i := 1; i <= maxVersionsPerWorkflow+1; i++ {
		_, err := store.CreateVersion(ctx, createRequest("wf-1", fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}

	history, err := store.GetVersionHistory(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, history, maxVersionsPerWorkflow+1)

	archived := 0
	drafts := 0
	activeCount := 0

	for _, version := range history {
		switch version.Status {
		case models.VersionStatusArchived:
			archived++
		case models.VersionStatusDraft:
			drafts++
		case models.VersionStatusActive:
			activeCount++
		}
	}

	// Version 1 stays active, the newest drafts are retained, the rest
	// were archived by retention.
	assert.Equal(t, 1, activeCount)
	assert.Equal(t, retainedNonActiveVersions, drafts)
	assert.Equal(t, maxVersionsPerWorkflow-retainedNonActiveVersions, archived)
}

func TestStore_GetVersionStats(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.CreateVersion(ctx, createRequest("wf-1", "one"))
	require.NoError(t, err)
	second, err := store.CreateVersion(ctx, createRequest("wf-1", "two"))
	require.NoError(t, err)
	require.NoError(t, store.ActivateVersion(ctx, "wf-1", second.ID))

	stats, err := store.GetVersionStats(ctx, "wf-1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalVersions)
	assert.Equal(t, 2, stats.LatestVersion)
	assert.Equal(t, 2, stats.ActiveVersion)
	assert.Equal(t, 1, stats.ByStatus[models.VersionStatusActive])
	assert.Equal(t, 1, stats.ByStatus[models.VersionStatusDraft])
	assert.False(t, stats.FirstCreated.IsZero())
	assert.False(t, stats.LastCreated.Before(stats.FirstCreated))
}
