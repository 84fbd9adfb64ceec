package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

const recordFileMode = 0o644

// VersionRepository stores one JSON file per version under
// {root}/versions/{id}.json.
type VersionRepository struct {
	root string
}

// NewVersionRepository creates a file-backed version repository.
func NewVersionRepository(root string) *VersionRepository {
	return &VersionRepository{root: root}
}

// Save writes the version record to disk, creating the directory on first
// use.
func (r *VersionRepository) Save(_ context.Context, version *models.WorkflowVersion) error {
	if version.ID == "" {
		return persistence.NewVersionError("Save", version.ID, persistence.ErrVersionNotFound)
	}

	dir := r.versionsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create versions directory: %w", err)
	}

	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal version %s: %w", version.ID, err)
	}

	filename := path.Join(dir, version.ID+".json")
	if err := os.WriteFile(filename, data, recordFileMode); err != nil {
		return fmt.Errorf("failed to write version file %s: %w", filename, err)
	}

	return nil
}

// GetByID reads a version record from disk.
func (r *VersionRepository) GetByID(_ context.Context, id string) (*models.WorkflowVersion, error) {
	filename := path.Join(r.versionsDir(), id+".json")

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewVersionError("GetByID", id, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to read version file %s: %w", filename, err)
	}

	var version models.WorkflowVersion
	if err := json.Unmarshal(data, &version); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version %s: %w", id, err)
	}

	return &version, nil
}

// ListByWorkflow loads every stored version of a workflow, newest first.
func (r *VersionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	dir := r.versionsDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return make([]*models.WorkflowVersion, 0), nil
	}

	root := os.DirFS(dir)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list version files: %w", err)
	}

	versions := make([]*models.WorkflowVersion, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		version, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load version %s: %w", id, err)
		}

		if version.WorkflowID == workflowID {
			versions = append(versions, version)
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})

	return versions, nil
}

// Delete removes a version record file.
func (r *VersionRepository) Delete(_ context.Context, id string) error {
	filename := path.Join(r.versionsDir(), id+".json")

	err := os.Remove(filename)
	if os.IsNotExist(err) {
		return persistence.NewVersionError("Delete", id, persistence.ErrVersionNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete version file %s: %w", filename, err)
	}

	return nil
}

func (r *VersionRepository) versionsDir() string {
	return path.Join(r.root, "versions")
}
