package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// VersionRepository handles workflow version records in PostgreSQL.
type VersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(db *sql.DB, logger *slog.Logger) *VersionRepository {
	return &VersionRepository{db: db, logger: logger}
}

// Save inserts or updates a version record.
func (r *VersionRepository) Save(ctx context.Context, version *models.WorkflowVersion) error {
	nodes, err := json.Marshal(version.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal version nodes: %w", err)
	}

	edges, err := json.Marshal(version.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal version edges: %w", err)
	}

	metadata, err := json.Marshal(version.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal version metadata: %w", err)
	}

	query := `
		INSERT INTO workflow_versions
			(id, workflow_id, version, name, nodes, edges, metadata, status,
			 checksum_nodes, checksum_edges, checksum_full)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata
	`

	_, err = r.db.ExecContext(ctx, query,
		version.ID, version.WorkflowID, version.Version, version.Name,
		nodes, edges, metadata, string(version.Status),
		version.Checksums.Nodes, version.Checksums.Edges, version.Checksums.Full,
	)
	if err != nil {
		return persistence.NewVersionError("Save", version.ID, err)
	}

	return nil
}

// GetByID returns a version by its ID.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowVersion, error) {
	query := `
		SELECT id, workflow_id, version, name, nodes, edges, metadata, status,
		       checksum_nodes, checksum_edges, checksum_full
		FROM workflow_versions
		WHERE id = $1
	`

	version, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewVersionError("GetByID", id, persistence.ErrVersionNotFound)
	}

	if err != nil {
		return nil, persistence.NewVersionError("GetByID", id, err)
	}

	return version, nil
}

// ListByWorkflow returns all versions of a workflow, newest first.
func (r *VersionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	query := `
		SELECT id, workflow_id, version, name, nodes, edges, metadata, status,
		       checksum_nodes, checksum_edges, checksum_full
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowVersionError("ListByWorkflow", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	versions := make([]*models.WorkflowVersion, 0)

	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, persistence.NewWorkflowVersionError("ListByWorkflow", workflowID, err)
		}

		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowVersionError("ListByWorkflow", workflowID, err)
	}

	return versions, nil
}

// Delete removes a version record.
func (r *VersionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_versions WHERE id = $1", id)
	if err != nil {
		return persistence.NewVersionError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewVersionError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewVersionError("Delete", id, persistence.ErrVersionNotFound)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*models.WorkflowVersion, error) {
	var (
		version      models.WorkflowVersion
		status       string
		nodesJSON    []byte
		edgesJSON    []byte
		metadataJSON []byte
	)

	err := row.Scan(
		&version.ID, &version.WorkflowID, &version.Version, &version.Name,
		&nodesJSON, &edgesJSON, &metadataJSON, &status,
		&version.Checksums.Nodes, &version.Checksums.Edges, &version.Checksums.Full,
	)
	if err != nil {
		return nil, err
	}

	version.Status = models.VersionStatus(status)

	if err := json.Unmarshal(nodesJSON, &version.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &version.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version edges: %w", err)
	}

	if err := json.Unmarshal(metadataJSON, &version.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version metadata: %w", err)
	}

	return &version, nil
}
