package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/otelhelper"
	"github.com/gateflow/gateflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Retention thresholds: once a workflow accumulates more than
// maxVersionsPerWorkflow stored versions, all but the newest
// retainedNonActiveVersions non-active versions are archived. The active
// version is never auto-archived.
const (
	maxVersionsPerWorkflow    = 50
	retainedNonActiveVersions = 20
)

// rollbackWarningDistance is how many versions back a rollback may reach
// before a compatibility-risk warning is emitted.
const rollbackWarningDistance = 5

// Tags attached to automatic pre-rollback snapshots.
const (
	TagBackup   = "backup"
	TagRollback = "rollback"
)

// Caller-contract violations. These indicate misuse of the store, not
// untrusted input, and fail fast at the call site.
var (
	// ErrVersionNotFound is returned when a referenced version does not exist.
	ErrVersionNotFound = persistence.ErrVersionNotFound

	// ErrVersionWorkflowMismatch indicates the version exists but belongs to another workflow.
	ErrVersionWorkflowMismatch = errors.New("version does not belong to workflow")

	// ErrDeleteActiveVersion indicates an attempt to delete the active version.
	ErrDeleteActiveVersion = errors.New("cannot delete the active version")

	// ErrArchiveActiveVersion indicates an attempt to archive the active version.
	ErrArchiveActiveVersion = errors.New("cannot archive the active version")

	// ErrNoVersions indicates the workflow has no stored versions.
	ErrNoVersions = errors.New("workflow has no versions")
)

// Store is the content-addressed version store. Mutating operations are
// serialized per workflow to uphold the single-active and monotonic
// numbering invariants; reads go straight to the repository.
type Store struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	tracer      trace.Tracer

	mu            sync.Mutex
	workflowLocks map[string]*sync.Mutex
}

// StoreOption configures optional store collaborators.
type StoreOption func(*Store)

// WithTracer attaches a tracer; mutating operations become spans.
func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// NewStore creates a version store over the given persistence backend.
func NewStore(p persistence.Persistence, logger *slog.Logger, opts ...StoreOption) *Store {
	store := &Store{
		persistence:   p,
		logger:        logger,
		workflowLocks: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// CreateVersionRequest carries the content and provenance of a snapshot.
type CreateVersionRequest struct {
	WorkflowID       string `validate:"required"`
	Name             string
	Nodes            []*models.Node
	Edges            []*models.Edge
	CreatedBy        string
	GenerationPrompt string
	ParentVersionID  string
	Tags             []string
}

// CreateVersion snapshots graph content as a new version.
//
// Content addressing: if an existing version of the workflow has an
// identical full checksum, that version is returned unchanged and no
// record is created. Otherwise the next monotonic version number is
// allocated; the first version of a workflow defaults to active, all
// later ones to draft. Exceeding the retention threshold archives old
// non-active versions.
func (s *Store) CreateVersion(ctx context.Context, req CreateVersionRequest) (*models.WorkflowVersion, error) {
	unlock := s.lockWorkflow(req.WorkflowID)
	defer unlock()

	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "versioning.create",
			attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID))
		defer span.End()
	}

	return s.createLocked(ctx, req, true)
}

func (s *Store) createLocked(ctx context.Context, req CreateVersionRequest, deduplicate bool) (*models.WorkflowVersion, error) {
	checksums := ComputeChecksums(req.Nodes, req.Edges)

	versions, err := s.persistence.VersionRepository().ListByWorkflow(ctx, req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for workflow %s: %w", req.WorkflowID, err)
	}

	if deduplicate {
		for _, existing := range versions {
			if existing.Checksums.Full == checksums.Full {
				s.logger.DebugContext(ctx, "Version content already stored",
					"workflow_id", req.WorkflowID,
					"version_id", existing.ID)

				return existing, nil
			}
		}
	}

	nextNumber := 1
	if len(versions) > 0 {
		// ListByWorkflow returns newest first.
		nextNumber = versions[0].Version + 1
	}

	status := models.VersionStatusDraft
	if len(versions) == 0 {
		status = models.VersionStatusActive
	}

	version := &models.WorkflowVersion{
		ID:         uuid.New().String(),
		WorkflowID: req.WorkflowID,
		Version:    nextNumber,
		Name:       req.Name,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		Status:     status,
		Checksums:  checksums,
		Metadata: models.VersionMetadata{
			CreatedBy:        req.CreatedBy,
			CreatedAt:        time.Now().UTC(),
			GenerationPrompt: req.GenerationPrompt,
			ParentVersionID:  req.ParentVersionID,
			Tags:             req.Tags,
		},
	}

	if err := s.persistence.VersionRepository().Save(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to save version: %w", err)
	}

	s.logger.InfoContext(ctx, "Created workflow version",
		"workflow_id", req.WorkflowID,
		"version", version.Version,
		"status", version.Status)

	if err := s.applyRetention(ctx, append([]*models.WorkflowVersion{version}, versions...)); err != nil {
		return nil, err
	}

	return version, nil
}

// applyRetention archives everything beyond the newest non-active
// versions once the total exceeds the threshold.
func (s *Store) applyRetention(ctx context.Context, versions []*models.WorkflowVersion) error {
	if len(versions) <= maxVersionsPerWorkflow {
		return nil
	}

	nonActive := 0

	for _, version := range versions {
		if version.Status == models.VersionStatusActive {
			continue
		}

		nonActive++

		if nonActive <= retainedNonActiveVersions || version.Status == models.VersionStatusArchived {
			continue
		}

		version.Status = models.VersionStatusArchived

		if err := s.persistence.VersionRepository().Save(ctx, version); err != nil {
			return fmt.Errorf("failed to archive version %s: %w", version.ID, err)
		}

		s.logger.DebugContext(ctx, "Archived version by retention",
			"workflow_id", version.WorkflowID,
			"version", version.Version)
	}

	return nil
}

// ActivateVersion atomically makes the target version the single active
// one: any currently active version moves to draft first.
func (s *Store) ActivateVersion(ctx context.Context, workflowID, versionID string) error {
	unlock := s.lockWorkflow(workflowID)
	defer unlock()

	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "versioning.activate",
			attribute.String(otelhelper.WorkflowIDKey, workflowID),
			attribute.String(otelhelper.VersionIDKey, versionID))
		defer span.End()
	}

	return s.activateLocked(ctx, workflowID, versionID)
}

func (s *Store) activateLocked(ctx context.Context, workflowID, versionID string) error {
	target, err := s.getWorkflowVersion(ctx, workflowID, versionID)
	if err != nil {
		return err
	}

	if target.Status == models.VersionStatusActive {
		return nil
	}

	current, err := s.activeVersion(ctx, workflowID)
	if err != nil {
		return err
	}

	if current != nil {
		current.Status = models.VersionStatusDraft

		if err := s.persistence.VersionRepository().Save(ctx, current); err != nil {
			return fmt.Errorf("failed to deactivate version %s: %w", current.ID, err)
		}
	}

	target.Status = models.VersionStatusActive

	if err := s.persistence.VersionRepository().Save(ctx, target); err != nil {
		return fmt.Errorf("failed to activate version %s: %w", target.ID, err)
	}

	s.logger.InfoContext(ctx, "Activated workflow version",
		"workflow_id", workflowID,
		"version", target.Version)

	return nil
}

// RollbackOptions control a rollback operation.
type RollbackOptions struct {
	PerformedBy  string
	Reason       string
	CreateBackup bool
}

// RollbackResult reports the outcome of a rollback.
type RollbackResult struct {
	Success      bool                    `json:"success"`
	RolledBackTo *models.WorkflowVersion `json:"rolled_back_to"`
	Backup       *models.WorkflowVersion `json:"backup,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
}

// Rollback activates an earlier version. With CreateBackup set, the
// current active content is first snapshotted as a new version tagged
// backup/rollback so the pre-rollback state remains addressable. Rolling
// back more than rollbackWarningDistance versions emits a
// compatibility-risk warning.
func (s *Store) Rollback(ctx context.Context, workflowID, targetVersionID string, opts RollbackOptions) (*RollbackResult, error) {
	unlock := s.lockWorkflow(workflowID)
	defer unlock()

	var span trace.Span

	if s.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "versioning.rollback",
			attribute.String(otelhelper.WorkflowIDKey, workflowID),
			attribute.String(otelhelper.VersionIDKey, targetVersionID),
			attribute.String(otelhelper.UserIDKey, opts.PerformedBy))
		defer span.End()
	}

	target, err := s.getWorkflowVersion(ctx, workflowID, targetVersionID)
	if err != nil {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		return nil, err
	}

	current, err := s.activeVersion(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	result := &RollbackResult{Warnings: make([]string, 0)}

	if current != nil && current.Version-target.Version > rollbackWarningDistance {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"rolling back %d versions (from %d to %d): configuration drift may make this version incompatible",
			current.Version-target.Version, current.Version, target.Version))
	}

	if opts.CreateBackup && current != nil {
		// Deduplication is bypassed on purpose: the backup's content
		// matches the active version by definition.
		backup, err := s.createLocked(ctx, CreateVersionRequest{
			WorkflowID:      workflowID,
			Name:            current.Name + " (pre-rollback backup)",
			Nodes:           current.Nodes,
			Edges:           current.Edges,
			CreatedBy:       opts.PerformedBy,
			ParentVersionID: current.ID,
			Tags:            []string{TagBackup, TagRollback},
		}, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create pre-rollback backup: %w", err)
		}

		result.Backup = backup
	}

	if err := s.activateLocked(ctx, workflowID, targetVersionID); err != nil {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		return nil, err
	}

	rolledBackTo, err := s.persistence.VersionRepository().GetByID(ctx, targetVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload rollback target: %w", err)
	}

	if span != nil {
		span.SetAttributes(attribute.Int(otelhelper.VersionNumKey, rolledBackTo.Version))
	}

	result.Success = true
	result.RolledBackTo = rolledBackTo

	s.logger.InfoContext(ctx, "Rolled back workflow",
		"workflow_id", workflowID,
		"to_version", rolledBackTo.Version,
		"performed_by", opts.PerformedBy,
		"reason", opts.Reason)

	return result, nil
}

// CompareVersions computes the diff between two versions of the same
// workflow.
func (s *Store) CompareVersions(ctx context.Context, fromVersionID, toVersionID string) (*VersionDiff, error) {
	from, err := s.persistence.VersionRepository().GetByID(ctx, fromVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load diff source: %w", err)
	}

	to, err := s.persistence.VersionRepository().GetByID(ctx, toVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load diff target: %w", err)
	}

	if from.WorkflowID != to.WorkflowID {
		return nil, fmt.Errorf("compare %s with %s: %w", fromVersionID, toVersionID, ErrVersionWorkflowMismatch)
	}

	return diffVersions(from, to), nil
}

// GetVersionHistory returns all versions of a workflow, newest first.
func (s *Store) GetVersionHistory(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	return s.persistence.VersionRepository().ListByWorkflow(ctx, workflowID)
}

// GetActiveVersion returns the active version of a workflow, or
// ErrNoVersions when none is active.
func (s *Store) GetActiveVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	active, err := s.activeVersion(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if active == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNoVersions)
	}

	return active, nil
}

// VersionStats aggregates version history for a workflow.
type VersionStats struct {
	WorkflowID    string                       `json:"workflow_id"`
	TotalVersions int                          `json:"total_versions"`
	ByStatus      map[models.VersionStatus]int `json:"by_status"`
	LatestVersion int                          `json:"latest_version"`
	ActiveVersion int                          `json:"active_version,omitempty"`
	FirstCreated  time.Time                    `json:"first_created"`
	LastCreated   time.Time                    `json:"last_created"`
}

// GetVersionStats summarizes the stored history of a workflow.
func (s *Store) GetVersionStats(ctx context.Context, workflowID string) (*VersionStats, error) {
	versions, err := s.persistence.VersionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for workflow %s: %w", workflowID, err)
	}

	stats := &VersionStats{
		WorkflowID: workflowID,
		ByStatus:   make(map[models.VersionStatus]int),
	}

	for _, version := range versions {
		stats.TotalVersions++
		stats.ByStatus[version.Status]++

		if version.Version > stats.LatestVersion {
			stats.LatestVersion = version.Version
		}

		if version.Status == models.VersionStatusActive {
			stats.ActiveVersion = version.Version
		}

		createdAt := version.Metadata.CreatedAt
		if stats.FirstCreated.IsZero() || createdAt.Before(stats.FirstCreated) {
			stats.FirstCreated = createdAt
		}

		if createdAt.After(stats.LastCreated) {
			stats.LastCreated = createdAt
		}
	}

	return stats, nil
}

// ArchiveVersion retires a version. The active version cannot be archived.
func (s *Store) ArchiveVersion(ctx context.Context, workflowID, versionID string) error {
	unlock := s.lockWorkflow(workflowID)
	defer unlock()

	version, err := s.getWorkflowVersion(ctx, workflowID, versionID)
	if err != nil {
		return err
	}

	if version.Status == models.VersionStatusActive {
		return fmt.Errorf("version %s: %w", versionID, ErrArchiveActiveVersion)
	}

	version.Status = models.VersionStatusArchived

	if err := s.persistence.VersionRepository().Save(ctx, version); err != nil {
		return fmt.Errorf("failed to archive version %s: %w", versionID, err)
	}

	return nil
}

// DeleteVersion removes a version record. The active version cannot be
// deleted.
func (s *Store) DeleteVersion(ctx context.Context, workflowID, versionID string) error {
	unlock := s.lockWorkflow(workflowID)
	defer unlock()

	version, err := s.getWorkflowVersion(ctx, workflowID, versionID)
	if err != nil {
		return err
	}

	if version.Status == models.VersionStatusActive {
		return fmt.Errorf("version %s: %w", versionID, ErrDeleteActiveVersion)
	}

	return s.persistence.VersionRepository().Delete(ctx, versionID)
}

// getWorkflowVersion loads a version and verifies workflow ownership.
func (s *Store) getWorkflowVersion(ctx context.Context, workflowID, versionID string) (*models.WorkflowVersion, error) {
	version, err := s.persistence.VersionRepository().GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if version.WorkflowID != workflowID {
		return nil, fmt.Errorf("version %s: %w", versionID, ErrVersionWorkflowMismatch)
	}

	return version, nil
}

func (s *Store) activeVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	versions, err := s.persistence.VersionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for workflow %s: %w", workflowID, err)
	}

	for _, version := range versions {
		if version.Status == models.VersionStatusActive {
			return version, nil
		}
	}

	return nil, nil
}

// lockWorkflow serializes mutating operations per workflow.
func (s *Store) lockWorkflow(workflowID string) func() {
	s.mu.Lock()

	lock, ok := s.workflowLocks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		s.workflowLocks[workflowID] = lock
	}

	s.mu.Unlock()
	lock.Lock()

	return lock.Unlock
}
