// Package memory provides the in-memory reference persistence backend.
// It is the default for tests and single-process deployments; state is
// lost on shutdown. The audit store is bounded: once capacity is
// exceeded, the oldest events are evicted first.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// DefaultAuditCapacity bounds the in-memory audit trail.
const DefaultAuditCapacity = 10000

// Persistence implements persistence.Persistence with in-process maps.
// Reads proceed concurrently under a reader-writer discipline; mutations
// are serialized.
type Persistence struct {
	versionRepo *VersionRepository
	auditRepo   *AuditRepository
}

// NewPersistence creates an in-memory backend with the default audit
// capacity.
func NewPersistence() *Persistence {
	return NewPersistenceWithCapacity(DefaultAuditCapacity)
}

// NewPersistenceWithCapacity creates an in-memory backend with an explicit
// audit trail bound.
func NewPersistenceWithCapacity(auditCapacity int) *Persistence {
	return &Persistence{
		versionRepo: &VersionRepository{versions: make(map[string]*models.WorkflowVersion)},
		auditRepo:   &AuditRepository{capacity: auditCapacity},
	}
}

// VersionRepository returns the version repository.
func (p *Persistence) VersionRepository() persistence.VersionRepository {
	return p.versionRepo
}

// AuditRepository returns the audit repository.
func (p *Persistence) AuditRepository() persistence.AuditRepository {
	return p.auditRepo
}

// HealthCheck always succeeds for the in-memory backend.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// VersionRepository stores version snapshots keyed by ID.
type VersionRepository struct {
	mu       sync.RWMutex
	versions map[string]*models.WorkflowVersion
}

// Save inserts or updates a version record. The stored record is a copy;
// callers cannot mutate repository state through retained pointers.
func (r *VersionRepository) Save(_ context.Context, version *models.WorkflowVersion) error {
	if version.ID == "" {
		return persistence.NewVersionError("Save", version.ID, persistence.ErrVersionNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.versions[version.ID] = copyVersion(version)

	return nil
}

// GetByID returns a copy of the version with the given ID.
func (r *VersionRepository) GetByID(_ context.Context, id string) (*models.WorkflowVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, ok := r.versions[id]
	if !ok {
		return nil, persistence.NewVersionError("GetByID", id, persistence.ErrVersionNotFound)
	}

	return copyVersion(version), nil
}

// ListByWorkflow returns all versions of a workflow, newest first.
func (r *VersionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]*models.WorkflowVersion, 0)

	for _, version := range r.versions {
		if version.WorkflowID == workflowID {
			versions = append(versions, copyVersion(version))
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})

	return versions, nil
}

// Delete removes a version record.
func (r *VersionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.versions[id]; !ok {
		return persistence.NewVersionError("Delete", id, persistence.ErrVersionNotFound)
	}

	delete(r.versions, id)

	return nil
}

// AuditRepository stores audit events in an append-only bounded slice.
type AuditRepository struct {
	mu       sync.RWMutex
	events   []*models.AuditEvent
	capacity int
}

// Append adds an event, evicting the oldest entries once capacity is
// exceeded. Eviction is an amortized O(1) trim, synchronized with
// concurrent appends by the repository lock.
func (r *AuditRepository) Append(_ context.Context, event *models.AuditEvent) error {
	if event.EventID == "" || event.EventType == "" {
		return persistence.ErrAuditEventInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	copied.Details = models.CopyMap(event.Details)
	r.events = append(r.events, &copied)

	if r.capacity > 0 && len(r.events) > r.capacity {
		overflow := len(r.events) - r.capacity
		r.events = append(r.events[:0:0], r.events[overflow:]...)
	}

	return nil
}

// List returns matching events, newest first.
func (r *AuditRepository) List(_ context.Context, opts persistence.AuditQueryOptions) ([]*models.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.AuditEvent, 0)

	for i := len(r.events) - 1; i >= 0; i-- {
		event := r.events[i]

		if !opts.Matches(event) {
			continue
		}

		copied := *event
		copied.Details = models.CopyMap(event.Details)
		matched = append(matched, &copied)

		if opts.Limit > 0 && len(matched) >= opts.Limit {
			break
		}
	}

	return matched, nil
}

// Count returns the number of retained events.
func (r *AuditRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.events), nil
}

func copyVersion(version *models.WorkflowVersion) *models.WorkflowVersion {
	copied := *version

	copied.Nodes = make([]*models.Node, len(version.Nodes))
	for i, node := range version.Nodes {
		copied.Nodes[i] = node.Clone()
	}

	copied.Edges = make([]*models.Edge, len(version.Edges))
	for i, edge := range version.Edges {
		edgeCopy := *edge
		copied.Edges[i] = &edgeCopy
	}

	if version.Metadata.Tags != nil {
		copied.Metadata.Tags = append([]string(nil), version.Metadata.Tags...)
	}

	return &copied
}
