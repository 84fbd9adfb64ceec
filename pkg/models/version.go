// Package models defines versioning models for accepted workflow graphs.
package models

import "time"

// VersionStatus represents the lifecycle state of a stored workflow version.
type VersionStatus string

const (
	VersionStatusDraft      VersionStatus = "draft"      // Stored, not canonical
	VersionStatusActive     VersionStatus = "active"     // The single executable version
	VersionStatusArchived   VersionStatus = "archived"   // Retired by retention
	VersionStatusDeprecated VersionStatus = "deprecated" // Explicitly retired
)

// VersionMetadata carries provenance for a stored version.
type VersionMetadata struct {
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	GenerationPrompt string    `json:"generation_prompt,omitempty"`
	ParentVersionID  string    `json:"parent_version_id,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
}

// Checksums are non-cryptographic content fingerprints used for
// deduplication and diffing. They are not tamper-proofing.
type Checksums struct {
	Nodes string `json:"nodes"`
	Edges string `json:"edges"`
	Full  string `json:"full"`
}

// WorkflowVersion is an immutable, content-addressed snapshot of an
// accepted workflow graph.
//
// Invariants upheld by the version store: version numbers per workflow are
// monotonically increasing and never reused; exactly one version per
// workflow may be active at any time.
type WorkflowVersion struct {
	ID         string          `json:"id"          validate:"required"`
	WorkflowID string          `json:"workflow_id" validate:"required"`
	Version    int             `json:"version"     validate:"min=1"`
	Name       string          `json:"name"`
	Nodes      []*Node         `json:"nodes"`
	Edges      []*Edge         `json:"edges"`
	Metadata   VersionMetadata `json:"metadata"`
	Status     VersionStatus   `json:"status"`
	Checksums  Checksums       `json:"checksums"`
}

// HasTag reports whether the version metadata carries the given tag.
func (v *WorkflowVersion) HasTag(tag string) bool {
	for _, t := range v.Metadata.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// Graph returns the version content as a workflow graph.
func (v *WorkflowVersion) Graph() *WorkflowGraph {
	return &WorkflowGraph{Nodes: v.Nodes, Edges: v.Edges}
}
