// Package file provides file-based persistence for workflow versions and
// audit events: one JSON document per record under the configured root.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/gateflow/gateflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root        string
	versionRepo *VersionRepository
	auditRepo   *AuditRepository
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		versionRepo: NewVersionRepository(cleanRoot),
		auditRepo:   NewAuditRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there
// is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// VersionRepository returns the version repository implementation.
func (fp *Persistence) VersionRepository() persistence.VersionRepository {
	return fp.versionRepo
}

// AuditRepository returns the audit repository implementation.
func (fp *Persistence) AuditRepository() persistence.AuditRepository {
	return fp.auditRepo
}
