package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// AuditRepository stores one JSON file per audit event under
// {root}/audit/{timestamp}-{id}.json. Records are never rewritten.
type AuditRepository struct {
	root string
}

// NewAuditRepository creates a file-backed audit repository.
func NewAuditRepository(root string) *AuditRepository {
	return &AuditRepository{root: root}
}

// Append writes an event record. The nanosecond timestamp prefix keeps the
// directory listing in chronological order.
func (r *AuditRepository) Append(_ context.Context, event *models.AuditEvent) error {
	if event.EventID == "" || event.EventType == "" {
		return persistence.ErrAuditEventInvalid
	}

	dir := r.auditDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit event %s: %w", event.EventID, err)
	}

	filename := path.Join(dir, fmt.Sprintf("%020d-%s.json", event.Timestamp.UnixNano(), event.EventID))
	if err := os.WriteFile(filename, data, recordFileMode); err != nil {
		return fmt.Errorf("failed to write audit event file %s: %w", filename, err)
	}

	return nil
}

// List returns matching events, newest first.
func (r *AuditRepository) List(_ context.Context, opts persistence.AuditQueryOptions) ([]*models.AuditEvent, error) {
	files, err := r.recordFiles()
	if err != nil {
		return nil, err
	}

	// Chronological filenames: walk backwards for newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	matched := make([]*models.AuditEvent, 0)

	for _, file := range files {
		data, err := os.ReadFile(path.Join(r.auditDir(), file))
		if err != nil {
			return nil, fmt.Errorf("failed to read audit event file %s: %w", file, err)
		}

		var event models.AuditEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit event file %s: %w", file, err)
		}

		if !opts.Matches(&event) {
			continue
		}

		matched = append(matched, &event)

		if opts.Limit > 0 && len(matched) >= opts.Limit {
			break
		}
	}

	return matched, nil
}

// Count returns the number of stored events.
func (r *AuditRepository) Count(_ context.Context) (int, error) {
	files, err := r.recordFiles()
	if err != nil {
		return 0, err
	}

	return len(files), nil
}

func (r *AuditRepository) recordFiles() ([]string, error) {
	dir := r.auditDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list audit event files: %w", err)
	}

	return files, nil
}

func (r *AuditRepository) auditDir() string {
	return path.Join(r.root, "audit")
}
