// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrVersionNotFound indicates a workflow version was not found by the given identifier.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrVersionAlreadyExists indicates a version with the same identifier already exists.
	ErrVersionAlreadyExists = errors.New("workflow version already exists")

	// ErrInvalidVersionStatus indicates an invalid version status was provided.
	ErrInvalidVersionStatus = errors.New("invalid version status")

	// ErrAuditEventInvalid indicates an audit event is missing required fields.
	ErrAuditEventInvalid = errors.New("audit event is invalid")
)

// VersionError wraps version-related errors with additional context.
type VersionError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	VersionID  string // Version ID if applicable
	WorkflowID string // Workflow ID if applicable
	Err        error  // Underlying error
	Message    string // Additional context message
}

func (e *VersionError) Error() string {
	target := e.VersionID
	if e.WorkflowID != "" {
		target = fmt.Sprintf("workflow %s", e.WorkflowID)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for version %s: %s (%v)", e.Op, target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for version %s: %v", e.Op, target, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for version errors.
func (e *VersionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewVersionError creates a new version error with context.
func NewVersionError(op, versionID string, err error) *VersionError {
	return &VersionError{
		Op:        op,
		VersionID: versionID,
		Err:       err,
	}
}

// NewWorkflowVersionError creates a new version error scoped to a workflow.
func NewWorkflowVersionError(op, workflowID string, err error) *VersionError {
	return &VersionError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsVersionNotFound checks if an error indicates a version was not found.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}
