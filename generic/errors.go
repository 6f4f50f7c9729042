/*
errors.go - Centralized error types for stores, the API and the CLI

PURPOSE:
  All error types in one place for consistency and discoverability.
  The continuity engine itself never returns errors (it clamps), and the
  validator reports problems as data. Errors only appear at the edges:
  persistence, request decoding, saving an invalid timeline.

ERROR CATEGORIES:
  1. Not-found errors - Unknown project or phase
  2. Validation errors - Saving a timeline that breaks continuity
  3. Store errors - Database-level failures

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, generic.ErrProjectNotFound) {
        // 404
    }

SEE ALSO:
  - timeline/store.go: Persistence collaborator interface
  - timeline/validator.go: Produces the details carried by ErrInvalidTimeline
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrProjectNotFound is returned when a referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPhaseNotFound is returned when a referenced phase doesn't exist.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidTimeline is returned when a timeline fails validation and the
	// operation requires a valid one (saving, loading a document).
	ErrInvalidTimeline = errors.New("invalid timeline")

	// ErrForeignPhase is returned when a batch references a phase that
	// belongs to another project.
	ErrForeignPhase = errors.New("phase belongs to another project")

	// ErrProjectExists is returned when creating a project whose id is taken.
	ErrProjectExists = errors.New("project already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTimelineError lists the validation messages that blocked an operation.
type InvalidTimelineError struct {
	ProjectID ProjectID
	Problems  []string
}

func (e *InvalidTimelineError) Error() string {
	return fmt.Sprintf("invalid timeline for project %s: %s",
		e.ProjectID, strings.Join(e.Problems, "; "))
}

func (e *InvalidTimelineError) Unwrap() error {
	return ErrInvalidTimeline
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "project" or "phase"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "phase" {
		return ErrPhaseNotFound
	}
	return ErrProjectNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidTimeline) ||
		errors.Is(err, ErrForeignPhase)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrPhaseNotFound)
}
