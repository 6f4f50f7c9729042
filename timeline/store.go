/*
store.go - Persistence collaborator for phase timelines

PURPOSE:
  Defines the interface between the editing layer and the database. The
  continuity engine never calls it: callers load a PhaseSet, run engine
  operations and the validator in memory, then save the result in one
  batch.

BATCH CONTRACT:
  BatchUpdate replaces a project's phase set atomically:
  - Phases with an empty ID are created (the store assigns the id)
  - Phases with a known ID are updated
  - Persisted phases missing from the batch are deleted
  Callers pass PrepareForSave(set), which strips tombstones and clears
  temporary ids. Either every row changes or none does.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - timeline/store/memory.go: In-memory for tests and development

EXAMPLE:
  phases, err := st.List(ctx, projectID)
  edited := timeline.DeletePhase(phases, victim)
  if res := timeline.Validate(edited, p.StartDate, p.EndDate); res.IsValid {
      saved, err := st.BatchUpdate(ctx, projectID, timeline.PrepareForSave(edited))
  }

SEE ALSO:
  - engine.go: Operations producing the PhaseSet to save
  - generic/errors.go: ErrProjectNotFound, ErrForeignPhase
*/
package timeline

import (
	"context"

	"github.com/warp/timeline-engine/generic"
)

// Store persists projects and their phases.
type Store interface {
	// GetProject returns the project, or an error wrapping
	// generic.ErrProjectNotFound.
	GetProject(ctx context.Context, id generic.ProjectID) (*Project, error)

	// List returns the project's phases sorted by start date.
	List(ctx context.Context, projectID generic.ProjectID) (PhaseSet, error)

	// BatchUpdate atomically replaces the project's phases and returns the
	// persisted set sorted by start date.
	BatchUpdate(ctx context.Context, projectID generic.ProjectID, phases PhaseSet) (PhaseSet, error)
}

// ProjectStore adds project management for the API and demo scenarios.
type ProjectStore interface {
	Store

	SaveProject(ctx context.Context, p Project) error
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, id generic.ProjectID) error
}

// SaveTimeline validates phases against the project bounds and, when
// valid, persists them. Invalid sets are rejected with an error wrapping
// generic.ErrInvalidTimeline and nothing is written.
func SaveTimeline(ctx context.Context, st Store, projectID generic.ProjectID, phases PhaseSet) (PhaseSet, ValidationResult, error) {
	project, err := st.GetProject(ctx, projectID)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	res := Validate(phases, project.StartDate, project.EndDate)
	if !res.IsValid {
		return nil, res, res.Err(projectID)
	}
	saved, err := st.BatchUpdate(ctx, projectID, PrepareForSave(phases))
	if err != nil {
		return nil, res, err
	}
	return saved, res, nil
}
