// Package store provides in-memory timeline.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	projects map[generic.ProjectID]timeline.Project
	phases   map[generic.ProjectID]map[generic.PhaseID]timeline.Phase
}

func NewMemory() *Memory {
	return &Memory{
		projects: make(map[generic.ProjectID]timeline.Project),
		phases:   make(map[generic.ProjectID]map[generic.PhaseID]timeline.Phase),
	}
}

func (m *Memory) SaveProject(_ context.Context, p timeline.Project) error {
	if !p.Period().IsValid() {
		return generic.ErrInvalidPeriod
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	if m.phases[p.ID] == nil {
		m.phases[p.ID] = make(map[generic.PhaseID]timeline.Phase)
	}
	return nil
}

func (m *Memory) GetProject(_ context.Context, id generic.ProjectID) (*timeline.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "project", ID: string(id)}
	}
	return &p, nil
}

func (m *Memory) ListProjects(_ context.Context) ([]timeline.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]timeline.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteProject(_ context.Context, id generic.ProjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	delete(m.phases, id)
	return nil
}

func (m *Memory) List(_ context.Context, projectID generic.ProjectID) (timeline.PhaseSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, &generic.NotFoundError{Kind: "project", ID: string(projectID)}
	}
	return m.listLocked(projectID), nil
}

func (m *Memory) listLocked(projectID generic.ProjectID) timeline.PhaseSet {
	result := make(timeline.PhaseSet, 0, len(m.phases[projectID]))
	for _, p := range m.phases[projectID] {
		result = append(result, p)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result
}

// BatchUpdate replaces the project's phases atomically. The whole batch is
// checked before anything is written. Empty and temporary ids get a fresh
// UUID.
func (m *Memory) BatchUpdate(_ context.Context, projectID generic.ProjectID, phases timeline.PhaseSet) (timeline.PhaseSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[projectID]; !ok {
		return nil, &generic.NotFoundError{Kind: "project", ID: string(projectID)}
	}

	// Check ownership first (atomic check)
	for _, p := range phases {
		if p.IsTemporary() {
			continue
		}
		if owner := m.ownerLocked(p.ID); owner != "" && owner != projectID {
			return nil, generic.ErrForeignPhase
		}
	}

	// Replace (atomic write)
	next := make(map[generic.PhaseID]timeline.Phase, len(phases))
	for _, p := range phases {
		if p.Deleted {
			continue
		}
		if p.IsTemporary() {
			p.ID = generic.PhaseID(uuid.NewString())
		}
		p.ProjectID = projectID
		next[p.ID] = p
	}
	m.phases[projectID] = next
	return m.listLocked(projectID), nil
}

func (m *Memory) ownerLocked(id generic.PhaseID) generic.ProjectID {
	for projectID, set := range m.phases {
		if _, ok := set[id]; ok {
			return projectID
		}
	}
	return ""
}

// Reset drops everything.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make(map[generic.ProjectID]timeline.Project)
	m.phases = make(map[generic.ProjectID]map[generic.PhaseID]timeline.Phase)
	return nil
}

var _ timeline.ProjectStore = (*Memory)(nil)
