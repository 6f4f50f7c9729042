/*
Package timeline implements the phase timeline continuity engine.

PURPOSE:
  A project's timeline is an ordered, gapless, non-overlapping partition
  of its date range into phases. This package holds the phase model, the
  validator that checks the partition, the structural edit operations
  that preserve it, and the change ledger that tracks net edits against
  the last loaded snapshot.

CONTINUITY INVARIANTS (checked by Validate):
  1. First active phase starts on the project start; last ends on the project end
  2. Each phase starts the day after its predecessor ends
  3. Every phase is at least one day long
  4. Every phase has a non-empty name of at most 100 characters
  5. At least one active phase exists

PURITY:
  Every operation takes a PhaseSet and returns a new one. Inputs are never
  mutated, nothing blocks, nothing does I/O. Out-of-range requests are
  clamped or ignored; the engine has no error return.

TOMBSTONES:
  DeletePhase does not drop the phase from the set. It sets Deleted and
  hands the phase's days to its neighbors. Tombstoned phases are invisible
  to the validator and the engine, and PrepareForSave strips them before
  the batch reaches the store.

SEE ALSO:
  - validator.go: Validate, ValidateReordering
  - engine.go: ResizeBoundary, Reorder, RecalculateDates, DeletePhase, AddPhase
  - changes.go: ChangeLedger
  - draft.go: DraftPhase
*/
package timeline

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/timeline-engine/generic"
)

// MaxNameLength is the longest allowed phase name, in characters.
const MaxNameLength = 100

// TemporaryIDPrefix marks ids generated for phases that were never persisted.
const TemporaryIDPrefix = "tmp-"

// =============================================================================
// PHASE
// =============================================================================

// Phase is one contiguous segment of project work.
type Phase struct {
	ID          generic.PhaseID
	ProjectID   generic.ProjectID
	Name        string
	Description string
	StartDate   generic.TimePoint
	EndDate     generic.TimePoint

	CapitalBudget generic.Amount
	ExpenseBudget generic.Amount
	TotalBudget   generic.Amount

	// Deleted marks a phase removed in the current editing session.
	Deleted bool
}

// Period returns the phase's inclusive date range.
func (p Phase) Period() generic.Period {
	return generic.Period{Start: p.StartDate, End: p.EndDate}
}

// Duration is the inclusive day count, end - start + 1.
func (p Phase) Duration() int {
	return p.Period().Days()
}

// IsTemporary reports whether the phase has never been persisted.
func (p Phase) IsTemporary() bool {
	return IsTemporaryID(p.ID)
}

func (p Phase) IsActive() bool { return !p.Deleted }

// NewTemporaryID returns a fresh local id for an unsaved phase.
func NewTemporaryID() generic.PhaseID {
	return generic.PhaseID(TemporaryIDPrefix + uuid.NewString())
}

func IsTemporaryID(id generic.PhaseID) bool {
	return id == "" || strings.HasPrefix(string(id), TemporaryIDPrefix)
}

// =============================================================================
// PROJECT
// =============================================================================

// Project carries the timeline bounds. The engine never moves them.
type Project struct {
	ID        generic.ProjectID
	Name      string
	StartDate generic.TimePoint
	EndDate   generic.TimePoint
	Currency  generic.Currency
}

func (p Project) Period() generic.Period {
	return generic.Period{Start: p.StartDate, End: p.EndDate}
}

// =============================================================================
// PHASE SET
// =============================================================================

// PhaseSet is the collection of a project's phases. Order is a view:
// Sorted derives it from StartDate whenever it matters.
type PhaseSet []Phase

// Clone copies the slice so callers can edit elements freely.
func (ps PhaseSet) Clone() PhaseSet {
	if ps == nil {
		return nil
	}
	out := make(PhaseSet, len(ps))
	copy(out, ps)
	return out
}

// Sorted returns a copy ordered by StartDate. Equal starts keep their
// relative order.
func (ps PhaseSet) Sorted() PhaseSet {
	out := ps.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

// Active returns the non-deleted phases sorted by StartDate.
func (ps PhaseSet) Active() PhaseSet {
	var out PhaseSet
	for _, p := range ps {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out.Sorted()
}

// Tombstones returns the deleted phases in their current order.
func (ps PhaseSet) Tombstones() PhaseSet {
	var out PhaseSet
	for _, p := range ps {
		if p.Deleted {
			out = append(out, p)
		}
	}
	return out
}

// ActiveCount counts non-deleted phases.
func (ps PhaseSet) ActiveCount() int {
	n := 0
	for _, p := range ps {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// Find returns the phase with the given id.
func (ps PhaseSet) Find(id generic.PhaseID) (Phase, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// Span is the range from the earliest active start to the latest active end.
func (ps PhaseSet) Span() (generic.Period, bool) {
	active := ps.Active()
	if len(active) == 0 {
		return generic.Period{}, false
	}
	span := generic.Period{Start: active[0].StartDate, End: active[0].EndDate}
	for _, p := range active[1:] {
		span.End = generic.Latest(span.End, p.EndDate)
	}
	return span, true
}

// IDs lists phase ids in the set's order.
func (ps PhaseSet) IDs() []generic.PhaseID {
	ids := make([]generic.PhaseID, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

// Equal compares two sets element by element: same order, same ids, same
// tombstones, no field differences.
func Equal(a, b PhaseSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Deleted != b[i].Deleted || len(Diff(a[i], b[i])) > 0 {
			return false
		}
	}
	return true
}

// indexOf finds id in an already sorted active view.
func indexOf(active PhaseSet, id generic.PhaseID) int {
	for i, p := range active {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// withActive rebuilds a full set from an edited active view plus the
// untouched tombstones of the original.
func withActive(original PhaseSet, active PhaseSet) PhaseSet {
	tombstones := original.Tombstones()
	out := make(PhaseSet, 0, len(active)+len(tombstones))
	out = append(out, active...)
	return append(out, tombstones...)
}

// PrepareForSave returns the active phases as the persistence collaborator
// expects them: tombstones removed, temporary ids cleared so the store
// creates those rows.
func PrepareForSave(ps PhaseSet) PhaseSet {
	active := ps.Active()
	for i := range active {
		if active[i].IsTemporary() {
			active[i].ID = ""
		}
	}
	return active
}
