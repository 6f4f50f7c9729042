package timeline

import (
	"fmt"

	"github.com/warp/timeline-engine/generic"
)

// =============================================================================
// BOUNDARY RESIZE
// =============================================================================

// Boundary selects which end of a phase a resize moves.
type Boundary string

const (
	BoundaryStart Boundary = "start"
	BoundaryEnd   Boundary = "end"
)

func (b Boundary) IsValid() bool { return b == BoundaryStart || b == BoundaryEnd }

// ResizeBoundary moves one boundary of a phase and the touching boundary of
// its neighbor, so the pair stays contiguous.
//
// Moving the end of phase P moves its successor's start to the next day;
// moving the start of P moves its predecessor's end to the previous day.
// The requested date is clamped so P and the neighbor keep at least one
// day each. The first phase's start and the last phase's end are pinned
// to the project bounds; asking to move them returns the set unchanged.
func ResizeBoundary(phases PhaseSet, id generic.PhaseID, boundary Boundary, requested generic.TimePoint) PhaseSet {
	active := phases.Active()
	i := indexOf(active, id)
	if i < 0 {
		return phases.Clone()
	}

	switch boundary {
	case BoundaryEnd:
		if i == len(active)-1 {
			return phases.Clone()
		}
		p, succ := active[i], active[i+1]
		newEnd := clampEnd(p, succ, requested)
		active[i].EndDate = newEnd
		active[i+1].StartDate = newEnd.NextDay()

	case BoundaryStart:
		if i == 0 {
			return phases.Clone()
		}
		pred, p := active[i-1], active[i]
		newStart := clampStart(pred, p, requested)
		active[i].StartDate = newStart
		active[i-1].EndDate = newStart.PreviousDay()

	default:
		return phases.Clone()
	}

	return withActive(phases, active)
}

// ResizeRange reports the dates a boundary may legally move to, for UIs
// that want to show limits while dragging. ok is false where the boundary
// is pinned.
func ResizeRange(phases PhaseSet, id generic.PhaseID, boundary Boundary) (generic.Period, bool) {
	active := phases.Active()
	i := indexOf(active, id)
	if i < 0 {
		return generic.Period{}, false
	}
	switch boundary {
	case BoundaryEnd:
		if i == len(active)-1 {
			return generic.Period{}, false
		}
		return generic.Period{Start: active[i].StartDate, End: active[i+1].EndDate.PreviousDay()}, true
	case BoundaryStart:
		if i == 0 {
			return generic.Period{}, false
		}
		return generic.Period{Start: active[i-1].StartDate.NextDay(), End: active[i].EndDate}, true
	}
	return generic.Period{}, false
}

// clampEnd keeps p at least one day long and leaves succ at least one day.
// When succ is the last phase its end is the project's final boundary.
func clampEnd(p, succ Phase, requested generic.TimePoint) generic.TimePoint {
	return requested.Clamp(p.StartDate, succ.EndDate.PreviousDay())
}

// clampStart mirrors clampEnd against the predecessor.
func clampStart(pred, p Phase, requested generic.TimePoint) generic.TimePoint {
	lo := pred.StartDate.NextDay()
	return requested.Clamp(lo, generic.Latest(lo, p.EndDate))
}

// =============================================================================
// REORDER
// =============================================================================

// IsNoopMove reports whether a move leaves the order unchanged. Callers
// skip validation and change announcements for these.
func IsNoopMove(from, to int) bool { return from == to }

// Reorder moves the phase at position from of the start-date-sorted view to
// position to. Dates are not touched; RecalculateDates re-derives them from
// the new order. A no-op or out-of-range move returns an identical copy.
// Tombstones follow the active phases in the result.
func Reorder(phases PhaseSet, from, to int) PhaseSet {
	active := phases.Active()
	if IsNoopMove(from, to) || from < 0 || to < 0 || from >= len(active) || to >= len(active) {
		return phases.Clone()
	}

	moved := active[from]
	reordered := make(PhaseSet, 0, len(active))
	reordered = append(reordered, active[:from]...)
	reordered = append(reordered, active[from+1:]...)

	out := make(PhaseSet, 0, len(active))
	out = append(out, reordered[:to]...)
	out = append(out, moved)
	out = append(out, reordered[to:]...)

	return withActive(phases, out)
}

// ReorderByIDs arranges the active phases in the given id order. Ids not
// in the set are ignored; active phases missing from order keep their
// relative position after the listed ones.
func ReorderByIDs(phases PhaseSet, order []generic.PhaseID) PhaseSet {
	active := phases.Active()
	placed := make(map[generic.PhaseID]bool, len(order))
	out := make(PhaseSet, 0, len(active))
	for _, id := range order {
		if placed[id] {
			continue
		}
		if i := indexOf(active, id); i >= 0 {
			out = append(out, active[i])
			placed[id] = true
		}
	}
	for _, p := range active {
		if !placed[p.ID] {
			out = append(out, p)
		}
	}
	return withActive(phases, out)
}

// RecalculateDates lays the active phases end to end in slice order,
// starting at projectStart and keeping each phase's current duration.
//
// When the input was a valid partition the last phase ends on projectEnd,
// because a permutation does not change total duration. An invalid input
// stays invalid and Validate flags it; projectEnd is not forced here. A
// phase whose end precedes its start keeps that negative length, so the
// total span of the set is preserved.
func RecalculateDates(phases PhaseSet, projectStart, projectEnd generic.TimePoint) PhaseSet {
	out := phases.Clone()
	cursor := projectStart
	for i := range out {
		if out[i].Deleted {
			continue
		}
		duration := out[i].Duration()
		out[i].StartDate = cursor
		out[i].EndDate = cursor.AddDays(duration - 1)
		cursor = out[i].EndDate.NextDay()
	}
	return out
}

// ReorderAndRecalculate is Reorder followed by RecalculateDates.
func ReorderAndRecalculate(phases PhaseSet, from, to int, projectStart, projectEnd generic.TimePoint) PhaseSet {
	if IsNoopMove(from, to) {
		return phases.Clone()
	}
	return RecalculateDates(Reorder(phases, from, to), projectStart, projectEnd)
}

// =============================================================================
// DELETE
// =============================================================================

// DeletePhase tombstones a phase and gives its days to its neighbors:
//   - both neighbors: split at the midpoint, previous takes the first half
//   - last phase: the previous phase extends to the deleted end
//   - first phase: the next phase extends back to the deleted start
//
// The last remaining active phase cannot be deleted.
func DeletePhase(phases PhaseSet, id generic.PhaseID) PhaseSet {
	active := phases.Active()
	i := indexOf(active, id)
	if i < 0 || len(active) <= 1 {
		return phases.Clone()
	}

	gone := active[i]
	hasPrev, hasNext := i > 0, i < len(active)-1
	switch {
	case hasPrev && hasNext:
		mid := gone.Period().Midpoint()
		active[i-1].EndDate = mid
		active[i+1].StartDate = mid.NextDay()
	case hasPrev:
		active[i-1].EndDate = gone.EndDate
	case hasNext:
		active[i+1].StartDate = gone.StartDate
	}

	out := phases.Clone()
	for j := range out {
		switch {
		case out[j].ID == gone.ID && !out[j].Deleted:
			out[j].Deleted = true
		case hasPrev && out[j].ID == active[i-1].ID && !out[j].Deleted:
			out[j] = active[i-1]
		case hasNext && out[j].ID == active[i+1].ID && !out[j].Deleted:
			out[j] = active[i+1]
		}
	}
	return out
}

// RestorePhase clears a tombstone set in this session. The restored phase
// takes back its own dates, so the result usually needs a resize or a
// reorder before it validates again.
func RestorePhase(phases PhaseSet, id generic.PhaseID) PhaseSet {
	out := phases.Clone()
	for j := range out {
		if out[j].ID == id && out[j].Deleted {
			out[j].Deleted = false
			break
		}
	}
	return out
}

// =============================================================================
// ADD
// =============================================================================

// DefaultPhaseName names the n-th phase (1-based) created by AddPhase.
func DefaultPhaseName(n int) string { return fmt.Sprintf("Phase %d", n) }

// AddPhase appends a phase. On an empty timeline it spans the whole project;
// otherwise the last phase is split at its midpoint and the new phase takes
// the second half. A one-day last phase cannot be split and the set is
// returned unchanged.
func AddPhase(phases PhaseSet, projectStart, projectEnd generic.TimePoint) PhaseSet {
	active := phases.Active()
	currency := generic.DefaultCurrency
	var projectID generic.ProjectID
	if len(phases) > 0 {
		currency = phases[0].CapitalBudget.Currency
		projectID = phases[0].ProjectID
	}
	if currency == "" {
		currency = generic.DefaultCurrency
	}

	fresh := Phase{
		ID:            NewTemporaryID(),
		ProjectID:     projectID,
		Name:          DefaultPhaseName(len(active) + 1),
		CapitalBudget: generic.Zero(currency),
		ExpenseBudget: generic.Zero(currency),
		TotalBudget:   generic.Zero(currency),
	}

	if len(active) == 0 {
		fresh.StartDate, fresh.EndDate = projectStart, projectEnd
		out := phases.Clone()
		return append(out, fresh)
	}

	last := len(active) - 1
	head, tail := active[last].Period().SplitAtMidpoint()
	if tail.Start.After(tail.End) {
		return phases.Clone()
	}
	active[last].EndDate = head.End
	fresh.StartDate, fresh.EndDate = tail.Start, tail.End

	active = append(active, fresh)
	return withActive(phases, active)
}
