package timeline

import (
	"github.com/warp/timeline-engine/generic"
)

// DraftPhase holds the fields of a phase under edit. A nil field is not
// being edited; Apply copies the rest from the base phase.
type DraftPhase struct {
	Name          *string
	Description   *string
	StartDate     *generic.TimePoint
	EndDate       *generic.TimePoint
	CapitalBudget *generic.Amount
	ExpenseBudget *generic.Amount
	TotalBudget   *generic.Amount
}

// IsEmpty reports whether the draft edits nothing.
func (d DraftPhase) IsEmpty() bool {
	return d.Name == nil && d.Description == nil && d.StartDate == nil && d.EndDate == nil &&
		d.CapitalBudget == nil && d.ExpenseBudget == nil && d.TotalBudget == nil
}

// touchesDates reports whether the draft moves a boundary.
func (d DraftPhase) touchesDates() bool {
	return d.StartDate != nil || d.EndDate != nil
}

// Apply commits the draft onto base, field by field.
func (d DraftPhase) Apply(base Phase) Phase {
	out := base
	if d.Name != nil {
		out.Name = *d.Name
	}
	if d.Description != nil {
		out.Description = *d.Description
	}
	if d.StartDate != nil {
		out.StartDate = *d.StartDate
	}
	if d.EndDate != nil {
		out.EndDate = *d.EndDate
	}
	if d.CapitalBudget != nil {
		out.CapitalBudget = *d.CapitalBudget
	}
	if d.ExpenseBudget != nil {
		out.ExpenseBudget = *d.ExpenseBudget
	}
	if d.TotalBudget != nil {
		out.TotalBudget = *d.TotalBudget
	}
	return out
}

// ApplyDraft commits a draft to one phase of the set. Field edits are
// copied as-is; date edits go through ResizeBoundary so the neighbor
// moves with them. The budget policy runs on the edited phase.
func ApplyDraft(phases PhaseSet, id generic.PhaseID, d DraftPhase, policy BudgetPolicy) PhaseSet {
	if _, ok := phases.Find(id); !ok || d.IsEmpty() {
		return phases.Clone()
	}

	fields := d
	fields.StartDate, fields.EndDate = nil, nil

	out := phases.Clone()
	for i := range out {
		if out[i].ID == id {
			out[i] = policy.Apply(fields.Apply(out[i]))
			break
		}
	}

	if !d.touchesDates() {
		return out
	}
	if d.StartDate != nil {
		out = ResizeBoundary(out, id, BoundaryStart, *d.StartDate)
	}
	if d.EndDate != nil {
		out = ResizeBoundary(out, id, BoundaryEnd, *d.EndDate)
	}
	return out
}
