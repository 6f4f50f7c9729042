package timeline

import (
	"sort"

	"github.com/warp/timeline-engine/generic"
)

// =============================================================================
// CHANGE LEDGER - Net difference between the loaded snapshot and the draft set
// =============================================================================

// Tracked phase fields, named as they appear on the wire.
const (
	ChangeName          = "name"
	ChangeDescription   = "description"
	ChangeStartDate     = "start_date"
	ChangeEndDate       = "end_date"
	ChangeCapitalBudget = "capital_budget"
	ChangeExpenseBudget = "expense_budget"
	ChangeTotalBudget   = "total_budget"
)

// AllFields lists every tracked field in wire order.
var AllFields = []string{
	ChangeName, ChangeDescription, ChangeStartDate, ChangeEndDate,
	ChangeCapitalBudget, ChangeExpenseBudget, ChangeTotalBudget,
}

// Diff returns the fields of current that differ from original, in
// AllFields order.
func Diff(original, current Phase) []string {
	var changed []string
	if original.Name != current.Name {
		changed = append(changed, ChangeName)
	}
	if original.Description != current.Description {
		changed = append(changed, ChangeDescription)
	}
	if !original.StartDate.Equal(current.StartDate) {
		changed = append(changed, ChangeStartDate)
	}
	if !original.EndDate.Equal(current.EndDate) {
		changed = append(changed, ChangeEndDate)
	}
	if !original.CapitalBudget.Value.Equal(current.CapitalBudget.Value) {
		changed = append(changed, ChangeCapitalBudget)
	}
	if !original.ExpenseBudget.Value.Equal(current.ExpenseBudget.Value) {
		changed = append(changed, ChangeExpenseBudget)
	}
	if !original.TotalBudget.Value.Equal(current.TotalBudget.Value) {
		changed = append(changed, ChangeTotalBudget)
	}
	return changed
}

// ChangeLedger tracks, per phase, which fields differ from the snapshot
// taken when the timeline was loaded, plus the phases pending deletion.
// Only the net difference matters: a field edited back to its original
// value is no longer changed.
//
// A ChangeLedger belongs to one editing session and is not safe for
// concurrent use.
type ChangeLedger struct {
	original map[generic.PhaseID]Phase
	changed  map[generic.PhaseID]map[string]bool
	added    map[generic.PhaseID]bool
	deleted  map[generic.PhaseID]bool
}

// NewChangeLedger snapshots the given phases as the baseline.
func NewChangeLedger(snapshot PhaseSet) *ChangeLedger {
	l := &ChangeLedger{
		original: make(map[generic.PhaseID]Phase, len(snapshot)),
		changed:  make(map[generic.PhaseID]map[string]bool),
		added:    make(map[generic.PhaseID]bool),
		deleted:  make(map[generic.PhaseID]bool),
	}
	for _, p := range snapshot {
		l.original[p.ID] = p
	}
	return l
}

// Track recomputes the ledger against the current set. Tombstoned phases
// move to the pending-deletion set; phases unknown to the snapshot are new.
// Deletions recorded with MarkForDeletion survive a Track call unless the
// phase shows up active again.
func (l *ChangeLedger) Track(current PhaseSet) {
	l.changed = make(map[generic.PhaseID]map[string]bool)
	l.added = make(map[generic.PhaseID]bool)
	for id := range l.deleted {
		if p, ok := current.Find(id); ok && !p.Deleted {
			delete(l.deleted, id)
		}
	}

	for _, p := range current {
		if p.Deleted {
			if _, persisted := l.original[p.ID]; persisted {
				l.deleted[p.ID] = true
			}
			continue
		}
		orig, ok := l.original[p.ID]
		if !ok {
			l.added[p.ID] = true
			l.setFields(p.ID, AllFields)
			continue
		}
		l.setFields(p.ID, Diff(orig, p))
	}

	// dropped from the set entirely
	for id := range l.original {
		if _, ok := current.Find(id); !ok {
			l.deleted[id] = true
		}
	}
}

// Record updates a single phase after a field edit, without a full Track.
func (l *ChangeLedger) Record(p Phase) {
	if p.Deleted {
		l.MarkForDeletion(p.ID)
		return
	}
	orig, ok := l.original[p.ID]
	if !ok {
		l.added[p.ID] = true
		l.setFields(p.ID, AllFields)
		return
	}
	l.setFields(p.ID, Diff(orig, p))
}

func (l *ChangeLedger) setFields(id generic.PhaseID, fields []string) {
	if len(fields) == 0 {
		delete(l.changed, id)
		return
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	l.changed[id] = set
}

// MarkForDeletion adds a phase to the pending-deletion set.
func (l *ChangeLedger) MarkForDeletion(id generic.PhaseID) {
	delete(l.changed, id)
	if l.added[id] {
		// never persisted; nothing to delete on save
		delete(l.added, id)
		return
	}
	l.deleted[id] = true
}

// UnmarkForDeletion drops a phase from the pending-deletion set.
func (l *ChangeLedger) UnmarkForDeletion(id generic.PhaseID) {
	delete(l.deleted, id)
}

// ChangedFields lists the net-changed fields of a phase in AllFields order.
func (l *ChangeLedger) ChangedFields(id generic.PhaseID) []string {
	set := l.changed[id]
	var out []string
	for _, f := range AllFields {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

// IsChanged reports whether a phase has any net change.
func (l *ChangeLedger) IsChanged(id generic.PhaseID) bool {
	return len(l.changed[id]) > 0
}

// IsNew reports whether a phase was created in this session.
func (l *ChangeLedger) IsNew(id generic.PhaseID) bool { return l.added[id] }

// IsPendingDeletion reports whether a phase will be dropped on save.
func (l *ChangeLedger) IsPendingDeletion(id generic.PhaseID) bool { return l.deleted[id] }

// PendingDeletions returns the pending-deletion ids, sorted.
func (l *ChangeLedger) PendingDeletions() []generic.PhaseID {
	return sortedIDs(l.deleted)
}

// ChangedPhases returns the ids with a non-empty changed-set, sorted.
func (l *ChangeLedger) ChangedPhases() []generic.PhaseID {
	ids := make(map[generic.PhaseID]bool, len(l.changed))
	for id, set := range l.changed {
		if len(set) > 0 {
			ids[id] = true
		}
	}
	return sortedIDs(ids)
}

// HasChanges reports whether saving would do anything.
func (l *ChangeLedger) HasChanges() bool {
	return len(l.ChangedPhases()) > 0 || len(l.deleted) > 0
}

// CanSave gates the save action: the set must validate and differ from
// the snapshot.
func (l *ChangeLedger) CanSave(res ValidationResult) bool {
	return res.IsValid && l.HasChanges()
}

// Summary is a serializable view of the ledger.
type Summary struct {
	Changed          map[generic.PhaseID][]string
	Added            []generic.PhaseID
	PendingDeletions []generic.PhaseID
	HasChanges       bool
}

func (l *ChangeLedger) Summary() Summary {
	s := Summary{
		Changed:          make(map[generic.PhaseID][]string, len(l.changed)),
		Added:            sortedIDs(l.added),
		PendingDeletions: l.PendingDeletions(),
		HasChanges:       l.HasChanges(),
	}
	for _, id := range l.ChangedPhases() {
		s.Changed[id] = l.ChangedFields(id)
	}
	return s
}

func sortedIDs(set map[generic.PhaseID]bool) []generic.PhaseID {
	out := make([]generic.PhaseID, 0, len(set))
	for id, ok := range set {
		if ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
