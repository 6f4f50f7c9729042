package timeline_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	project2024Start = date("2024-01-01")
	project2024End   = date("2024-12-31")
)

func date(s string) generic.TimePoint {
	return generic.MustParseTimePoint(s)
}

func usd(v int64) generic.Amount {
	return generic.NewAmountFromInt(v, generic.CurrencyUSD)
}

func phase(id, name, start, end string) timeline.Phase {
	return timeline.Phase{
		ID:            generic.PhaseID(id),
		ProjectID:     "proj-1",
		Name:          name,
		StartDate:     date(start),
		EndDate:       date(end),
		CapitalBudget: usd(0),
		ExpenseBudget: usd(0),
		TotalBudget:   usd(0),
	}
}

// threePhases partitions 2024 into Jan-Apr, May-Aug, Sep-Dec.
func threePhases() timeline.PhaseSet {
	return timeline.PhaseSet{
		phase("p1", "Discovery", "2024-01-01", "2024-04-30"),
		phase("p2", "Build", "2024-05-01", "2024-08-31"),
		phase("p3", "Launch", "2024-09-01", "2024-12-31"),
	}
}

// layout renders the active phases as "id start..end" in date order.
func layout(ps timeline.PhaseSet) []string {
	var out []string
	for _, p := range ps.Active() {
		out = append(out, string(p.ID)+" "+p.Period().String())
	}
	return out
}

func requireLayout(t *testing.T, want []string, got timeline.PhaseSet) {
	t.Helper()
	if diff := cmp.Diff(want, layout(got)); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func requireValid(t *testing.T, ps timeline.PhaseSet, start, end generic.TimePoint) {
	t.Helper()
	res := timeline.Validate(ps, start, end)
	if !res.IsValid {
		t.Fatalf("expected valid timeline, got: %v", res.Messages())
	}
}
