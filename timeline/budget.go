package timeline

import (
	"fmt"

	"github.com/warp/timeline-engine/generic"
)

// BudgetPolicy decides who owns a phase's total budget.
//
// The validator never checks total == capital + expense under either
// policy. BudgetManualTotal keeps whatever total the editor typed, which
// allows a manual override; BudgetDerivedTotal recomputes the sum on
// every draft commit and on save.
type BudgetPolicy string

const (
	BudgetManualTotal  BudgetPolicy = "manual_total"
	BudgetDerivedTotal BudgetPolicy = "derived_total"
)

// ParseBudgetPolicy accepts the config spelling; empty means manual.
func ParseBudgetPolicy(s string) (BudgetPolicy, error) {
	switch BudgetPolicy(s) {
	case "", BudgetManualTotal:
		return BudgetManualTotal, nil
	case BudgetDerivedTotal:
		return BudgetDerivedTotal, nil
	}
	return "", fmt.Errorf("unknown budget policy %q", s)
}

// SumBudget is capital + expense.
func SumBudget(p Phase) generic.Amount {
	return p.CapitalBudget.Add(p.ExpenseBudget)
}

// Apply returns p with the total adjusted according to the policy.
func (bp BudgetPolicy) Apply(p Phase) Phase {
	if bp == BudgetDerivedTotal {
		p.TotalBudget = SumBudget(p)
	}
	return p
}

// NormalizeBudgets applies the policy to every phase in the set.
func NormalizeBudgets(phases PhaseSet, policy BudgetPolicy) PhaseSet {
	out := phases.Clone()
	for i := range out {
		out[i] = policy.Apply(out[i])
	}
	return out
}

// TotalBudget sums the total budgets of the active phases.
func TotalBudget(phases PhaseSet, currency generic.Currency) generic.Amount {
	total := generic.Zero(currency)
	for _, p := range phases.Active() {
		total = total.Add(p.TotalBudget)
	}
	return total
}
