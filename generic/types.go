/*
Package generic provides the leaf building blocks of the timeline engine.

PURPOSE:
  Day-granularity date arithmetic, inclusive periods and exact money
  amounts. Nothing here knows what a phase or a project is; the timeline
  package builds the continuity engine on top of these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A budget figure with a currency (e.g., 12000.50 USD)
  - ProjectID / PhaseID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing project/phase IDs
  3. Value semantics: Every type here is an immutable value

USAGE:
  capital, err := generic.ParseAmount("25000", generic.CurrencyUSD)
  total := capital.Add(generic.NewAmountFromInt(500, generic.CurrencyUSD))

SEE ALSO:
  - time.go: TimePoint and day arithmetic
  - period.go: Inclusive day ranges, midpoint split
  - errors.go: Sentinel errors shared by stores and the API
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Budget figure with currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is used when a document or request omits one.
const DefaultCurrency = CurrencyUSD

func NewAmountFromInt(value int64, currency Currency) Amount {
	return Amount{Value: decimal.NewFromInt(value), Currency: currency}
}

// ParseAmount parses a decimal string such as "1250.75".
func ParseAmount(s string, currency Currency) (Amount, error) {
	if s == "" {
		return Zero(currency), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Value: d, Currency: currency}, nil
}

func Zero(currency Currency) Amount { return Amount{Value: decimal.Zero, Currency: currency} }

func (a Amount) Add(b Amount) Amount        { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) IsNegative() bool           { return a.Value.IsNegative() }
func (a Amount) IsZero() bool               { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool        { return a.Value.Equal(b.Value) && a.Currency == b.Currency }
func (a Amount) String() string             { return a.Value.StringFixed(2) + " " + string(a.Currency) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type PhaseID string
