package generic

// =============================================================================
// PERIOD - Inclusive day range, the shape of every phase and every project
// =============================================================================

// Period is the inclusive range [Start, End] of calendar days.
//
// Examples:
//   - A one-day phase:      2024-03-10 .. 2024-03-10 (Days() == 1)
//   - Calendar year 2024:   2024-01-01 .. 2024-12-31 (Days() == 366)
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod returns the period [start, end], or ErrInvalidPeriod if end is
// before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	p := Period{Start: start, End: end}
	if !p.IsValid() {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// IsValid reports whether both ends are set and End is not before Start.
func (p Period) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && p.Start.BeforeOrEqual(p.End)
}

// Days is the inclusive day count: End - Start + 1.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Midpoint is the integer day-midpoint of the period, rounded toward Start.
// A one-day period's midpoint is its only day.
func (p Period) Midpoint() TimePoint {
	return p.Start.AddDays(DaysBetween(p.Start, p.End) / 2)
}

// SplitAtMidpoint returns [Start, mid] and [mid+1, End]. The second half is
// empty (Start after End) for a one-day period.
func (p Period) SplitAtMidpoint() (Period, Period) {
	mid := p.Midpoint()
	return Period{Start: p.Start, End: mid}, Period{Start: mid.NextDay(), End: p.End}
}

// Overlaps reports whether p and other share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// NextPeriod returns the period of the same length following this one.
func (p Period) NextPeriod() Period {
	newStart := p.End.NextDay()
	return Period{Start: newStart, End: newStart.AddDays(p.Days() - 1)}
}
