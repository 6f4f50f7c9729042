package generic

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day (the timeline never looks below day granularity)
// =============================================================================

// DateLayout is the wire and storage format of a TimePoint.
const DateLayout = "2006-01-02"

// TimePoint is a calendar date. The zero value is "no date".
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the clock and the location of t, keeping its calendar date.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseTimePoint parses a YYYY-MM-DD date.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseTimePoint is ParseTimePoint for literals; it panics on bad input.
func MustParseTimePoint(s string) TimePoint {
	tp, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return FromTime(tp.normalize().AddDate(0, 0, n)) }
func (tp TimePoint) NextDay() TimePoint      { return tp.AddDays(1) }
func (tp TimePoint) PreviousDay() TimePoint  { return tp.AddDays(-1) }

// Properties
func (tp TimePoint) IsZero() bool   { return tp.Time.IsZero() }
func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// Earliest and Latest clamp helpers.
func Earliest(a, b TimePoint) TimePoint {
	if b.Before(a) {
		return b
	}
	return a
}

func Latest(a, b TimePoint) TimePoint {
	if b.After(a) {
		return b
	}
	return a
}

// Clamp returns tp limited to [lo, hi]. When lo is after hi, lo wins.
func (tp TimePoint) Clamp(lo, hi TimePoint) TimePoint {
	return Latest(Earliest(tp, hi), lo)
}

// MarshalJSON writes the date as "YYYY-MM-DD", or null for the zero value.
func (tp TimePoint) MarshalJSON() ([]byte, error) {
	if tp.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(tp.String())
}

func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*tp = TimePoint{}
		return nil
	}
	parsed, err := ParseTimePoint(*s)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// MarshalYAML and UnmarshalYAML keep timeline documents readable.
func (tp TimePoint) MarshalYAML() (any, error) {
	if tp.IsZero() {
		return nil, nil
	}
	return tp.String(), nil
}

func (tp *TimePoint) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*tp = TimePoint{}
		return nil
	}
	parsed, err := ParseTimePoint(s)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween is the signed number of whole days from `from` to `to`.
// It counts calendar days, so it holds across the full year range a
// TimePoint can carry.
func DaysBetween(from, to TimePoint) int {
	return int((to.normalize().Unix() - from.normalize().Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
