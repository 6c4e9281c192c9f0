package leave

import (
	"time"
)

// =============================================================================
// DAY - Calendar-day granularity date (time of day is always dropped)
// =============================================================================

// DayLayout is the wire format for a Day.
const DayLayout = "2006-01-02"

// MonthLayout is the wire format for a calendar month.
const MonthLayout = "2006-01"

// Day is a calendar date normalized to UTC midnight.
type Day struct {
	t time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar date in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(field, s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, &ValidationError{Field: field, Reason: "malformed date " + quote(s) + " (use YYYY-MM-DD)"}
	}
	return DayOf(t), nil
}

// ParseMonth parses a YYYY-MM string into the year and month it names.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return 0, 0, &ValidationError{Field: "month", Reason: "malformed month " + quote(s) + " (use YYYY-MM)"}
	}
	return t.Year(), t.Month(), nil
}

func Today() Day { return DayOf(time.Now()) }

// Comparison
func (d Day) Before(o Day) bool        { return d.t.Before(o.t) }
func (d Day) After(o Day) bool         { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool         { return d.t.Equal(o.t) }
func (d Day) BeforeOrEqual(o Day) bool { return !d.t.After(o.t) }
func (d Day) AfterOrEqual(o Day) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Day) Year() int              { return d.t.Year() }
func (d Day) Month() time.Month      { return d.t.Month() }
func (d Day) DayOfMonth() int        { return d.t.Day() }
func (d Day) Weekday() time.Weekday  { return d.t.Weekday() }
func (d Day) IsZero() bool           { return d.t.IsZero() }
func (d Day) Time() time.Time        { return d.t }
func (d Day) String() string         { return d.t.Format(DayLayout) }
func (d Day) InMonth(year int, month time.Month) bool {
	return d.t.Year() == year && d.t.Month() == month
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Day) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) Day { return NewDay(year, month, 1) }

func EndOfMonth(year int, month time.Month) Day {
	return Day{t: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

func quote(s string) string { return "\"" + s + "\"" }
