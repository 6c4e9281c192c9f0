/*
calendar.go - Per-day display tags for a month calendar widget

A month widget shows whole weeks, so the first and last rows usually hold
days of the neighbouring months. Those days are always tagged none: only
the focused month is highlighted, whatever the underlying requests say.

USAGE:
  view := leave.MonthView{Year: 2024, Month: time.November, WeekStart: time.Monday}
  for day, tag := range leave.Project(view, leave.Intervals(requests)) {
      render(day, tag)
  }

The sequence is lazy (one Resolve per day, on demand), finite, and can be
ranged over any number of times.
*/
package leave

import (
	"iter"
	"time"
)

// Tag is the display class of one calendar cell.
type Tag string

const (
	TagApproved Tag = "approved"
	TagPending  Tag = "pending"
	TagDenied   Tag = "denied"
	TagNone     Tag = "none"
)

// TagFor maps a resolved status to its display tag.
func TagFor(s Status) Tag {
	switch s {
	case StatusApproved:
		return TagApproved
	case StatusPending:
		return TagPending
	case StatusDenied:
		return TagDenied
	default:
		return TagNone
	}
}

// MonthView identifies the displayed month and the grid's first weekday.
type MonthView struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
}

// NewMonthView parses a YYYY-MM month with weeks starting on Monday.
func NewMonthView(month string) (MonthView, error) {
	y, m, err := ParseMonth(month)
	if err != nil {
		return MonthView{}, err
	}
	return MonthView{Year: y, Month: m, WeekStart: time.Monday}, nil
}

// GridStart is the first day shown: the WeekStart on or before the 1st.
func (v MonthView) GridStart() Day {
	first := StartOfMonth(v.Year, v.Month)
	back := (int(first.Weekday()) - int(v.WeekStart) + 7) % 7
	return first.AddDays(-back)
}

// GridEnd is the last day shown: the day before the next WeekStart after
// the month's last day.
func (v MonthView) GridEnd() Day {
	last := EndOfMonth(v.Year, v.Month)
	weekEnd := (int(v.WeekStart) + 6) % 7
	fwd := (weekEnd - int(last.Weekday()) + 7) % 7
	return last.AddDays(fwd)
}

func (v MonthView) Contains(d Day) bool { return d.InMonth(v.Year, v.Month) }

// Project yields (day, tag) for every cell of the month grid, in order.
func Project(view MonthView, intervals []Interval) iter.Seq2[Day, Tag] {
	start, end := view.GridStart(), view.GridEnd()
	return func(yield func(Day, Tag) bool) {
		for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
			tag := TagNone
			if view.Contains(d) {
				tag = TagFor(Resolve(d, intervals))
			}
			if !yield(d, tag) {
				return
			}
		}
	}
}

// DayTag is one materialized calendar cell.
type DayTag struct {
	Day     Day
	Tag     Tag
	InMonth bool
}

// Collect materializes a projection.
func Collect(view MonthView, intervals []Interval) []DayTag {
	var cells []DayTag
	for d, tag := range Project(view, intervals) {
		cells = append(cells, DayTag{Day: d, Tag: tag, InMonth: view.Contains(d)})
	}
	return cells
}
