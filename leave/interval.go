package leave

// Interval is a closed date range [Start, End] tagged with a status.
type Interval struct {
	Start  Day
	End    Day
	Status Status
}

// NewInterval builds an interval, rejecting start after end.
func NewInterval(start, end Day, status Status) (Interval, error) {
	if start.After(end) {
		return Interval{}, &ValidationError{
			Field:  "vacation_start_date",
			Reason: "start " + start.String() + " is after end " + end.String(),
		}
	}
	return Interval{Start: start, End: end, Status: status}, nil
}

// Covers returns true if d is within [Start, End], inclusive on both ends.
func (iv Interval) Covers(d Day) bool {
	return d.AfterOrEqual(iv.Start) && d.BeforeOrEqual(iv.End)
}

// Days returns the inclusive day count end - start + 1.
func (iv Interval) Days() int {
	return DaysBetween(iv.Start, iv.End) + 1
}

// Overlaps returns true if the two ranges share at least one day.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(iv.End)
}

func (iv Interval) String() string {
	return "[" + iv.Start.String() + ", " + iv.End.String() + "] " + string(iv.Status)
}
