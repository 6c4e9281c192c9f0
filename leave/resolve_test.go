package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func nov(day int) leave.Day {
	return leave.NewDay(2024, time.November, day)
}

func interval(t *testing.T, start, end leave.Day, status leave.Status) leave.Interval {
	t.Helper()
	iv, err := leave.NewInterval(start, end, status)
	require.NoError(t, err)
	return iv
}

// permutations returns every ordering of ivs.
func permutations(ivs []leave.Interval) [][]leave.Interval {
	if len(ivs) <= 1 {
		return [][]leave.Interval{append([]leave.Interval(nil), ivs...)}
	}
	var out [][]leave.Interval
	for i := range ivs {
		rest := make([]leave.Interval, 0, len(ivs)-1)
		rest = append(rest, ivs[:i]...)
		rest = append(rest, ivs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]leave.Interval{ivs[i]}, p...))
		}
	}
	return out
}

// =============================================================================
// INTERVAL
// =============================================================================

func TestNewInterval_RejectsStartAfterEnd(t *testing.T) {
	_, err := leave.NewInterval(nov(7), nov(5), leave.StatusPending)

	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestNewInterval_SingleDayAllowed(t *testing.T) {
	iv := interval(t, nov(5), nov(5), leave.StatusPending)

	assert.True(t, iv.Covers(nov(5)))
	assert.Equal(t, 1, iv.Days())
}

func TestInterval_CoversIsInclusive(t *testing.T) {
	iv := interval(t, nov(5), nov(7), leave.StatusPending)

	for d := nov(5); d.BeforeOrEqual(nov(7)); d = d.AddDays(1) {
		assert.True(t, iv.Covers(d), "should cover %s", d)
	}
	assert.False(t, iv.Covers(nov(4)), "day before start")
	assert.False(t, iv.Covers(nov(8)), "day after end")
}

func TestInterval_CoversIgnoresTimeOfDay(t *testing.T) {
	iv := interval(t, nov(5), nov(7), leave.StatusApproved)
	lateEvening := leave.DayOf(time.Date(2024, time.November, 7, 23, 59, 0, 0, time.UTC))

	assert.True(t, iv.Covers(lateEvening))
}

func TestInterval_DaysAcrossMonthBoundary(t *testing.T) {
	iv := interval(t, leave.NewDay(2024, time.October, 30), nov(2), leave.StatusPending)

	assert.Equal(t, 4, iv.Days())
}

func TestInterval_Overlaps(t *testing.T) {
	a := interval(t, nov(1), nov(3), leave.StatusApproved)

	assert.True(t, a.Overlaps(interval(t, nov(3), nov(5), leave.StatusPending)), "shared end day")
	assert.True(t, a.Overlaps(interval(t, nov(2), nov(2), leave.StatusPending)), "contained")
	assert.False(t, a.Overlaps(interval(t, nov(4), nov(6), leave.StatusPending)), "adjacent")
}

func TestParseDay(t *testing.T) {
	d, err := leave.ParseDay("start", "2024-11-05")
	require.NoError(t, err)
	assert.True(t, d.Equal(nov(5)))

	_, err = leave.ParseDay("start", "2024-13-05")
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = leave.ParseDay("start", "05/11/2024")
	var ve *leave.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start", ve.Field)
}

// =============================================================================
// PRECEDENCE RESOLVER
// =============================================================================

func TestResolve_SinglePendingRequest(t *testing.T) {
	// GIVEN: a pending request for Nov 5-7
	req := interval(t, nov(5), nov(7), leave.StatusPending)

	// THEN: inside the range it is pending, the day after it is nothing
	assert.Equal(t, leave.StatusPending, leave.Resolve(nov(6), []leave.Interval{req}))
	assert.Equal(t, leave.StatusNone, leave.Resolve(nov(8), []leave.Interval{req}))
}

func TestResolve_ApprovedOutranksOverlappingPending(t *testing.T) {
	// GIVEN: Nov 1-3 approved and Nov 2-4 pending for one employee
	both := []leave.Interval{
		interval(t, nov(1), nov(3), leave.StatusApproved),
		interval(t, nov(2), nov(4), leave.StatusPending),
	}

	assert.Equal(t, leave.StatusApproved, leave.Resolve(nov(2), both))
	assert.Equal(t, leave.StatusPending, leave.Resolve(nov(4), both))
}

func TestResolve_NoIntervals(t *testing.T) {
	assert.Equal(t, leave.StatusNone, leave.Resolve(nov(1), nil))
}

func TestResolve_DeniedOnlyWhenNothingElseCovers(t *testing.T) {
	ivs := []leave.Interval{
		interval(t, nov(1), nov(10), leave.StatusDenied),
		interval(t, nov(5), nov(6), leave.StatusPending),
	}

	assert.Equal(t, leave.StatusDenied, leave.Resolve(nov(2), ivs))
	assert.Equal(t, leave.StatusPending, leave.Resolve(nov(5), ivs))
}

func TestResolve_AllThreeStatusesAlwaysApproved(t *testing.T) {
	ivs := []leave.Interval{
		interval(t, nov(10), nov(12), leave.StatusDenied),
		interval(t, nov(11), nov(11), leave.StatusPending),
		interval(t, nov(9), nov(11), leave.StatusApproved),
	}

	for _, p := range permutations(ivs) {
		assert.Equal(t, leave.StatusApproved, leave.Resolve(nov(11), p))
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	// GIVEN: a denied request listed before a pending one, the trap for a
	// first-match scan
	ivs := []leave.Interval{
		interval(t, nov(1), nov(30), leave.StatusDenied),
		interval(t, nov(3), nov(8), leave.StatusPending),
		interval(t, nov(6), nov(7), leave.StatusApproved),
		interval(t, nov(20), nov(21), leave.StatusPending),
	}

	// WHEN/THEN: every permutation resolves every day of the month the same way
	for d := nov(1); d.BeforeOrEqual(nov(30)); d = d.AddDays(1) {
		want := leave.Resolve(d, ivs)
		for _, p := range permutations(ivs) {
			require.Equal(t, want, leave.Resolve(d, p), "day %s order %v", d, p)
		}
	}
}

func TestResolveRequests_MatchesResolve(t *testing.T) {
	reqs := []leave.LeaveRequest{
		{ID: "r1", Start: nov(1), End: nov(30), Status: leave.StatusDenied},
		{ID: "r2", Start: nov(3), End: nov(8), Status: leave.StatusPending},
		{ID: "r3", Start: nov(6), End: nov(7), Status: leave.StatusApproved},
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}

	for d := nov(1); d.BeforeOrEqual(nov(30)); d = d.AddDays(1) {
		want := leave.Resolve(d, leave.Intervals(reqs))
		for _, order := range orders {
			shuffled := make([]leave.LeaveRequest, len(order))
			for i, j := range order {
				shuffled[i] = reqs[j]
			}
			require.Equal(t, want, leave.ResolveRequests(d, shuffled), "day %s order %v", d, order)
		}
	}
	assert.Equal(t, leave.StatusApproved, leave.ResolveRequests(nov(6), reqs))
	assert.Equal(t, leave.StatusPending, leave.ResolveRequests(nov(8), reqs))
	assert.Equal(t, leave.StatusDenied, leave.ResolveRequests(nov(9), reqs))
}

func TestStatus_Outranks(t *testing.T) {
	order := []leave.Status{leave.StatusApproved, leave.StatusPending, leave.StatusDenied, leave.StatusNone}
	for i := range order {
		for j := i + 1; j < len(order); j++ {
			assert.True(t, order[i].Outranks(order[j]), "%s > %s", order[i], order[j])
			assert.False(t, order[j].Outranks(order[i]), "%s > %s", order[j], order[i])
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, err := leave.ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, st)

	_, err = leave.ParseStatus("NONE")
	assert.ErrorIs(t, err, leave.ErrValidation)
}
