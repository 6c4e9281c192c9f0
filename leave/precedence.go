package leave

// Resolve returns the highest-precedence status among intervals covering d,
// ranking APPROVED > PENDING > DENIED > NONE.
//
// The result is independent of the order of intervals: every covering
// interval is considered, and the scan only stops early once APPROVED is
// seen because nothing outranks it.
func Resolve(d Day, intervals []Interval) Status {
	best := StatusNone
	for _, iv := range intervals {
		if !iv.Covers(d) {
			continue
		}
		if iv.Status.Outranks(best) {
			best = iv.Status
		}
		if best == StatusApproved {
			break
		}
	}
	return best
}

// ResolveRequests is Resolve over stored requests.
func ResolveRequests(d Day, reqs []LeaveRequest) Status {
	return Resolve(d, Intervals(reqs))
}
