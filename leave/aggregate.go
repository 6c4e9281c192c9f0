package leave

// Buckets partitions a roster for one day. Each employee lands in exactly
// one bucket, and each bucket keeps the roster's input order.
type Buckets struct {
	Working []Employee
	OnLeave []Employee
	Pending []Employee
}

// StatusCounts summarizes Buckets for dashboards that only need numbers.
type StatusCounts struct {
	Working      int `json:"working"`
	OnLeave      int `json:"on_leave"`
	PendingLeave int `json:"pending_leave"`
}

// Aggregate classifies every roster employee by the status resolved from
// their own requests on d: APPROVED goes to OnLeave, PENDING to Pending,
// and DENIED or no covering request to Working.
func Aggregate(d Day, roster []EmployeeWithRequests) Buckets {
	b := Buckets{
		Working: []Employee{},
		OnLeave: []Employee{},
		Pending: []Employee{},
	}
	for _, row := range roster {
		switch ResolveRequests(d, row.Requests) {
		case StatusApproved:
			b.OnLeave = append(b.OnLeave, row.Employee)
		case StatusPending:
			b.Pending = append(b.Pending, row.Employee)
		default:
			b.Working = append(b.Working, row.Employee)
		}
	}
	return b
}

func (b Buckets) Counts() StatusCounts {
	return StatusCounts{
		Working:      len(b.Working),
		OnLeave:      len(b.OnLeave),
		PendingLeave: len(b.Pending),
	}
}

func (b Buckets) Total() int {
	return len(b.Working) + len(b.OnLeave) + len(b.Pending)
}
