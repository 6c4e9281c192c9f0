/*
Package leave implements the leave-request engine behind the employee and
manager dashboards.

PURPOSE:
  Employees submit vacation requests, managers approve or deny them, and
  both roles look at calendar overlays of request status. Everything in
  this package is either a pure computation over records already fetched
  (Resolve, Aggregate, Project) or a single atomic transition run through
  a transactional Store (Lifecycle, Directory).

KEY CONCEPTS IN THIS FILE (types.go):
  - Status:        PENDING, APPROVED, DENIED (plus NONE for "no request")
  - Employee:      holder of the holidays_left balance
  - Manager:       an employee who supervises a roster
  - LeaveRequest:  closed date range [start, end] with a status
  - BalanceEntry:  append-only record of every balance change

DATA FLOW:
  Lifecycle mutates requests -> Resolve/Aggregate read them per date ->
  Project renders per-day tags for a calendar widget.

SEE ALSO:
  - precedence.go: the APPROVED > PENDING > DENIED > NONE resolver
  - lifecycle.go:  the request state machine
  - store.go:      collaborator interfaces
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string
type EntryID string

// MaxHolidays is the largest balance an employee may be created with.
const MaxHolidays = 30

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"

	// StatusNone is the resolver result for a day no request covers.
	// It is never stored on a request.
	StatusNone Status = "NONE"
)

// ParseStatus accepts the three storable statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusDenied:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: "unknown status " + quote(s)}
}

// rank orders statuses by precedence. Higher wins.
func (s Status) rank() int {
	switch s {
	case StatusApproved:
		return 3
	case StatusPending:
		return 2
	case StatusDenied:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether s wins over other on a shared day.
func (s Status) Outranks(other Status) bool { return s.rank() > other.rank() }

// =============================================================================
// EMPLOYEE / MANAGER
// =============================================================================

type Employee struct {
	ID           EmployeeID
	Name         string
	Age          int
	Contact      string
	HolidaysLeft int
	ManagerID    EmployeeID // empty for employees nobody supervises
	CreatedAt    time.Time
}

// Manager is an employee with supervisory capability. ID is the employee's ID.
type Manager struct {
	ID        EmployeeID
	CreatedAt time.Time
}

// EmployeeWithRequests is one roster row: the employee plus their requests.
type EmployeeWithRequests struct {
	Employee Employee
	Requests []LeaveRequest
}

// Intervals converts the row's requests for the resolver.
func (e EmployeeWithRequests) Intervals() []Interval {
	return Intervals(e.Requests)
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type LeaveRequest struct {
	ID        RequestID
	AuthorID  EmployeeID
	ManagerID EmployeeID // bound at creation, immutable
	Start     Day
	End       Day
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the request's date range tagged with its status.
// Stored requests always satisfy Start <= End.
func (r LeaveRequest) Interval() Interval {
	return Interval{Start: r.Start, End: r.End, Status: r.Status}
}

// Days is the inclusive day count charged on approval.
func (r LeaveRequest) Days() int { return r.Interval().Days() }

// Intervals maps requests to intervals, preserving order.
func Intervals(reqs []LeaveRequest) []Interval {
	out := make([]Interval, len(reqs))
	for i, r := range reqs {
		out[i] = r.Interval()
	}
	return out
}

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	AuthorID  EmployeeID
	ManagerID EmployeeID
	Status    Status
}

func (f RequestFilter) Match(r LeaveRequest) bool {
	if f.AuthorID != "" && r.AuthorID != f.AuthorID {
		return false
	}
	if f.ManagerID != "" && r.ManagerID != f.ManagerID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// Amount is a quantity of leave days.
type Amount struct {
	Value decimal.Decimal
}

func Days(n int) Amount { return Amount{Value: decimal.NewFromInt(int64(n))} }

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Neg() Amount         { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool    { return a.Value.IsNegative() }
func (a Amount) IntPart() int        { return int(a.Value.IntPart()) }
func (a Amount) String() string      { return a.Value.String() }

type EntryKind string

const (
	EntryOpening     EntryKind = "opening"     // balance granted when the employee is created
	EntryConsumption EntryKind = "consumption" // approved request
)

// BalanceEntry is an immutable record of one change to holidays_left.
// Summing an employee's entries yields their current balance.
type BalanceEntry struct {
	ID         EntryID
	EmployeeID EmployeeID
	RequestID  RequestID // empty for opening entries
	Delta      Amount
	Kind       EntryKind
	Reason     string
	CreatedAt  time.Time
}

// SumEntries totals the deltas of entries.
func SumEntries(entries []BalanceEntry) Amount {
	total := Days(0)
	for _, e := range entries {
		total = total.Add(e.Delta)
	}
	return total
}
