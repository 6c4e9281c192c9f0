// Package store provides in-memory leave.TxStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[leave.EmployeeID]leave.Employee
	managers  map[leave.EmployeeID]leave.Manager
	requests  map[leave.RequestID]leave.LeaveRequest
	entries   []leave.BalanceEntry
}

var _ leave.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[leave.EmployeeID]leave.Employee),
		managers:  make(map[leave.EmployeeID]leave.Manager),
		requests:  make(map[leave.RequestID]leave.LeaveRequest),
	}
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = make(map[leave.EmployeeID]leave.Employee)
	m.managers = make(map[leave.EmployeeID]leave.Manager)
	m.requests = make(map[leave.RequestID]leave.LeaveRequest)
	m.entries = nil
	return nil
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (m *Memory) FetchEmployee(_ context.Context, id leave.EmployeeID) (leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchEmployee(id)
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEmployees(), nil
}

func (m *Memory) FetchManagerRoster(_ context.Context, managerID leave.EmployeeID) ([]leave.EmployeeWithRequests, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roster(managerID), nil
}

func (m *Memory) IsManager(_ context.Context, id leave.EmployeeID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.managers[id]
	return ok, nil
}

func (m *Memory) ListManagers(_ context.Context) ([]leave.Manager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listManagers(), nil
}

func (m *Memory) FetchRequest(_ context.Context, id leave.RequestID) (leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchRequest(id)
}

func (m *Memory) FetchRequestsForEmployee(_ context.Context, employeeID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequests(leave.RequestFilter{AuthorID: employeeID}), nil
}

func (m *Memory) ListRequests(_ context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequests(filter), nil
}

func (m *Memory) PersistEmployee(_ context.Context, e leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) PersistManager(_ context.Context, mg leave.Manager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.managers[mg.ID] = mg
	return nil
}

func (m *Memory) PersistRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) DeleteRequest(_ context.Context, id leave.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRequest(id)
}

func (m *Memory) AppendBalanceEntry(_ context.Context, e leave.BalanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) BalanceEntries(_ context.Context, employeeID leave.EmployeeID) ([]leave.BalanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceEntries(employeeID), nil
}

// =============================================================================
// UNLOCKED HELPERS - caller holds mu
// =============================================================================

func (m *Memory) fetchEmployee(id leave.EmployeeID) (leave.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return leave.Employee{}, &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return e, nil
}

func (m *Memory) listEmployees() []leave.Employee {
	out := make([]leave.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) listManagers() []leave.Manager {
	out := make([]leave.Manager, 0, len(m.managers))
	for _, mg := range m.managers {
		out = append(out, mg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) roster(managerID leave.EmployeeID) []leave.EmployeeWithRequests {
	var out []leave.EmployeeWithRequests
	for _, e := range m.listEmployees() {
		if e.ManagerID != managerID {
			continue
		}
		out = append(out, leave.EmployeeWithRequests{
			Employee: e,
			Requests: m.listRequests(leave.RequestFilter{AuthorID: e.ID}),
		})
	}
	return out
}

func (m *Memory) fetchRequest(id leave.RequestID) (leave.LeaveRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return leave.LeaveRequest{}, &leave.NotFoundError{Kind: "request", ID: string(id)}
	}
	return r, nil
}

// listRequests returns matches ordered by start date, then ID.
func (m *Memory) listRequests(filter leave.RequestFilter) []leave.LeaveRequest {
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) deleteRequest(id leave.RequestID) error {
	if _, ok := m.requests[id]; !ok {
		return &leave.NotFoundError{Kind: "request", ID: string(id)}
	}
	delete(m.requests, id)
	return nil
}

func (m *Memory) balanceEntries(employeeID leave.EmployeeID) []leave.BalanceEntry {
	var out []leave.BalanceEntry
	for _, e := range m.entries {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	employees map[leave.EmployeeID]leave.Employee
	managers  map[leave.EmployeeID]leave.Manager
	requests  map[leave.RequestID]leave.LeaveRequest
	entries   []leave.BalanceEntry
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		employees: make(map[leave.EmployeeID]leave.Employee, len(m.employees)),
		managers:  make(map[leave.EmployeeID]leave.Manager, len(m.managers)),
		requests:  make(map[leave.RequestID]leave.LeaveRequest, len(m.requests)),
		entries:   append([]leave.BalanceEntry(nil), m.entries...),
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.managers {
		s.managers[k] = v
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.employees = s.employees
	m.managers = s.managers
	m.requests = s.requests
	m.entries = s.entries
}

// txView is the Store handed to WithTx callbacks. The parent lock is
// already held, so it goes straight to the unlocked helpers.
type txView struct {
	parent *Memory
}

func (tv *txView) FetchEmployee(_ context.Context, id leave.EmployeeID) (leave.Employee, error) {
	return tv.parent.fetchEmployee(id)
}

func (tv *txView) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	return tv.parent.listEmployees(), nil
}

func (tv *txView) FetchManagerRoster(_ context.Context, managerID leave.EmployeeID) ([]leave.EmployeeWithRequests, error) {
	return tv.parent.roster(managerID), nil
}

func (tv *txView) IsManager(_ context.Context, id leave.EmployeeID) (bool, error) {
	_, ok := tv.parent.managers[id]
	return ok, nil
}

func (tv *txView) ListManagers(_ context.Context) ([]leave.Manager, error) {
	return tv.parent.listManagers(), nil
}

func (tv *txView) FetchRequest(_ context.Context, id leave.RequestID) (leave.LeaveRequest, error) {
	return tv.parent.fetchRequest(id)
}

func (tv *txView) FetchRequestsForEmployee(_ context.Context, employeeID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	return tv.parent.listRequests(leave.RequestFilter{AuthorID: employeeID}), nil
}

func (tv *txView) ListRequests(_ context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	return tv.parent.listRequests(filter), nil
}

func (tv *txView) PersistEmployee(_ context.Context, e leave.Employee) error {
	tv.parent.employees[e.ID] = e
	return nil
}

func (tv *txView) PersistManager(_ context.Context, mg leave.Manager) error {
	tv.parent.managers[mg.ID] = mg
	return nil
}

func (tv *txView) PersistRequest(_ context.Context, r leave.LeaveRequest) error {
	tv.parent.requests[r.ID] = r
	return nil
}

func (tv *txView) DeleteRequest(_ context.Context, id leave.RequestID) error {
	return tv.parent.deleteRequest(id)
}

func (tv *txView) AppendBalanceEntry(_ context.Context, e leave.BalanceEntry) error {
	tv.parent.entries = append(tv.parent.entries, e)
	return nil
}

func (tv *txView) BalanceEntries(_ context.Context, employeeID leave.EmployeeID) ([]leave.BalanceEntry, error) {
	return tv.parent.balanceEntries(employeeID), nil
}
