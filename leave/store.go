/*
store.go - Data-access collaborator interfaces

PURPOSE:
  The engine never talks to a database directly. It reads and writes
  through Store, and runs every lifecycle transition inside
  TxStore.WithTx so that a request's status, the author's balance and the
  balance ledger change together or not at all.

KEY INTERFACES:
  Store:   record lookups and durable writes
  TxStore: Store plus WithTx, which also serializes writers

MISSING RECORDS:
  Fetch* methods return an error wrapping ErrNotFound (normally a
  *NotFoundError) when the record is absent.

IMPLEMENTATIONS:
  - leave/store/memory.go: in-memory, snapshot rollback
  - store/sqlite/sqlite.go: SQLite, one SQL transaction per WithTx
*/
package leave

import "context"

// Store handles persistence of employees, managers, requests and ledger
// entries.
type Store interface {
	FetchEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)

	// FetchManagerRoster returns the employees supervised by managerID,
	// ordered by employee ID, each with all of their requests.
	FetchManagerRoster(ctx context.Context, managerID EmployeeID) ([]EmployeeWithRequests, error)
	IsManager(ctx context.Context, id EmployeeID) (bool, error)
	ListManagers(ctx context.Context) ([]Manager, error)

	FetchRequest(ctx context.Context, id RequestID) (LeaveRequest, error)
	FetchRequestsForEmployee(ctx context.Context, employeeID EmployeeID) ([]LeaveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)

	PersistEmployee(ctx context.Context, e Employee) error
	PersistManager(ctx context.Context, m Manager) error
	PersistRequest(ctx context.Context, r LeaveRequest) error
	DeleteRequest(ctx context.Context, id RequestID) error

	// AppendBalanceEntry is append-only. Entries are never updated.
	AppendBalanceEntry(ctx context.Context, e BalanceEntry) error
	BalanceEntries(ctx context.Context, employeeID EmployeeID) ([]BalanceEntry, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Store passed to fn
	// is rolled back. At most one WithTx runs at a time.
	WithTx(ctx context.Context, fn func(Store) error) error
}
