/*
Package sqlite provides a SQLite-backed implementation of leave.TxStore.

KEY TABLES:
  employees:        people and their holidays_left balance
  managers:         employees with supervisory capability
  requests:         leave requests, one row per request
  balance_entries:  append-only ledger of balance changes

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole callback and runs it in one SQL transaction, so two transitions on
  the same request can never interleave.

QUERIES:
  Statements are built with squirrel. The default "?" placeholder format
  is what go-sqlite3 expects.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  lifecycle := leave.NewLifecycle(store, leave.Policy{}, logger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

var _ leave.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database. Missing parent directories
// are created.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: queries{ex: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		contact TEXT NOT NULL DEFAULT '',
		holidays_left INTEGER NOT NULL,
		manager_id TEXT,
		created_at TEXT NOT NULL,
		CHECK (manager_id IS NULL OR manager_id != id)
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);

	CREATE TABLE IF NOT EXISTS managers (
		employee_id TEXT PRIMARY KEY REFERENCES employees(id),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES employees(id),
		manager_id TEXT NOT NULL,
		vacation_start_date TEXT NOT NULL,
		vacation_end_date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'DENIED')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (vacation_end_date >= vacation_start_date),
		CHECK (author_id != manager_id)
	);

	CREATE INDEX IF NOT EXISTS idx_requests_author
		ON requests(author_id, vacation_start_date);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	-- Append-only: no UPDATE or DELETE is ever issued against this table
	CREATE TABLE IF NOT EXISTS balance_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		request_id TEXT,
		delta TEXT NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_balance_entries_employee
		ON balance_entries(employee_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"balance_entries", "requests", "managers", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (s *Store) FetchEmployee(ctx context.Context, id leave.EmployeeID) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FetchEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListEmployees(ctx)
}

func (s *Store) FetchManagerRoster(ctx context.Context, managerID leave.EmployeeID) ([]leave.EmployeeWithRequests, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FetchManagerRoster(ctx, managerID)
}

func (s *Store) IsManager(ctx context.Context, id leave.EmployeeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.IsManager(ctx, id)
}

func (s *Store) ListManagers(ctx context.Context) ([]leave.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListManagers(ctx)
}

func (s *Store) FetchRequest(ctx context.Context, id leave.RequestID) (leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FetchRequest(ctx, id)
}

func (s *Store) FetchRequestsForEmployee(ctx context.Context, employeeID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FetchRequestsForEmployee(ctx, employeeID)
}

func (s *Store) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListRequests(ctx, filter)
}

func (s *Store) PersistEmployee(ctx context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PersistEmployee(ctx, e)
}

func (s *Store) PersistManager(ctx context.Context, m leave.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PersistManager(ctx, m)
}

func (s *Store) PersistRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PersistRequest(ctx, r)
}

func (s *Store) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DeleteRequest(ctx, id)
}

func (s *Store) AppendBalanceEntry(ctx context.Context, e leave.BalanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.AppendBalanceEntry(ctx, e)
}

func (s *Store) BalanceEntries(ctx context.Context, employeeID leave.EmployeeID) ([]leave.BalanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.BalanceEntries(ctx, employeeID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a SQL transaction.
// If fn returns error, the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{ex: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// QUERIES - unlocked, bound to a *sql.DB or *sql.Tx
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	ex execer
}

var employeeColumns = []string{"id", "name", "age", "contact", "holidays_left", "manager_id", "created_at"}

var requestColumns = []string{
	"id", "author_id", "manager_id", "vacation_start_date", "vacation_end_date",
	"status", "created_at", "updated_at",
}

func (q queries) FetchEmployee(ctx context.Context, id leave.EmployeeID) (leave.Employee, error) {
	query, args, err := sq.Select(employeeColumns...).From("employees").
		Where(sq.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return leave.Employee{}, fmt.Errorf("build employee query: %w", err)
	}

	e, err := scanEmployee(q.ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return leave.Employee{}, &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return e, err
}

func (q queries) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	return q.queryEmployees(ctx, sq.Select(employeeColumns...).From("employees").OrderBy("id"))
}

func (q queries) queryEmployees(ctx context.Context, b sq.SelectBuilder) ([]leave.Employee, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build employees query: %w", err)
	}
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) FetchManagerRoster(ctx context.Context, managerID leave.EmployeeID) ([]leave.EmployeeWithRequests, error) {
	emps, err := q.queryEmployees(ctx, sq.Select(employeeColumns...).From("employees").
		Where(sq.Eq{"manager_id": string(managerID)}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	if len(emps) == 0 {
		return nil, nil
	}

	ids := make([]string, len(emps))
	for i, e := range emps {
		ids[i] = string(e.ID)
	}
	reqs, err := q.queryRequests(ctx, sq.Select(requestColumns...).From("requests").
		Where(sq.Eq{"author_id": ids}).OrderBy("vacation_start_date", "id"))
	if err != nil {
		return nil, err
	}

	byAuthor := make(map[leave.EmployeeID][]leave.LeaveRequest, len(emps))
	for _, r := range reqs {
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], r)
	}
	roster := make([]leave.EmployeeWithRequests, len(emps))
	for i, e := range emps {
		roster[i] = leave.EmployeeWithRequests{Employee: e, Requests: byAuthor[e.ID]}
	}
	return roster, nil
}

func (q queries) IsManager(ctx context.Context, id leave.EmployeeID) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").From("managers").
		Where(sq.Eq{"employee_id": string(id)}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build manager query: %w", err)
	}
	var n int
	if err := q.ex.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q queries) ListManagers(ctx context.Context) ([]leave.Manager, error) {
	query, args, err := sq.Select("employee_id", "created_at").From("managers").
		OrderBy("employee_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build managers query: %w", err)
	}
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Manager
	for rows.Next() {
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		created, err := parseTime("created_at", createdAt)
		if err != nil {
			return nil, fmt.Errorf("manager %s: %w", id, err)
		}
		out = append(out, leave.Manager{ID: leave.EmployeeID(id), CreatedAt: created})
	}
	return out, rows.Err()
}

func (q queries) FetchRequest(ctx context.Context, id leave.RequestID) (leave.LeaveRequest, error) {
	query, args, err := sq.Select(requestColumns...).From("requests").
		Where(sq.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("build request query: %w", err)
	}

	r, err := scanRequest(q.ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return leave.LeaveRequest{}, &leave.NotFoundError{Kind: "request", ID: string(id)}
	}
	return r, err
}

func (q queries) FetchRequestsForEmployee(ctx context.Context, employeeID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	return q.ListRequests(ctx, leave.RequestFilter{AuthorID: employeeID})
}

func (q queries) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	b := sq.Select(requestColumns...).From("requests")
	if filter.AuthorID != "" {
		b = b.Where(sq.Eq{"author_id": string(filter.AuthorID)})
	}
	if filter.ManagerID != "" {
		b = b.Where(sq.Eq{"manager_id": string(filter.ManagerID)})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	return q.queryRequests(ctx, b.OrderBy("vacation_start_date", "id"))
}

func (q queries) queryRequests(ctx context.Context, b sq.SelectBuilder) ([]leave.LeaveRequest, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build requests query: %w", err)
	}
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) PersistEmployee(ctx context.Context, e leave.Employee) error {
	query, args, err := sq.Insert("employees").Columns(employeeColumns...).
		Values(string(e.ID), e.Name, e.Age, e.Contact, e.HolidaysLeft,
			nullString(string(e.ManagerID)), formatTime(e.CreatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			contact = excluded.contact,
			holidays_left = excluded.holidays_left,
			manager_id = excluded.manager_id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build employee upsert: %w", err)
	}
	_, err = q.ex.ExecContext(ctx, query, args...)
	return err
}

func (q queries) PersistManager(ctx context.Context, m leave.Manager) error {
	query, args, err := sq.Insert("managers").Columns("employee_id", "created_at").
		Values(string(m.ID), formatTime(m.CreatedAt)).
		Suffix("ON CONFLICT(employee_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build manager insert: %w", err)
	}
	_, err = q.ex.ExecContext(ctx, query, args...)
	return err
}

func (q queries) PersistRequest(ctx context.Context, r leave.LeaveRequest) error {
	query, args, err := sq.Insert("requests").Columns(requestColumns...).
		Values(string(r.ID), string(r.AuthorID), string(r.ManagerID),
			r.Start.String(), r.End.String(), string(r.Status),
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build request upsert: %w", err)
	}
	_, err = q.ex.ExecContext(ctx, query, args...)
	return err
}

func (q queries) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	query, args, err := sq.Delete("requests").Where(sq.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return fmt.Errorf("build request delete: %w", err)
	}
	res, err := q.ex.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{Kind: "request", ID: string(id)}
	}
	return nil
}

func (q queries) AppendBalanceEntry(ctx context.Context, e leave.BalanceEntry) error {
	query, args, err := sq.Insert("balance_entries").
		Columns("id", "employee_id", "request_id", "delta", "kind", "reason", "created_at").
		Values(string(e.ID), string(e.EmployeeID), nullString(string(e.RequestID)),
			e.Delta.Value.String(), string(e.Kind), e.Reason, formatTime(e.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build balance entry insert: %w", err)
	}
	_, err = q.ex.ExecContext(ctx, query, args...)
	return err
}

func (q queries) BalanceEntries(ctx context.Context, employeeID leave.EmployeeID) ([]leave.BalanceEntry, error) {
	query, args, err := sq.Select("id", "employee_id", "request_id", "delta", "kind", "reason", "created_at").
		From("balance_entries").
		Where(sq.Eq{"employee_id": string(employeeID)}).
		OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build balance entries query: %w", err)
	}
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.BalanceEntry
	for rows.Next() {
		var e leave.BalanceEntry
		var id, empID, delta, kind, createdAt string
		var requestID, reason sql.NullString
		if err := rows.Scan(&id, &empID, &requestID, &delta, &kind, &reason, &createdAt); err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(delta)
		if err != nil {
			return nil, fmt.Errorf("balance entry %s: bad delta %q: %w", id, delta, err)
		}
		e.ID = leave.EntryID(id)
		e.EmployeeID = leave.EmployeeID(empID)
		e.RequestID = leave.RequestID(requestID.String)
		e.Delta = leave.Amount{Value: value}
		e.Kind = leave.EntryKind(kind)
		e.Reason = reason.String
		if e.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, fmt.Errorf("balance entry %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (leave.Employee, error) {
	var e leave.Employee
	var id, createdAt string
	var managerID sql.NullString
	if err := row.Scan(&id, &e.Name, &e.Age, &e.Contact, &e.HolidaysLeft, &managerID, &createdAt); err != nil {
		return leave.Employee{}, err
	}
	created, err := parseTime("created_at", createdAt)
	if err != nil {
		return leave.Employee{}, fmt.Errorf("employee %s: %w", id, err)
	}
	e.ID = leave.EmployeeID(id)
	e.ManagerID = leave.EmployeeID(managerID.String)
	e.CreatedAt = created
	return e, nil
}

func scanRequest(row scanner) (leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var id, authorID, managerID, start, end, status, createdAt, updatedAt string
	if err := row.Scan(&id, &authorID, &managerID, &start, &end, &status, &createdAt, &updatedAt); err != nil {
		return leave.LeaveRequest{}, err
	}

	var err error
	if r.Start, err = leave.ParseDay("vacation_start_date", start); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", id, err)
	}
	if r.End, err = leave.ParseDay("vacation_end_date", end); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", id, err)
	}
	r.ID = leave.RequestID(id)
	r.AuthorID = leave.EmployeeID(authorID)
	r.ManagerID = leave.EmployeeID(managerID)
	r.Status = leave.Status(status)
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", id, err)
	}
	if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", id, err)
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s %q: %w", column, s, err)
	}
	return t, nil
}
