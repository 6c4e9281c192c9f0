package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Directory handles the administrative side: creating employees and
// managers, and reading rosters and calendars for the dashboards.
type Directory struct {
	Store  TxStore
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewDirectory(store TxStore, logger logrus.FieldLogger) *Directory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Directory{
		Store:  store,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewEmployee is the input for CreateEmployee. ManagerID may be empty for
// an employee nobody supervises.
type NewEmployee struct {
	ID           EmployeeID
	Name         string
	Age          int
	Contact      string
	HolidaysLeft int
	ManagerID    EmployeeID
}

// CreateEmployee stores the employee and an opening ledger entry for
// their initial balance.
func (d *Directory) CreateEmployee(ctx context.Context, in NewEmployee) (Employee, error) {
	if strings.TrimSpace(string(in.ID)) == "" {
		return Employee{}, &ValidationError{Field: "id", Reason: "must be set"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return Employee{}, &ValidationError{Field: "name", Reason: "must be set"}
	}
	if in.HolidaysLeft < 0 || in.HolidaysLeft > MaxHolidays {
		return Employee{}, &ValidationError{
			Field:  "holidays_left",
			Reason: fmt.Sprintf("must be between 0 and %d, got %d", MaxHolidays, in.HolidaysLeft),
		}
	}
	if in.ManagerID != "" && in.ManagerID == in.ID {
		return Employee{}, &ValidationError{Field: "manager_id", Reason: "an employee cannot manage themselves"}
	}

	var created Employee
	err := d.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.FetchEmployee(ctx, in.ID); err == nil {
			return &ValidationError{Field: "id", Reason: "employee " + string(in.ID) + " already exists"}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if in.ManagerID != "" {
			ok, err := s.IsManager(ctx, in.ManagerID)
			if err != nil {
				return fmt.Errorf("failed to check manager %s: %w", in.ManagerID, err)
			}
			if !ok {
				return &ValidationError{Field: "manager_id", Reason: "manager " + string(in.ManagerID) + " does not exist"}
			}
		}

		now := d.Now()
		created = Employee{
			ID:           in.ID,
			Name:         in.Name,
			Age:          in.Age,
			Contact:      in.Contact,
			HolidaysLeft: in.HolidaysLeft,
			ManagerID:    in.ManagerID,
			CreatedAt:    now,
		}
		if err := s.PersistEmployee(ctx, created); err != nil {
			return fmt.Errorf("failed to persist employee: %w", err)
		}
		return s.AppendBalanceEntry(ctx, BalanceEntry{
			ID:         EntryID("bal-" + uuid.NewString()),
			EmployeeID: created.ID,
			Delta:      Days(created.HolidaysLeft),
			Kind:       EntryOpening,
			Reason:     "opening balance",
			CreatedAt:  now,
		})
	})
	if err != nil {
		return Employee{}, err
	}

	d.Logger.WithFields(logrus.Fields{
		"employee_id":   created.ID,
		"manager_id":    created.ManagerID,
		"holidays_left": created.HolidaysLeft,
	}).Info("employee created")
	return created, nil
}

// CreateManager grants supervisory capability to an existing employee.
func (d *Directory) CreateManager(ctx context.Context, id EmployeeID) (Manager, error) {
	var created Manager
	err := d.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.FetchEmployee(ctx, id); err != nil {
			return err
		}
		ok, err := s.IsManager(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check manager %s: %w", id, err)
		}
		if ok {
			return &ValidationError{Field: "employee_id", Reason: "employee " + string(id) + " is already a manager"}
		}
		created = Manager{ID: id, CreatedAt: d.Now()}
		return s.PersistManager(ctx, created)
	})
	if err != nil {
		return Manager{}, err
	}

	d.Logger.WithField("manager_id", id).Info("manager created")
	return created, nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// Roster returns the manager's employees with their requests.
func (d *Directory) Roster(ctx context.Context, managerID EmployeeID) ([]EmployeeWithRequests, error) {
	ok, err := d.Store.IsManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check manager %s: %w", managerID, err)
	}
	if !ok {
		return nil, &NotFoundError{Kind: "manager", ID: string(managerID)}
	}
	return d.Store.FetchManagerRoster(ctx, managerID)
}

// Status partitions the manager's roster for day.
func (d *Directory) Status(ctx context.Context, managerID EmployeeID, day Day) (Buckets, error) {
	roster, err := d.Roster(ctx, managerID)
	if err != nil {
		return Buckets{}, err
	}
	return Aggregate(day, roster), nil
}

// EmployeeCalendar projects one employee's requests onto a month grid.
func (d *Directory) EmployeeCalendar(ctx context.Context, id EmployeeID, view MonthView) ([]DayTag, error) {
	if _, err := d.Store.FetchEmployee(ctx, id); err != nil {
		return nil, err
	}
	reqs, err := d.Store.FetchRequestsForEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	return Collect(view, Intervals(reqs)), nil
}

// RosterCalendar projects the requests of every roster employee onto one
// month grid, as the manager dashboard shows them.
func (d *Directory) RosterCalendar(ctx context.Context, managerID EmployeeID, view MonthView) ([]DayTag, error) {
	roster, err := d.Roster(ctx, managerID)
	if err != nil {
		return nil, err
	}
	var intervals []Interval
	for _, row := range roster {
		intervals = append(intervals, row.Intervals()...)
	}
	return Collect(view, intervals), nil
}
