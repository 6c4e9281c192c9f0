/*
lifecycle.go - Leave request state machine

STATES:
  ┌─────────┐  Approve   ┌──────────┐
  │ PENDING │──────────▶ │ APPROVED │  (terminal, cannot be deleted)
  └─────────┘            └──────────┘
       │  Deny           ┌──────────┐
       └───────────────▶ │  DENIED  │  (terminal, may be deleted)
                         └──────────┘

BALANCE:
  Only Approve touches holidays_left: it subtracts the inclusive day count
  of the request and appends a consumption entry to the balance ledger.
  Create, Deny and Delete never change the balance.

ATOMICITY:
  Each transition is one TxStore.WithTx call. All checks run before the
  first write, and a failing write rolls back the others, so readers
  never see a status without its balance effect.

RETURN VALUES:
  Transitions return the updated records so callers can refresh derived
  views (Aggregate, Project) without re-fetching.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Policy holds the tunable lifecycle rules.
type Policy struct {
	// AllowNegativeBalance skips the InsufficientBalance check on approval.
	AllowNegativeBalance bool
}

// Lifecycle owns request creation and the approve/deny/delete transitions.
type Lifecycle struct {
	Store  TxStore
	Policy Policy
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewLifecycle(store TxStore, policy Policy, logger logrus.FieldLogger) *Lifecycle {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Lifecycle{
		Store:  store,
		Policy: policy,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries an employee's request as submitted. Dates are
// YYYY-MM-DD strings so malformed input is reported as a ValidationError.
type CreateInput struct {
	AuthorID  EmployeeID
	ManagerID EmployeeID
	Start     string
	End       string
}

// Approval is the result of a successful Approve.
type Approval struct {
	Request  LeaveRequest
	Employee Employee
	Entry    BalanceEntry
}

// =============================================================================
// CREATE
// =============================================================================

// Create records a new PENDING request for the author.
func (l *Lifecycle) Create(ctx context.Context, in CreateInput) (LeaveRequest, error) {
	start, err := ParseDay("vacation_start_date", in.Start)
	if err != nil {
		return LeaveRequest{}, err
	}
	end, err := ParseDay("vacation_end_date", in.End)
	if err != nil {
		return LeaveRequest{}, err
	}
	iv, err := NewInterval(start, end, StatusPending)
	if err != nil {
		return LeaveRequest{}, err
	}

	var created LeaveRequest
	err = l.Store.WithTx(ctx, func(s Store) error {
		author, err := s.FetchEmployee(ctx, in.AuthorID)
		if err != nil {
			return err
		}
		if author.ManagerID == "" || author.ManagerID != in.ManagerID {
			return &ValidationError{
				Field:  "manager_id",
				Reason: fmt.Sprintf("%s is not the manager of employee %s", in.ManagerID, in.AuthorID),
			}
		}

		existing, err := s.FetchRequestsForEmployee(ctx, in.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to load requests of %s: %w", in.AuthorID, err)
		}
		for _, r := range existing {
			if r.Status == StatusDenied {
				continue
			}
			if r.Interval().Overlaps(iv) {
				return &ValidationError{
					Field:  "vacation_start_date",
					Reason: fmt.Sprintf("overlaps %s request %s", r.Status, r.ID),
				}
			}
		}

		now := l.Now()
		created = LeaveRequest{
			ID:        RequestID("req-" + uuid.NewString()),
			AuthorID:  author.ID,
			ManagerID: author.ManagerID,
			Start:     iv.Start,
			End:       iv.End,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.PersistRequest(ctx, created); err != nil {
			return fmt.Errorf("failed to persist request: %w", err)
		}
		return nil
	})
	if err != nil {
		l.Logger.WithError(err).WithField("employee_id", in.AuthorID).Warn("leave request rejected")
		return LeaveRequest{}, err
	}

	l.Logger.WithFields(logrus.Fields{
		"request_id":  created.ID,
		"employee_id": created.AuthorID,
		"start":       created.Start.String(),
		"end":         created.End.String(),
	}).Info("leave request created")
	return created, nil
}

// =============================================================================
// APPROVE / DENY
// =============================================================================

// Approve moves a PENDING request to APPROVED and charges the author's
// balance with the request's inclusive day count.
func (l *Lifecycle) Approve(ctx context.Context, id RequestID) (Approval, error) {
	var out Approval
	err := l.Store.WithTx(ctx, func(s Store) error {
		req, err := s.FetchRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &TransitionError{RequestID: id, From: req.Status, Action: "approve"}
		}

		emp, err := s.FetchEmployee(ctx, req.AuthorID)
		if err != nil {
			return err
		}
		days := req.Days()
		if !l.Policy.AllowNegativeBalance && days > emp.HolidaysLeft {
			return &InsufficientBalanceError{EmployeeID: emp.ID, Available: emp.HolidaysLeft, Requested: days}
		}

		now := l.Now()
		req.Status = StatusApproved
		req.UpdatedAt = now
		emp.HolidaysLeft -= days
		entry := BalanceEntry{
			ID:         EntryID("bal-" + uuid.NewString()),
			EmployeeID: emp.ID,
			RequestID:  req.ID,
			Delta:      Days(days).Neg(),
			Kind:       EntryConsumption,
			Reason:     fmt.Sprintf("leave %s to %s", req.Start, req.End),
			CreatedAt:  now,
		}

		if err := s.PersistRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to persist request: %w", err)
		}
		if err := s.PersistEmployee(ctx, emp); err != nil {
			return fmt.Errorf("failed to persist employee: %w", err)
		}
		if err := s.AppendBalanceEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to append balance entry: %w", err)
		}

		out = Approval{Request: req, Employee: emp, Entry: entry}
		return nil
	})
	if err != nil {
		l.Logger.WithError(err).WithField("request_id", id).Warn("approve rejected")
		return Approval{}, err
	}

	l.Logger.WithFields(logrus.Fields{
		"request_id":    id,
		"employee_id":   out.Employee.ID,
		"days":          out.Request.Days(),
		"holidays_left": out.Employee.HolidaysLeft,
	}).Info("leave request approved")
	return out, nil
}

// Deny moves a PENDING request to DENIED. The balance is untouched.
func (l *Lifecycle) Deny(ctx context.Context, id RequestID) (LeaveRequest, error) {
	var out LeaveRequest
	err := l.Store.WithTx(ctx, func(s Store) error {
		req, err := s.FetchRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &TransitionError{RequestID: id, From: req.Status, Action: "deny"}
		}

		req.Status = StatusDenied
		req.UpdatedAt = l.Now()
		if err := s.PersistRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to persist request: %w", err)
		}
		out = req
		return nil
	})
	if err != nil {
		l.Logger.WithError(err).WithField("request_id", id).Warn("deny rejected")
		return LeaveRequest{}, err
	}

	l.Logger.WithFields(logrus.Fields{
		"request_id":  id,
		"employee_id": out.AuthorID,
	}).Info("leave request denied")
	return out, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a PENDING or DENIED request. APPROVED requests are the
// record of consumed leave and cannot be deleted.
func (l *Lifecycle) Delete(ctx context.Context, id RequestID) (LeaveRequest, error) {
	var out LeaveRequest
	err := l.Store.WithTx(ctx, func(s Store) error {
		req, err := s.FetchRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status == StatusApproved {
			return &TransitionError{RequestID: id, From: req.Status, Action: "delete"}
		}
		if err := s.DeleteRequest(ctx, id); err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		out = req
		return nil
	})
	if err != nil {
		l.Logger.WithError(err).WithField("request_id", id).Warn("delete rejected")
		return LeaveRequest{}, err
	}

	l.Logger.WithFields(logrus.Fields{
		"request_id":  id,
		"employee_id": out.AuthorID,
		"status":      out.Status,
	}).Info("leave request deleted")
	return out, nil
}
