package leave_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	store     *store.Memory
	lifecycle *leave.Lifecycle
	directory *leave.Directory
}

// newFixture seeds manager "mgr" supervising "emp" (balance 5) and "emp2"
// (balance 10).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	log := quietLogger()
	f := &fixture{
		store:     mem,
		lifecycle: leave.NewLifecycle(mem, leave.Policy{}, log),
		directory: leave.NewDirectory(mem, log),
	}

	_, err := f.directory.CreateEmployee(ctx, leave.NewEmployee{ID: "mgr", Name: "Maria", HolidaysLeft: 20})
	require.NoError(t, err)
	_, err = f.directory.CreateManager(ctx, "mgr")
	require.NoError(t, err)
	_, err = f.directory.CreateEmployee(ctx, leave.NewEmployee{ID: "emp", Name: "Ed", HolidaysLeft: 5, ManagerID: "mgr"})
	require.NoError(t, err)
	_, err = f.directory.CreateEmployee(ctx, leave.NewEmployee{ID: "emp2", Name: "Eva", HolidaysLeft: 10, ManagerID: "mgr"})
	require.NoError(t, err)
	return f
}

func (f *fixture) create(t *testing.T, author leave.EmployeeID, start, end string) leave.LeaveRequest {
	t.Helper()
	req, err := f.lifecycle.Create(context.Background(), leave.CreateInput{
		AuthorID: author, ManagerID: "mgr", Start: start, End: end,
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) balance(t *testing.T, id leave.EmployeeID) int {
	t.Helper()
	e, err := f.store.FetchEmployee(context.Background(), id)
	require.NoError(t, err)
	return e.HolidaysLeft
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_ForcesPendingAndKeepsBalance(t *testing.T) {
	f := newFixture(t)

	req := f.create(t, "emp", "2024-11-05", "2024-11-07")

	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, leave.EmployeeID("mgr"), req.ManagerID)
	assert.Equal(t, 3, req.Days())
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, 5, f.balance(t, "emp"))
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input leave.CreateInput
		field string
	}{
		{"start after end", leave.CreateInput{AuthorID: "emp", ManagerID: "mgr", Start: "2024-11-07", End: "2024-11-05"}, "vacation_start_date"},
		{"malformed start", leave.CreateInput{AuthorID: "emp", ManagerID: "mgr", Start: "2024-11-32", End: "2024-11-05"}, "vacation_start_date"},
		{"malformed end", leave.CreateInput{AuthorID: "emp", ManagerID: "mgr", Start: "2024-11-01", End: "soon"}, "vacation_end_date"},
		{"wrong manager", leave.CreateInput{AuthorID: "emp", ManagerID: "emp2", Start: "2024-11-01", End: "2024-11-02"}, "manager_id"},
		{"unsupervised author", leave.CreateInput{AuthorID: "mgr", ManagerID: "mgr", Start: "2024-11-01", End: "2024-11-02"}, "manager_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.lifecycle.Create(context.Background(), tt.input)

			var ve *leave.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			reqs, _ := f.store.ListRequests(context.Background(), leave.RequestFilter{})
			assert.Empty(t, reqs)
		})
	}
}

func TestCreate_UnknownAuthor(t *testing.T) {
	f := newFixture(t)

	_, err := f.lifecycle.Create(context.Background(), leave.CreateInput{
		AuthorID: "ghost", ManagerID: "mgr", Start: "2024-11-01", End: "2024-11-01",
	})

	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestCreate_RejectsOverlapWithPendingOrApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, "emp", "2024-11-05", "2024-11-07")

	// WHEN: a second request shares Nov 7
	_, err := f.lifecycle.Create(ctx, leave.CreateInput{AuthorID: "emp", ManagerID: "mgr", Start: "2024-11-07", End: "2024-11-08"})
	assert.ErrorIs(t, err, leave.ErrValidation)

	// WHEN: the first is denied, the same range becomes available again
	_, err = f.lifecycle.Deny(ctx, pending.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Create(ctx, leave.CreateInput{AuthorID: "emp", ManagerID: "mgr", Start: "2024-11-07", End: "2024-11-08"})
	assert.NoError(t, err)

	// Other employees are unaffected
	f.create(t, "emp2", "2024-11-05", "2024-11-07")
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_DecrementsBalanceOnce(t *testing.T) {
	// GIVEN: a 3-day pending request and a balance of 5
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-07")

	// WHEN: approving
	out, err := f.lifecycle.Approve(ctx, req.ID)

	// THEN: balance is 2 and the updated records come back
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, out.Request.Status)
	assert.Equal(t, 2, out.Employee.HolidaysLeft)
	assert.Equal(t, 2, f.balance(t, "emp"))
	assert.Equal(t, "-3", out.Entry.Delta.String())

	// WHEN: approving again
	_, err = f.lifecycle.Approve(ctx, req.ID)

	// THEN: invalid transition and the balance stays 2
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
	assert.Equal(t, 2, f.balance(t, "emp"))
}

func TestApprove_DeniedRequestFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-05")
	_, err := f.lifecycle.Deny(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Approve(ctx, req.ID)

	var te *leave.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, leave.StatusDenied, te.From)
	assert.Equal(t, "approve", te.Action)
	assert.Equal(t, 5, f.balance(t, "emp"))
}

func TestApprove_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-01", "2024-11-06") // 6 days, balance 5

	_, err := f.lifecycle.Approve(ctx, req.ID)

	var ie *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 5, ie.Available)
	assert.Equal(t, 6, ie.Requested)

	stored, err := f.store.FetchRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
	assert.Equal(t, 5, f.balance(t, "emp"))
}

func TestApprove_ExactBalanceReachesZero(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, "emp", "2024-11-01", "2024-11-05")

	out, err := f.lifecycle.Approve(context.Background(), req.ID)

	require.NoError(t, err)
	assert.Zero(t, out.Employee.HolidaysLeft)
}

func TestApprove_AllowNegativeBalancePolicy(t *testing.T) {
	f := newFixture(t)
	f.lifecycle.Policy.AllowNegativeBalance = true
	req := f.create(t, "emp", "2024-11-01", "2024-11-07")

	out, err := f.lifecycle.Approve(context.Background(), req.ID)

	require.NoError(t, err)
	assert.Equal(t, -2, out.Employee.HolidaysLeft)
}

func TestApprove_UnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.lifecycle.Approve(context.Background(), "req-missing")

	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestApprove_LedgerMatchesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "emp2", "2024-11-01", "2024-11-02")
	b := f.create(t, "emp2", "2024-11-10", "2024-11-13")
	_, err := f.lifecycle.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Approve(ctx, b.ID)
	require.NoError(t, err)

	entries, err := f.store.BalanceEntries(ctx, "emp2")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, leave.EntryOpening, entries[0].Kind)
	assert.Equal(t, f.balance(t, "emp2"), leave.SumEntries(entries).IntPart())
	assert.Equal(t, 4, f.balance(t, "emp2"))
}

// failingStore fails the ledger write inside transactions so the rollback
// path can be observed.
type failingStore struct {
	*store.Memory
}

func (fs failingStore) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	return fs.Memory.WithTx(ctx, func(s leave.Store) error {
		return fn(failingLedger{Store: s})
	})
}

type failingLedger struct {
	leave.Store
}

func (failingLedger) AppendBalanceEntry(context.Context, leave.BalanceEntry) error {
	return errors.New("disk full")
}

func TestApprove_RollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-06")
	broken := leave.NewLifecycle(failingStore{Memory: f.store}, leave.Policy{}, quietLogger())

	_, err := broken.Approve(ctx, req.ID)

	require.Error(t, err)
	stored, err := f.store.FetchRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
	assert.Equal(t, 5, f.balance(t, "emp"))
}

func TestApproveDeny_RaceHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-06")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = f.lifecycle.Approve(ctx, req.ID) }()
	go func() { defer wg.Done(); _, errs[1] = f.lifecycle.Deny(ctx, req.ID) }()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, leave.ErrInvalidTransition)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	stored, err := f.store.FetchRequest(ctx, req.ID)
	require.NoError(t, err)
	if stored.Status == leave.StatusApproved {
		assert.Equal(t, 3, f.balance(t, "emp"))
	} else {
		assert.Equal(t, leave.StatusDenied, stored.Status)
		assert.Equal(t, 5, f.balance(t, "emp"))
	}
}

// =============================================================================
// DENY / DELETE
// =============================================================================

func TestDeny_NoBalanceEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-07")

	out, err := f.lifecycle.Deny(ctx, req.ID)

	require.NoError(t, err)
	assert.Equal(t, leave.StatusDenied, out.Status)
	assert.Equal(t, 5, f.balance(t, "emp"))

	_, err = f.lifecycle.Deny(ctx, req.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

func TestDelete_ApprovedAlwaysFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "emp", "2024-11-05", "2024-11-07")
	_, err := f.lifecycle.Approve(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Delete(ctx, req.ID)

	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
	_, err = f.store.FetchRequest(ctx, req.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, f.balance(t, "emp"))
}

func TestDelete_PendingAndDeniedRemoveRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, "emp", "2024-11-05", "2024-11-07")
	denied := f.create(t, "emp", "2024-11-12", "2024-11-13")
	_, err := f.lifecycle.Deny(ctx, denied.ID)
	require.NoError(t, err)

	for _, id := range []leave.RequestID{pending.ID, denied.ID} {
		_, err := f.lifecycle.Delete(ctx, id)
		require.NoError(t, err)

		_, err = f.store.FetchRequest(ctx, id)
		assert.ErrorIs(t, err, leave.ErrNotFound)
	}
	assert.Equal(t, 5, f.balance(t, "emp"))
}

func TestDelete_UnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.lifecycle.Delete(context.Background(), "req-missing")

	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestLifecycle_UsesClock(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)
	f.lifecycle.Now = func() time.Time { return fixed }

	req := f.create(t, "emp", "2024-11-05", "2024-11-07")

	assert.Equal(t, fixed, req.CreatedAt)
	assert.Equal(t, fixed, req.UpdatedAt)
}
