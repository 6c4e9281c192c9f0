package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func TestCorruptTimestamps_Surface(t *testing.T) {
	// GIVEN: rows whose timestamps were written by something other than this store
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	_, err = s.db.Exec(`INSERT INTO employees (id, name, holidays_left, created_at) VALUES ('mgr', 'Maria', 20, '2024-11-01T09:00:00Z')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO employees (id, name, holidays_left, created_at) VALUES ('bad', 'Bo', 5, 'not-a-time')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO managers (employee_id, created_at) VALUES ('mgr', 'yesterday')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO requests (id, author_id, manager_id, vacation_start_date, vacation_end_date, status, created_at, updated_at)
		VALUES ('r1', 'mgr', 'boss', '2024-11-04', '2024-11-08', 'PENDING', '2024-11-01T09:00:00Z', '')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO balance_entries (id, employee_id, delta, kind, created_at) VALUES ('e1', 'mgr', '20', 'opening', '01/11/2024')`)
	require.NoError(t, err)

	// WHEN/THEN: every read reports the bad column instead of a zero time
	_, err = s.FetchEmployee(ctx, "bad")
	require.Error(t, err)
	assert.False(t, leave.IsNotFound(err))
	assert.Contains(t, err.Error(), `employee bad: bad created_at "not-a-time"`)

	_, err = s.ListEmployees(ctx)
	assert.Error(t, err)

	_, err = s.ListManagers(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager mgr")

	_, err = s.FetchRequest(ctx, "r1")
	require.Error(t, err)
	assert.False(t, leave.IsNotFound(err))
	assert.Contains(t, err.Error(), "request r1: bad updated_at")

	_, err = s.BalanceEntries(ctx, "mgr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance entry e1: bad created_at")
}
