package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/remote"
	"shopledger/internal/remote/memory"
)

func newStore(tbl remote.Table) *Store {
	n := 0
	return New(tbl,
		WithLogger(applog.Discard()),
		WithBackendName("test"),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}))
}

func sale(cents int64) core.Transaction {
	return core.Transaction{Description: "Sale", Amount: core.Money{Cents: cents}, Type: core.Income, Category: "sales", Date: "2024-03-01"}
}

func TestInsertThenLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(memory.New())

	got, err := s.Insert(ctx, "alice", []core.Transaction{sale(100), sale(200)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "alice", r.UserID)
		assert.NotEmpty(t, r.ID)
	}

	got, err = s.Insert(ctx, "alice", []core.Transaction{sale(300)})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	bob, err := s.LoadAll(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob)
}

func TestInsertFailureLeavesPartitionUnchanged(t *testing.T) {
	ctx := context.Background()
	tbl := memory.New(core.Transaction{ID: "id-1", UserID: "someone-else"})
	s := newStore(tbl)

	_, err := s.Insert(ctx, "alice", []core.Transaction{sale(100)})
	var pe *ledger.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, remote.ErrDuplicateID)

	got, err := s.LoadAll(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	tbl := memory.New(
		core.Transaction{ID: "x", UserID: "alice"},
		core.Transaction{ID: "y", UserID: "bob"},
	)
	s := newStore(tbl)

	require.NoError(t, s.DeleteByID(ctx, "y", "alice"))
	assert.Equal(t, 2, tbl.Len())

	require.NoError(t, s.DeleteByID(ctx, "x", "alice"))
	assert.Equal(t, 1, tbl.Len())

	assert.ErrorIs(t, s.DeleteByID(ctx, "y", ""), ledger.ErrNoUser)
	assert.ErrorIs(t, s.DeleteByID(ctx, "", "bob"), core.ErrMissingID)
}

// leakyTable ignores the filter on reads.
type leakyTable struct{ *memory.Table }

func (l leakyTable) Select(ctx context.Context, table string, f remote.Filter) ([]core.Transaction, error) {
	var all []core.Transaction
	for _, u := range []string{"alice", "bob"} {
		rows, err := l.Table.Select(ctx, table, remote.Filter{UserID: u})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func TestForeignRowsFromRemoteAreDropped(t *testing.T) {
	tbl := leakyTable{memory.New(
		core.Transaction{ID: "a1", UserID: "alice"},
		core.Transaction{ID: "b1", UserID: "bob"},
	)}
	s := newStore(tbl)

	got, err := s.LoadAll(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
}
