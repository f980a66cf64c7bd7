package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core"
	"shopledger/internal/remote"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func row(id, user string, cents int64) core.Transaction {
	return core.Transaction{
		ID: id, UserID: user, Description: "বিক্রি", Amount: core.Money{Cents: cents},
		Type: core.Income, Category: "sales", Date: "2024-05-01",
	}
}

func TestSelectInsertDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.Insert(ctx, remote.TransactionsTable, []core.Transaction{row("a1", "alice", 12345), row("b1", "bob", 1)})
	require.NoError(t, err)

	got, err := repo.Select(ctx, remote.TransactionsTable, remote.Filter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row("a1", "alice", 12345), got[0])

	require.NoError(t, repo.DeleteWhere(ctx, remote.TransactionsTable, remote.Filter{UserID: "alice", ID: "b1"}))
	got, err = repo.Select(ctx, remote.TransactionsTable, remote.Filter{UserID: "bob"})
	require.NoError(t, err)
	assert.Len(t, got, 1, "delete scoped to another user must not remove bob's row")

	require.NoError(t, repo.DeleteWhere(ctx, remote.TransactionsTable, remote.Filter{UserID: "alice", ID: "a1"}))
	got, err = repo.Select(ctx, remote.TransactionsTable, remote.Filter{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertRollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.Insert(ctx, remote.TransactionsTable, []core.Transaction{row("x", "alice", 1)})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, remote.TransactionsTable, []core.Transaction{row("y", "alice", 2), row("x", "alice", 3)})
	assert.ErrorIs(t, err, remote.ErrDuplicateID)

	got, err := repo.Select(ctx, remote.TransactionsTable, remote.Filter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUnscopedFilterRejected(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.Select(context.Background(), remote.TransactionsTable, remote.Filter{})
	assert.ErrorIs(t, err, remote.ErrUnscopedFilter)
	assert.ErrorIs(t, repo.DeleteWhere(context.Background(), remote.TransactionsTable, remote.Filter{ID: "x"}), remote.ErrUnscopedFilter)
	_, err = repo.Select(context.Background(), "expenses", remote.Filter{UserID: "u"})
	assert.ErrorIs(t, err, remote.ErrUnknownTable)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.CreateUser(ctx, User{ID: "u1", Email: "Shop@Example.com", Name: "Rahim", PasswordHash: "h"}))
	assert.ErrorIs(t, repo.CreateUser(ctx, User{ID: "u2", Email: "shop@example.com", PasswordHash: "h"}), ErrEmailTaken)

	u, err := repo.FindUserByEmail(ctx, "shop@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Rahim", u.Name)

	_, err = repo.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
