package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/advisory"
	"shopledger/internal/core"
	"shopledger/internal/ledger"
	"shopledger/internal/ledger/snapshot"
	applog "shopledger/internal/log"
	"shopledger/internal/transfer"
)

var fixedNow = time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)

type fakeAdvisor struct {
	forgotten int
	seen      []core.Transaction
}

func (f *fakeAdvisor) Advise(_ context.Context, txs []core.Transaction) string {
	f.seen = txs
	return "advice"
}

func (f *fakeAdvisor) Forget() { f.forgotten++ }

func newGate(t *testing.T, store ledger.Store) (*Gate, *fakeAdvisor) {
	t.Helper()
	adv := &fakeAdvisor{}
	return New(store, adv, WithClock(func() time.Time { return fixedNow }), WithLogger(applog.Discard())), adv
}

func newStore() *snapshot.Store {
	return snapshot.New(snapshot.NewMemoryBlobStore(), snapshot.WithLogger(applog.Discard()))
}

func tx(desc string, typ core.TxType, cents int64, date string) core.Transaction {
	return core.Transaction{Description: desc, Amount: core.Money{Cents: cents}, Type: typ, Category: "other", Date: date}
}

func TestGatedOperationsRequireIdentity(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, newStore())

	_, err := g.Transactions()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = g.View()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, g.Add(ctx, tx("x", core.Income, 1, "2024-06-01")), ErrNotAuthenticated)
	assert.ErrorIs(t, g.Delete(ctx, "x"), ErrNotAuthenticated)
	_, err = g.PrepareImportCode("abc")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = g.PrepareImportFile([]byte("[]"))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = g.ConfirmImport(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = g.ExportCode()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, _, err = g.ExportFile()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = g.Advise(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, g.SetPeriod("2024-06"), ErrNotAuthenticated)
	assert.ErrorIs(t, g.Reload(ctx), ErrNotAuthenticated)
}

func TestMonthlyScenario(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))

	require.NoError(t, g.Add(ctx, tx("Sale", core.Income, 10000, "2024-06-01")))
	require.NoError(t, g.Add(ctx, tx("Rent", core.Expense, 4000, "2024-06-02")))
	require.NoError(t, g.Add(ctx, tx("Old", core.Income, 999, "2024-05-30")))

	v, err := g.View()
	require.NoError(t, err)
	assert.Equal(t, "2024-06", v.Period)
	assert.Equal(t, core.Summary{Income: core.Money{Cents: 10000}, Expense: core.Money{Cents: 4000}, Profit: core.Money{Cents: 6000}}, v.Summary)
	require.Len(t, v.Transactions, 2)
	assert.Equal(t, "Rent", v.Transactions[0].Description, "newest first")
	assert.Len(t, v.Daily, 2)
	assert.Equal(t, int64(4000), v.Today.Expense.Cents)

	require.NoError(t, g.SetPeriod("2024-05"))
	v, err = g.View()
	require.NoError(t, err)
	assert.Equal(t, int64(999), v.Summary.Income.Cents)

	assert.ErrorIs(t, g.SetPeriod("2024-5"), ErrInvalidPeriod)
}

func TestAddValidates(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))

	assert.ErrorIs(t, g.Add(ctx, tx("", core.Income, 1, "2024-06-01")), core.ErrEmptyDescription)
	assert.ErrorIs(t, g.Add(ctx, tx("x", core.Income, 1, "06/01/2024")), core.ErrInvalidDate)

	all, err := g.Transactions()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteOnlyTouchesOwnRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_, err := store.Insert(ctx, "other", []core.Transaction{tx("theirs", core.Income, 5, "2024-06-01")})
	require.NoError(t, err)
	theirs, err := store.LoadAll(ctx, "other")
	require.NoError(t, err)

	g, _ := newGate(t, store)
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))
	require.NoError(t, g.Add(ctx, tx("mine", core.Income, 5, "2024-06-01")))
	mine, err := g.Transactions()
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, theirs[0].ID))
	still, err := store.LoadAll(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, still, 1)

	require.NoError(t, g.Delete(ctx, mine[0].ID))
	left, err := g.Transactions()
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestImportRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))

	code, err := transfer.EncodeCode([]core.Transaction{tx("বিক্রি", core.Income, 100, "2024-06-01"), tx("b", core.Expense, 5, "2024-06-01")})
	require.NoError(t, err)

	n, err := g.PrepareImportCode(code)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	all, _ := g.Transactions()
	assert.Empty(t, all)

	added, err := g.ConfirmImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	all, _ = g.Transactions()
	assert.Len(t, all, 2)

	_, err = g.ConfirmImport(ctx)
	assert.ErrorIs(t, err, ErrNoPendingImport)

	_, err = g.PrepareImportFile([]byte(`[{"description":"x","amount":1,"type":"Income","date":"2024-06-03"}]`))
	require.NoError(t, err)
	g.CancelImport()
	_, err = g.ConfirmImport(ctx)
	assert.ErrorIs(t, err, ErrNoPendingImport)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))

	_, err := g.ExportCode()
	assert.ErrorIs(t, err, transfer.ErrNothingToExport)

	require.NoError(t, g.Add(ctx, tx("Sale", core.Income, 100, "2024-06-01")))
	code, err := g.ExportCode()
	require.NoError(t, err)
	back, err := transfer.DecodeCode(code)
	require.NoError(t, err)
	assert.Len(t, back, 1)

	name, data, err := g.ExportFile()
	require.NoError(t, err)
	assert.Equal(t, "ShopBackup_2024-06-02.json", name)
	assert.NotEmpty(t, data)
}

func TestTeardownClearsEverything(t *testing.T) {
	ctx := context.Background()
	g, adv := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u", Name: "U"}))
	require.NoError(t, g.Add(ctx, tx("Sale", core.Income, 100, "2024-06-01")))
	code, err := g.ExportCode()
	require.NoError(t, err)
	_, err = g.PrepareImportCode(code)
	require.NoError(t, err)
	_, err = g.Advise(ctx)
	require.NoError(t, err)
	assert.Equal(t, "advice", g.LastAdvice())

	forgottenBefore := adv.forgotten
	g.Teardown()

	assert.Nil(t, g.Identity())
	assert.Empty(t, g.LastAdvice())
	assert.Greater(t, adv.forgotten, forgottenBefore)
	_, err = g.Transactions()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// the pending import does not survive into the next session
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))
	_, err = g.ConfirmImport(ctx)
	assert.ErrorIs(t, err, ErrNoPendingImport)
}

func TestOnIdentityChange(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_, err := store.Insert(ctx, "a", []core.Transaction{tx("a's", core.Income, 1, "2024-06-01")})
	require.NoError(t, err)
	g, _ := newGate(t, store)

	require.NoError(t, g.OnIdentityChange(ctx, &core.Identity{ID: "a"}))
	all, err := g.Transactions()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, g.OnIdentityChange(ctx, &core.Identity{ID: "b"}))
	all, err = g.Transactions()
	require.NoError(t, err)
	assert.Empty(t, all, "switching user must not show the previous user's records")

	require.NoError(t, g.OnIdentityChange(ctx, nil))
	assert.Nil(t, g.Identity())
}

type flakyStore struct {
	ledger.Store
	fail bool
}

func (f *flakyStore) Insert(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	if f.fail {
		return nil, ledger.NewPersistenceError("flaky", "insert", errors.New("offline"))
	}
	return f.Store.Insert(ctx, userID, txs)
}

func TestFailedMutationKeepsLastKnownGood(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: newStore()}
	g, _ := newGate(t, store)
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))
	require.NoError(t, g.Add(ctx, tx("first", core.Income, 1, "2024-06-01")))

	store.fail = true
	err := g.Add(ctx, tx("second", core.Income, 1, "2024-06-01"))
	var pe *ledger.PersistenceError
	require.True(t, errors.As(err, &pe))

	all, err := g.Transactions()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "first", all[0].Description)
}

func TestAdviseCoversActivePeriodOnly(t *testing.T) {
	ctx := context.Background()
	g, adv := newGate(t, newStore())
	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))
	require.NoError(t, g.Add(ctx, tx("january", core.Income, 1, "2024-01-05")))
	require.NoError(t, g.Add(ctx, tx("early june", core.Income, 1, "2024-06-01")))
	require.NoError(t, g.Add(ctx, tx("late june", core.Expense, 1, "2024-06-02")))

	text, err := g.Advise(ctx)
	require.NoError(t, err)
	assert.Equal(t, "advice", text)
	require.Len(t, adv.seen, 2)
	assert.Equal(t, "late june", adv.seen[0].Description)
	assert.Equal(t, "early june", adv.seen[1].Description)
}

type countingGenerator struct{ calls int }

func (c *countingGenerator) Generate(context.Context, string) (string, error) {
	c.calls++
	return "tip", nil
}

func TestAdviseOnEmptyPeriodSkipsModel(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{}
	bridge := advisory.NewBridge(gen, advisory.WithLogger(applog.Discard()))
	g := New(newStore(), bridge, WithClock(func() time.Time { return fixedNow }), WithLogger(applog.Discard()))

	require.NoError(t, g.Establish(ctx, core.Identity{ID: "u"}))
	require.NoError(t, g.Add(ctx, tx("january", core.Income, 1, "2024-01-05")))
	require.NoError(t, g.Add(ctx, tx("june", core.Income, 1, "2024-06-01")))
	require.NoError(t, g.SetPeriod("2024-03"))

	text, err := g.Advise(ctx)
	require.NoError(t, err)
	assert.Equal(t, advisory.NoDataText, text)
	assert.Zero(t, gen.calls)

	require.NoError(t, g.SetPeriod("2024-06"))
	text, err = g.Advise(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tip", text)
	assert.Equal(t, 1, gen.calls)
}
