// Package session holds the signed-in identity and the in-memory ledger of
// that identity. Every ledger operation goes through the Gate, which refuses
// it while nobody is signed in.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/transfer"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrNoPendingImport  = errors.New("no import waiting for confirmation")
	ErrInvalidPeriod    = errors.New("period must be YYYY-MM")
	ErrNoAdvisor        = errors.New("no advisor configured")
)

// Advisor is satisfied by *advisory.Bridge.
type Advisor interface {
	Advise(ctx context.Context, txs []core.Transaction) string
	Forget()
}

// View is the derived state for the active period.
type View struct {
	Period       string
	Transactions []core.Transaction
	Summary      core.Summary
	Daily        []core.DailyPoint
	Today        core.Summary
}

type Gate struct {
	mu       sync.Mutex
	store    ledger.Store
	importer *transfer.Importer
	advisor  Advisor
	now      func() time.Time
	logger   *applog.Logger

	identity *core.Identity
	txs      []core.Transaction
	period   string
	advice   string
	pending  *transfer.PendingImport
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithImporter replaces the importer built from the store.
func WithImporter(im *transfer.Importer) Option {
	return func(g *Gate) { g.importer = im }
}

func New(store ledger.Store, advisor Advisor, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		advisor: advisor,
		now:     time.Now,
		logger:  applog.Default(applog.ComponentSession),
	}
	for _, o := range opts {
		o(g)
	}
	if g.importer == nil {
		g.importer = transfer.NewImporter(store)
	}
	return g
}

// Establish signs id in and loads its ledger. When loading fails the
// identity stays established with an empty ledger and the error is returned;
// Reload retries.
func (g *Gate) Establish(ctx context.Context, id core.Identity) error {
	if id.ID == "" {
		return ledger.ErrNoUser
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clearLocked()
	g.identity = &id
	g.period = core.CurrentPeriod(g.now())
	g.logger.InfoContext(ctx, "Session established", applog.FieldUserID, id.ID)
	return g.reloadLocked(ctx)
}

// Teardown forgets the identity and everything derived from it.
func (g *Gate) Teardown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity != nil {
		g.logger.Info("Session closed", applog.FieldUserID, g.identity.ID)
	}
	g.clearLocked()
}

// OnIdentityChange follows the auth provider: nil tears down, a different
// user re-establishes, the same user is a no-op.
func (g *Gate) OnIdentityChange(ctx context.Context, id *core.Identity) error {
	if id == nil {
		g.Teardown()
		return nil
	}
	g.mu.Lock()
	same := g.identity != nil && g.identity.ID == id.ID
	g.mu.Unlock()
	if same {
		return nil
	}
	return g.Establish(ctx, *id)
}

func (g *Gate) clearLocked() {
	g.identity = nil
	g.txs = nil
	g.period = ""
	g.advice = ""
	g.pending = nil
	if g.advisor != nil {
		g.advisor.Forget()
	}
}

// Identity returns a copy of the signed-in identity, or nil.
func (g *Gate) Identity() *core.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return nil
	}
	id := *g.identity
	return &id
}

// Reload replaces the in-memory ledger with the store's. On failure the
// previous ledger is kept.
func (g *Gate) Reload(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return ErrNotAuthenticated
	}
	return g.reloadLocked(ctx)
}

func (g *Gate) reloadLocked(ctx context.Context) error {
	txs, err := g.store.LoadAll(ctx, g.identity.ID)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to load ledger",
			applog.FieldUserID, g.identity.ID,
			applog.FieldError, err)
		return err
	}
	g.txs = txs
	return nil
}

// Transactions returns the whole ledger, newest first.
func (g *Gate) Transactions() ([]core.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return nil, ErrNotAuthenticated
	}
	return sortedCopy(g.txs), nil
}

func (g *Gate) SetPeriod(period string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return ErrNotAuthenticated
	}
	if _, err := time.Parse(core.PeriodLayout, period); err != nil || len(period) != len(core.PeriodLayout) {
		return ErrInvalidPeriod
	}
	g.period = period
	return nil
}

// View derives the active period's listing and statistics.
func (g *Gate) View() (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return View{}, ErrNotAuthenticated
	}
	inPeriod := core.FilterByPeriod(g.txs, g.period)
	return View{
		Period:       g.period,
		Transactions: sortedCopy(inPeriod),
		Summary:      core.Summarize(inPeriod),
		Daily:        core.ToDailySeries(inPeriod),
		Today:        core.Summarize(core.FilterByExactDate(g.txs, core.Today(g.now()))),
	}, nil
}

// Add validates and stores a new record.
func (g *Gate) Add(ctx context.Context, t core.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return ErrNotAuthenticated
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.ID = ""
	t.UserID = g.identity.ID

	all, err := g.store.Insert(ctx, g.identity.ID, []core.Transaction{t})
	if err != nil {
		return err
	}
	g.txs = all
	return nil
}

// Delete removes a record of the signed-in user.
func (g *Gate) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return ErrNotAuthenticated
	}
	if err := g.store.DeleteByID(ctx, id, g.identity.ID); err != nil {
		return err
	}
	kept := make([]core.Transaction, 0, len(g.txs))
	for _, t := range g.txs {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	g.txs = kept
	return nil
}

// PrepareImportCode decodes a pasted code and holds it until ConfirmImport.
func (g *Gate) PrepareImportCode(code string) (int, error) {
	return g.prepare(func(userID string) (*transfer.PendingImport, error) {
		return g.importer.PrepareCode(code, userID)
	})
}

// PrepareImportFile decodes a backup file and holds it until ConfirmImport.
func (g *Gate) PrepareImportFile(data []byte) (int, error) {
	return g.prepare(func(userID string) (*transfer.PendingImport, error) {
		return g.importer.PrepareFile(data, userID)
	})
}

func (g *Gate) prepare(fn func(userID string) (*transfer.PendingImport, error)) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return 0, ErrNotAuthenticated
	}
	p, err := fn(g.identity.ID)
	if err != nil {
		return 0, err
	}
	g.pending = p
	return p.Count, nil
}

// ConfirmImport commits the pending import and returns how many records
// were added.
func (g *Gate) ConfirmImport(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return 0, ErrNotAuthenticated
	}
	if g.pending == nil || g.pending.UserID() != g.identity.ID {
		return 0, ErrNoPendingImport
	}
	all, err := g.pending.Commit(ctx)
	if err != nil {
		return 0, err
	}
	n := g.pending.Count
	g.pending = nil
	g.txs = all
	return n, nil
}

// CancelImport drops a pending import.
func (g *Gate) CancelImport() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}

func (g *Gate) ExportCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return "", ErrNotAuthenticated
	}
	return transfer.EncodeCode(sortedCopy(g.txs))
}

// ExportFile returns the backup file name and body.
func (g *Gate) ExportFile() (string, []byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return "", nil, ErrNotAuthenticated
	}
	data, err := transfer.EncodeFile(sortedCopy(g.txs))
	if err != nil {
		return "", nil, err
	}
	return transfer.FileName(g.now()), data, nil
}

// Advise asks the advisor about the active period's records, newest first.
// An empty period is passed through as is; the advisor answers it without
// calling the model.
func (g *Gate) Advise(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return "", ErrNotAuthenticated
	}
	if g.advisor == nil {
		return "", ErrNoAdvisor
	}
	g.advice = g.advisor.Advise(ctx, sortedCopy(core.FilterByPeriod(g.txs, g.period)))
	return g.advice, nil
}

// LastAdvice returns the most recent advice text of this session.
func (g *Gate) LastAdvice() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.advice
}

func sortedCopy(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	core.SortNewestFirst(out)
	return out
}
