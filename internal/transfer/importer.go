package transfer

import (
	"context"
	"sync"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
)

// Importer turns a code or file into a PendingImport. Nothing reaches the
// store until the caller commits it.
type Importer struct {
	store  ledger.Store
	newID  ledger.IDFunc
	logger *applog.Logger
}

type ImporterOption func(*Importer)

func WithIDFunc(f ledger.IDFunc) ImporterOption {
	return func(im *Importer) { im.newID = f }
}

func WithLogger(l *applog.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l }
}

func NewImporter(store ledger.Store, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:  store,
		newID:  ledger.NewID,
		logger: applog.Default(applog.ComponentTransfer),
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// PendingImport holds decoded, stamped records awaiting confirmation.
type PendingImport struct {
	Count   int
	Records []core.Transaction

	mu        sync.Mutex
	committed bool
	userID    string
	store     ledger.Store
	logger    *applog.Logger
}

func (im *Importer) PrepareCode(code, userID string) (*PendingImport, error) {
	if userID == "" {
		return nil, ledger.ErrNoUser
	}
	txs, err := DecodeCode(code)
	if err != nil {
		im.logger.Warn("Rejected import code", applog.FieldError, err)
		return nil, err
	}
	return im.pending(txs, userID), nil
}

func (im *Importer) PrepareFile(data []byte, userID string) (*PendingImport, error) {
	if userID == "" {
		return nil, ledger.ErrNoUser
	}
	txs, err := DecodeFile(data)
	if err != nil {
		im.logger.Warn("Rejected import file", applog.FieldError, err)
		return nil, err
	}
	return im.pending(txs, userID), nil
}

func (im *Importer) pending(txs []core.Transaction, userID string) *PendingImport {
	stamped := Stamp(txs, userID, im.newID)
	return &PendingImport{
		Count:   len(stamped),
		Records: stamped,
		userID:  userID,
		store:   im.store,
		logger:  im.logger,
	}
}

// UserID is the account the records were stamped for.
func (p *PendingImport) UserID() string { return p.userID }

// Commit appends the records to the user's ledger and returns the updated
// collection. A pending import can be committed once.
func (p *PendingImport) Commit(ctx context.Context) ([]core.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committed {
		return nil, ErrAlreadyCommitted
	}
	all, err := p.store.Insert(ledger.WithOperation(ctx, applog.OpImport), p.userID, p.Records)
	if err != nil {
		return nil, ledger.NewPersistenceError("import", applog.OpImport, err)
	}
	p.committed = true
	p.logger.InfoContext(ctx, "Import committed",
		applog.FieldUserID, p.userID,
		applog.FieldCount, p.Count)
	return all, nil
}
