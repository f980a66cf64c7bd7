// Package remote implements the cloud ledger backend on top of a shared
// multi-user table. Every query is scoped by user id, and every result is
// filtered by owner again before it is returned.
package remote

import (
	"context"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/remote"
)

type Store struct {
	table   remote.Table
	name    string
	backend string
	newID   ledger.IDFunc
	logger  *applog.Logger
}

type Option func(*Store)

// WithBackendName sets the label used in errors and logs.
func WithBackendName(name string) Option {
	return func(s *Store) { s.backend = name }
}

func WithIDFunc(f ledger.IDFunc) Option {
	return func(s *Store) { s.newID = f }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(table remote.Table, opts ...Option) *Store {
	s := &Store{
		table:   table,
		name:    remote.TransactionsTable,
		backend: "remote",
		newID:   ledger.NewID,
		logger:  applog.Default(applog.ComponentLedger),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) LoadAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, ledger.NewPersistenceError(s.backend, applog.OpLoad, ledger.ErrNoUser)
	}
	rows, err := s.table.Select(ctx, s.name, remote.Filter{UserID: userID})
	if err != nil {
		return nil, ledger.NewPersistenceError(s.backend, applog.OpLoad, err)
	}
	mine := ledger.OwnedBy(userID, rows)
	if dropped := len(rows) - len(mine); dropped > 0 {
		s.logger.WarnContext(ctx, "Remote returned rows owned by another user",
			applog.FieldUserID, userID,
			"dropped", dropped)
	}
	return mine, nil
}

// Insert sends the whole batch in one call, then reads the partition back.
func (s *Store) Insert(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	prepared, err := ledger.PrepareInsert(userID, txs, s.newID)
	if err != nil {
		return nil, ledger.NewPersistenceError(s.backend, applog.OpInsert, err)
	}
	if len(prepared) > 0 {
		if _, err := s.table.Insert(ctx, s.name, prepared); err != nil {
			s.logger.ErrorContext(ctx, "Failed to insert transactions",
				applog.FieldUserID, userID,
				applog.FieldCount, len(prepared),
				applog.FieldError, err)
			return nil, ledger.NewPersistenceError(s.backend, applog.OpInsert, err)
		}
		s.logger.InfoContext(ctx, "Transactions inserted",
			applog.FieldUserID, userID,
			applog.FieldCount, len(prepared))
	}
	return s.LoadAll(ctx, userID)
}

func (s *Store) DeleteByID(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ledger.NewPersistenceError(s.backend, applog.OpDelete, ledger.ErrNoUser)
	}
	if id == "" {
		return ledger.NewPersistenceError(s.backend, applog.OpDelete, core.ErrMissingID)
	}
	if err := s.table.DeleteWhere(ctx, s.name, remote.Filter{UserID: userID, ID: id}); err != nil {
		return ledger.NewPersistenceError(s.backend, applog.OpDelete, err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		applog.FieldUserID, userID,
		applog.FieldTxID, id)
	return nil
}
