// Package services composes the ledger store with event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"shopledger/internal/amqp"
	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
)

// Publisher is satisfied by *amqp.Client.
type Publisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService is a ledger.Store that announces every committed mutation.
// The store is written first; a failed publish is logged and never fails
// the mutation.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	newID     ledger.IDFunc
	logger    *applog.Logger
	closers   []io.Closer
}

type Option func(*LedgerService)

func WithIDFunc(f ledger.IDFunc) Option {
	return func(s *LedgerService) { s.newID = f }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithClosers registers resources released by Close, e.g. the database and
// the AMQP connection.
func WithClosers(c ...io.Closer) Option {
	return func(s *LedgerService) { s.closers = append(s.closers, c...) }
}

// NewLedgerService wraps store. publisher may be nil, which disables events.
func NewLedgerService(store ledger.Store, publisher Publisher, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: publisher,
		newID:     ledger.NewID,
		logger:    applog.Default(applog.ComponentLedger),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ ledger.Store = (*LedgerService)(nil)

func (s *LedgerService) LoadAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.LoadAll(ctx, userID)
}

// Insert assigns ids up front so the event can name the new records.
func (s *LedgerService) Insert(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	prepared, err := ledger.PrepareInsert(userID, txs, s.newID)
	if err != nil {
		return nil, ledger.NewPersistenceError("ledger", applog.OpInsert, err)
	}
	all, err := s.store.Insert(ctx, userID, prepared)
	if err != nil {
		return nil, err
	}

	typ := amqp.EventInserted
	if ledger.OperationFrom(ctx) == applog.OpImport {
		typ = amqp.EventImported
	}
	ids := make([]string, len(prepared))
	for i, t := range prepared {
		ids[i] = t.ID
	}
	s.publish(ctx, amqp.NewLedgerEvent(typ, userID, ids))
	return all, nil
}

func (s *LedgerService) DeleteByID(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteByID(ctx, id, userID); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, userID, []string{id}))
	return nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publishing disabled, skipping", "type", ev.Type)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			applog.FieldUserID, ev.UserID,
			applog.FieldError, err)
	}
}

// Close releases the registered resources.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
