// Package worker reacts to ledger events outside the interactive client.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopledger/internal/amqp"
	"shopledger/internal/backup"
	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
	"shopledger/internal/transfer"
)

// BackupWorker writes a fresh backup file of a user's ledger after each
// change. Backups are keyed by day, so the last change of a day wins.
type BackupWorker struct {
	store  ledger.Store
	sink   backup.Sink
	now    func() time.Time
	logger *applog.Logger
}

type Option func(*BackupWorker)

func WithClock(now func() time.Time) Option {
	return func(w *BackupWorker) { w.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(w *BackupWorker) { w.logger = l }
}

func NewBackupWorker(store ledger.Store, sink backup.Sink, opts ...Option) *BackupWorker {
	w := &BackupWorker{
		store:  store,
		sink:   sink,
		now:    time.Now,
		logger: applog.Default(applog.ComponentWorker),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// ObjectName is where a user's backup for the day is stored.
func ObjectName(userID string, now time.Time) string {
	return userID + "/" + transfer.FileName(now)
}

// HandleEvent is the amqp consumer callback.
func (w *BackupWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		applog.FieldUserID, ev.UserID,
		applog.FieldCount, ev.Count)
	_, err := w.BackupUser(ctx, ev.UserID)
	return err
}

// BackupUser writes the user's backup and returns its name. An empty ledger
// is skipped and returns "".
func (w *BackupWorker) BackupUser(ctx context.Context, userID string) (string, error) {
	start := time.Now()
	txs, err := w.store.LoadAll(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}
	core.SortNewestFirst(txs)

	data, err := transfer.EncodeFile(txs)
	if errors.Is(err, transfer.ErrNothingToExport) {
		w.logger.InfoContext(ctx, "Ledger empty, no backup written", applog.FieldUserID, userID)
		return "", nil
	}
	if err != nil {
		return "", err
	}

	name := ObjectName(userID, w.now())
	if err := w.sink.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("store backup %s: %w", name, err)
	}
	w.logger.InfoContext(ctx, "Backup written",
		applog.FieldUserID, userID,
		applog.FieldCount, len(txs),
		"name", name,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return name, nil
}
