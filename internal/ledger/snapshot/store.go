// Package snapshot implements the local ledger backend: one shared blob
// holding every user's records, partitioned by user id on each access.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
	applog "shopledger/internal/log"
)

// DefaultKey is the fixed name of the shared snapshot blob.
const DefaultKey = "shop_ai_cloud_data"

const backendName = "snapshot"

type Store struct {
	mu     sync.Mutex
	blobs  BlobStore
	key    string
	newID  ledger.IDFunc
	logger *applog.Logger
}

type Option func(*Store)

// WithKey overrides the blob key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithIDFunc overrides id generation.
func WithIDFunc(f ledger.IDFunc) Option {
	return func(s *Store) { s.newID = f }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		key:    DefaultKey,
		newID:  ledger.NewID,
		logger: applog.Default(applog.ComponentSnapshot),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) LoadAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, ledger.NewPersistenceError(backendName, applog.OpLoad, ledger.ErrNoUser)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		return nil, ledger.NewPersistenceError(backendName, applog.OpLoad, err)
	}
	return ledger.OwnedBy(userID, all), nil
}

func (s *Store) Insert(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	prepared, err := ledger.PrepareInsert(userID, txs, s.newID)
	if err != nil {
		return nil, ledger.NewPersistenceError(backendName, applog.OpInsert, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mine, err := s.replacePartition(ctx, userID, func(current, others []core.Transaction) ([]core.Transaction, error) {
		taken := make(map[string]struct{}, len(current)+len(others))
		for _, t := range others {
			taken[t.ID] = struct{}{}
		}
		for _, t := range current {
			taken[t.ID] = struct{}{}
		}
		for _, t := range prepared {
			if _, dup := taken[t.ID]; dup {
				return nil, fmt.Errorf("%w: %s", ledger.ErrDuplicateID, t.ID)
			}
			taken[t.ID] = struct{}{}
		}
		// newest first, as the listing shows them
		return append(prepared, current...), nil
	})
	if err != nil {
		return nil, ledger.NewPersistenceError(backendName, applog.OpInsert, err)
	}

	s.logger.InfoContext(ctx, "Transactions saved to snapshot",
		applog.FieldUserID, userID,
		applog.FieldCount, len(prepared),
		"partition_size", len(mine))
	return mine, nil
}

func (s *Store) DeleteByID(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ledger.NewPersistenceError(backendName, applog.OpDelete, ledger.ErrNoUser)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	_, err := s.replacePartition(ctx, userID, func(current, _ []core.Transaction) ([]core.Transaction, error) {
		kept := current[:0]
		for _, t := range current {
			if t.ID == id {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	if err != nil {
		return ledger.NewPersistenceError(backendName, applog.OpDelete, err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted from snapshot",
		applog.FieldUserID, userID,
		applog.FieldTxID, id,
		"removed", removed)
	return nil
}

// replacePartition is the only write path: read the whole blob, split off
// the user's partition, let update compute its replacement and write the
// whole blob back with every other partition carried over unchanged. update
// sees the other partitions read-only; an error from it aborts the write.
// Callers must hold s.mu.
func (s *Store) replacePartition(ctx context.Context, userID string, update func(mine, others []core.Transaction) ([]core.Transaction, error)) ([]core.Transaction, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}

	others := make([]core.Transaction, 0, len(all))
	var mine []core.Transaction
	for _, t := range all {
		if t.UserID == userID {
			mine = append(mine, t)
		} else {
			others = append(others, t)
		}
	}

	mine, err = update(mine, others)
	if err != nil {
		return nil, err
	}

	merged := make([]core.Transaction, 0, len(others)+len(mine))
	merged = append(merged, others...)
	merged = append(merged, mine...)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.blobs.Write(ctx, s.key, data); err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), mine...), nil
}

// readAll decodes the whole blob. A blob that cannot be decoded is an error,
// never treated as empty, so a write cannot wipe data it failed to read.
func (s *Store) readAll(ctx context.Context) ([]core.Transaction, error) {
	data, err := s.blobs.Read(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var all []core.Transaction
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return all, nil
}
