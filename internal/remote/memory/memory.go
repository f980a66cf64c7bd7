package memory

import (
	"context"
	"fmt"
	"sync"

	"shopledger/internal/core"
	"shopledger/internal/remote"
)

// Table is an in-process remote.Table. Ids are unique across all users,
// like the primary key of the real table.
type Table struct {
	mu   sync.Mutex
	rows []core.Transaction
}

func New(seed ...core.Transaction) *Table {
	return &Table{rows: append([]core.Transaction(nil), seed...)}
}

var _ remote.Table = (*Table)(nil)

func (t *Table) Select(_ context.Context, table string, f remote.Filter) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.Transaction
	for _, r := range t.rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Insert validates the whole batch before storing any row.
func (t *Table) Insert(_ context.Context, table string, rows []core.Transaction) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]struct{}, len(t.rows)+len(rows))
	for _, r := range t.rows {
		seen[r.ID] = struct{}{}
	}
	for _, r := range rows {
		if err := r.ValidatePersisted(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", remote.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	t.rows = append(t.rows, rows...)
	return append([]core.Transaction(nil), rows...), nil
}

func (t *Table) DeleteWhere(_ context.Context, table string, f remote.Filter) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !f.Match(r) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

// Len returns the number of rows across all users.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}
