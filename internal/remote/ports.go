// Package remote describes the multi-user table the cloud ledger backend talks
// to. Implementations live in sub-packages and in internal/storage.
package remote

import (
	"context"
	"errors"
	"fmt"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
)

// TransactionsTable is the only table the ledger uses.
const TransactionsTable = "transactions"

var (
	ErrUnscopedFilter = errors.New("filter must include a user id")
	ErrUnknownTable   = errors.New("unknown table")
	ErrDuplicateID    = ledger.ErrDuplicateID
)

// Filter selects rows. UserID is mandatory; ID narrows to a single row.
type Filter struct {
	UserID string
	ID     string
}

func (f Filter) Validate() error {
	if f.UserID == "" {
		return ErrUnscopedFilter
	}
	return nil
}

// Match reports whether t satisfies the filter.
func (f Filter) Match(t core.Transaction) bool {
	if f.UserID == "" || t.UserID != f.UserID {
		return false
	}
	return f.ID == "" || t.ID == f.ID
}

// CheckTable rejects any table other than TransactionsTable.
func CheckTable(table string) error {
	if table != TransactionsTable {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// Ports for outbound adapters.
type (
	Selector interface {
		Select(ctx context.Context, table string, f Filter) ([]core.Transaction, error)
	}

	// Inserter stores rows in one all-or-nothing call and returns them as stored.
	Inserter interface {
		Insert(ctx context.Context, table string, rows []core.Transaction) ([]core.Transaction, error)
	}

	// Deleter removes every row matching f. Matching nothing is not an error.
	Deleter interface {
		DeleteWhere(ctx context.Context, table string, f Filter) error
	}

	Table interface {
		Selector
		Inserter
		Deleter
	}
)
