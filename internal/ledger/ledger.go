// Package ledger defines the user-scoped transaction store and the helpers
// shared by its backends.
//
// A Store only ever exposes the partition of the user passed in. Callers
// never see or touch another user's records, whatever the backend.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shopledger/internal/core"
)

// Store is the persistence boundary for transactions.
type Store interface {
	// LoadAll returns every record owned by userID, in no particular order.
	LoadAll(ctx context.Context, userID string) ([]core.Transaction, error)

	// Insert appends txs to the user's partition and returns the whole
	// updated partition. Records without an id get one assigned.
	Insert(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error)

	// DeleteByID removes the record only when both id and userID match.
	// Deleting an unknown id is not an error.
	DeleteByID(ctx context.Context, id, userID string) error
}

var (
	ErrNoUser        = errors.New("no user id")
	ErrForeignRecord = errors.New("record belongs to another user")

	// ErrDuplicateID is returned when an inserted id already exists in any
	// partition of the backend.
	ErrDuplicateID = errors.New("duplicate transaction id")
)

// IDFunc generates record ids. Tests replace it to get stable values.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// PersistenceError reports a failed store operation. The partition is left
// as it was before the call.
type PersistenceError struct {
	Op      string
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user for this failure.
func (e *PersistenceError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrNoUser):
		return "Please sign in first."
	case errors.Is(e.Err, ErrForeignRecord):
		return "Some records belong to another account and were not saved."
	case errors.Is(e.Err, ErrDuplicateID):
		return "A record with the same id already exists. Nothing was saved."
	default:
		return fmt.Sprintf("Could not %s your data: %v", e.Op, e.Err)
	}
}

// NewPersistenceError wraps err unless it already is a PersistenceError.
func NewPersistenceError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Backend: backend, Err: err}
}

// UserMessager is implemented by every error type that carries user-facing text.
type UserMessager interface {
	UserMessage() string
}

// UserMessage maps any error to the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Something went wrong: " + err.Error()
}

// PrepareInsert stamps ownership and ids on records about to be stored.
// A record that already names a different owner is rejected.
func PrepareInsert(userID string, txs []core.Transaction, newID IDFunc) ([]core.Transaction, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if newID == nil {
		newID = NewID
	}
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		switch t.UserID {
		case "":
			t.UserID = userID
		case userID:
		default:
			return nil, fmt.Errorf("%w: record %q", ErrForeignRecord, t.ID)
		}
		if t.ID == "" {
			t.ID = newID()
		}
		out[i] = t
	}
	return out, nil
}

// OwnedBy drops any record not owned by userID. Backends apply it to every
// read so that a misbehaving source cannot leak another partition.
func OwnedBy(userID string, txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.OwnedBy(userID) {
			out = append(out, t)
		}
	}
	return out
}

type opKey struct{}

// WithOperation tags ctx with the user-level operation driving a store call,
// e.g. an import, so decorators can tell it apart from a plain insert.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OperationFrom returns the tag set by WithOperation, or "".
func OperationFrom(ctx context.Context) string {
	op, _ := ctx.Value(opKey{}).(string)
	return op
}
