package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core"
)

func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
}

func TestPrepareInsert(t *testing.T) {
	in := []core.Transaction{
		{Description: "a"},
		{ID: "keep", Description: "b", UserID: "u1"},
	}
	out, err := PrepareInsert("u1", in, seqIDs())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "id-1", out[0].ID)
	assert.Equal(t, "u1", out[0].UserID)
	assert.Equal(t, "keep", out[1].ID)
	assert.Empty(t, in[0].ID, "input must not be mutated")

	_, err = PrepareInsert("u1", []core.Transaction{{ID: "x", UserID: "u2"}}, nil)
	assert.ErrorIs(t, err, ErrForeignRecord)

	_, err = PrepareInsert("", in, nil)
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestOwnedBy(t *testing.T) {
	txs := []core.Transaction{{ID: "1", UserID: "a"}, {ID: "2", UserID: "b"}, {ID: "3"}}
	got := OwnedBy("a", txs)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Empty(t, OwnedBy("", txs))
}

func TestPersistenceError(t *testing.T) {
	base := errors.New("disk full")
	err := NewPersistenceError("snapshot", "save", base)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "snapshot save: disk full", err.Error())
	assert.Equal(t, "Could not save your data: disk full", UserMessage(err))

	// already typed errors pass through untouched
	assert.Same(t, err, NewPersistenceError("remote", "load", err))
	assert.Nil(t, NewPersistenceError("remote", "load", nil))

	assert.Equal(t, "Please sign in first.", UserMessage(NewPersistenceError("x", "load", ErrNoUser)))
	assert.Equal(t, "A record with the same id already exists. Nothing was saved.",
		UserMessage(NewPersistenceError("snapshot", "save", fmt.Errorf("%w: t1", ErrDuplicateID))))
	assert.Equal(t, "Something went wrong: boom", UserMessage(errors.New("boom")))
	assert.Equal(t, "", UserMessage(nil))
}
