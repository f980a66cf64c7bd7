package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

const (
	// DateLayout is the wire and storage layout of Transaction.Date.
	DateLayout = "2006-01-02"
	// PeriodLayout is the layout of a period key (month).
	PeriodLayout = "2006-01"

	maxDescriptionLen = 200
)

// SuggestedCategories is the category set offered to users. Any other value is accepted.
var SuggestedCategories = []string{"sales", "rent", "payroll", "utilities", "inventory", "other"}

type (
	TxType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense fact owned by exactly one user.
	// Records are never edited after creation, only deleted.
	Transaction struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Type        TxType `json:"type"`
		Category    string `json:"category"`
		Date        string `json:"date"`
		UserID      string `json:"userId"`
	}

	// Identity is the authenticated user as supplied by the auth provider.
	Identity struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date, want YYYY-MM-DD")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingID        = errors.New("missing transaction id")
	ErrMissingUser      = errors.New("missing user id")
)

// IsValid reports whether t is one of Income or Expense.
func (t TxType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// ParseTxType accepts the wire values and their lowercase forms.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "in":
		return Income, nil
	case "expense", "out":
		return Expense, nil
	default:
		return "", ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a record before it is created. Ownership and id are
// checked separately by ValidatePersisted since stores assign them.
func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidatePersisted checks the invariants every stored record must hold.
func (t Transaction) ValidatePersisted() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	return nil
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

// OwnedBy reports whether the record belongs to userID.
func (t Transaction) OwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}
