package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	EventInserted EventType = "transactions.inserted"
	EventDeleted  EventType = "transaction.deleted"
	EventImported EventType = "transactions.imported"
)

// LedgerEvent announces a committed ledger mutation. It carries ids only;
// consumers read the records from the store.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	IDs       []string  `json:"ids"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, userID string, ids []string) *LedgerEvent {
	return &LedgerEvent{
		Type:      typ,
		UserID:    userID,
		IDs:       ids,
		Count:     len(ids),
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.UserID == "" {
		return errors.New("event user id is required")
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
