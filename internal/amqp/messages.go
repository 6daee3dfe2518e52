package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventKind names a ledger change, "<entity>.<action>".
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	BudgetCreated      EventKind = "budget.created"
	BudgetUpdated      EventKind = "budget.updated"
	BudgetDeleted      EventKind = "budget.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, TransactionDeleted,
		BudgetCreated, BudgetUpdated, BudgetDeleted:
		return true
	}
	return false
}

// Entity returns the part before the dot ("transaction" or "budget").
func (k EventKind) Entity() string {
	entity, _, _ := strings.Cut(string(k), ".")
	return entity
}

// LedgerEvent is a lightweight change notification. Consumers load the
// current record from the store by ID rather than trusting a payload.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, id int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.ID <= 0 {
		return nil, fmt.Errorf("invalid event id %d", ev.ID)
	}
	return &ev, nil
}
