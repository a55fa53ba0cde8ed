package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/ledger"
)

// LedgerChangedMessage announces a persisted ledger mutation. It carries no
// transaction data; consumers reload the slot.
type LedgerChangedMessage struct {
	Op        ledger.Op `json:"op"`
	ID        int64     `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(ev ledger.Event) *LedgerChangedMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerChangedMessage{
		Op:        ev.Op,
		ID:        ev.ID,
		Count:     ev.Count,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message body
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
