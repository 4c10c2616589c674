package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage announces a committed ledger write. It carries
// only identifiers; consumers fetch the full transaction from storage
// so the message can never go stale.
type LedgerEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	Op            string    `json:"op"` // created, updated, deleted
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(op string, transactionID, userID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		TransactionID: transactionID,
		Op:            op,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
