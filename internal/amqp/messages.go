package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid transaction logged message")

// TransactionLoggedMessage announces a new ledger row in SQLite. It carries
// only the row id; the worker reads the row itself.
type TransactionLoggedMessage struct {
	ID        int64     `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionLoggedMessage(id int64) *TransactionLoggedMessage {
	return &TransactionLoggedMessage{
		ID:        id,
		MessageID: uuid.New(),
		Timestamp: time.Now(),
	}
}

func (m *TransactionLoggedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionLoggedMessageFromJSON decodes and sanity-checks a message body.
func TransactionLoggedMessageFromJSON(data []byte) (*TransactionLoggedMessage, error) {
	var msg TransactionLoggedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}
