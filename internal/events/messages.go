package events

import (
	"encoding/json"
	"time"

	"traty/internal/core"
)

// ExpenseRecordedMessage announces one committed expense to downstream
// consumers (notification tooling, backups). It carries the record itself;
// consumers need no read access to the store.
type ExpenseRecordedMessage struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	AmountKopecks int64     `json:"amount_kopecks"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// NewExpenseRecordedMessage builds the message for a committed record.
func NewExpenseRecordedMessage(rec core.ExpenseRecord) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:            rec.ID,
		UserID:        rec.UserID,
		AmountKopecks: rec.Amount.Kopecks,
		Category:      rec.Category,
		Description:   rec.Description,
		RecordedAt:    rec.CreatedAt,
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON parses a message from JSON bytes.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
