package amqp

import (
	"encoding/json"
	"time"
)

// ClassificationRunMessage announces a finished classification pass over
// the transaction store. Consumers (dashboard refreshers) only need the
// counts; they re-read the store for the data itself.
type ClassificationRunMessage struct {
	RanAt     time.Time `json:"ran_at"`
	Total     int       `json:"total"`
	Labeled   int       `json:"labeled"`
	Unlabeled int       `json:"unlabeled"`
}

func NewClassificationRunMessage(total, labeled int) *ClassificationRunMessage {
	return &ClassificationRunMessage{
		RanAt:     time.Now(),
		Total:     total,
		Labeled:   labeled,
		Unlabeled: total - labeled,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ClassificationRunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClassificationRunMessageFromJSON creates a message from JSON bytes
func ClassificationRunMessageFromJSON(data []byte) (*ClassificationRunMessage, error) {
	var msg ClassificationRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
