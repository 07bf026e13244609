package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"foro/internal/docstore"
)

// MessageVersion is the current change message schema.
const MessageVersion = 1

// ChangeMessage carries one document change between processes. It holds no
// document data; receivers re-query their own store.
type ChangeMessage struct {
	Version int `json:"version"`
	docstore.Change
}

// NewChangeMessage wraps c, stamping the current time when c has none.
func NewChangeMessage(c docstore.Change) *ChangeMessage {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	return &ChangeMessage{Version: MessageVersion, Change: c}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones without a
// collection.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" {
		return nil, errors.New("change message without collection")
	}
	return &msg, nil
}
