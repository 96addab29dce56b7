package websocket

import (
	"encoding/json"
	"time"

	"polyform-sync/internal/domain"
)

type MessageType string

const (
	TypePresenceUpdate    = MessageType(domain.EventPresenceUpdate)
	TypeBlockPatch        = MessageType(domain.EventBlockPatch)
	TypeTranslationResult = MessageType(domain.EventTranslationResult)
	TypeSourceUpdate      = MessageType(domain.EventSourceUpdate)

	TypeSessionLeft MessageType = "session_left"
	TypeError       MessageType = "error"
	TypePing        MessageType = "ping"
	TypePong        MessageType = "pong"
)

// Message is the envelope of every frame on a room connection. SessionID and
// Timestamp are stamped by the server on relayed events.
type Message struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SessionLeftPayload struct {
	SessionID string `json:"sessionId"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
