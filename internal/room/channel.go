package room

import (
	"context"
	"encoding/json"

	"polyform-sync/internal/domain"
)

// EventSessionLeft is announced by the hub when a peer disconnects.
const EventSessionLeft domain.EventType = "session_left"

// Event is one broadcast received from the room. SessionID is the sender as
// stamped by the hub.
type Event struct {
	Type      domain.EventType
	SessionID string
	Payload   json.RawMessage
}

func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Channel is the per-space broadcast transport. Delivery is best effort and
// ordered per sender; a sender never receives its own events.
type Channel interface {
	Connect(ctx context.Context) error
	Publish(eventType domain.EventType, payload interface{}) error
	Subscribe(eventType domain.EventType, handler func(Event))
	Close() error
}

// Store persists block updates.
type Store interface {
	PatchBlocks(ctx context.Context, spaceID string, patches []domain.BlockPatch) error
}

// Translator resolves translations through the translation API.
type Translator interface {
	Translate(ctx context.Context, req *domain.TranslateRequest) (*domain.TranslateResponse, error)
}
