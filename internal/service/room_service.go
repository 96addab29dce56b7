package service

import (
	"encoding/json"
	"fmt"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/websocket"

	"golang.org/x/exp/slog"
)

// Broadcaster is the part of the hub the relay needs.
type Broadcaster interface {
	BroadcastToSpace(spaceID string, message *websocket.Message, excludeSessionID string) error
}

// RoomService enforces who may publish what inside a space room and relays
// accepted events to the other sessions.
type RoomService struct {
	hub Broadcaster
	now func() time.Time
	log *slog.Logger
}

func NewRoomService(hub Broadcaster, log *slog.Logger) *RoomService {
	return &RoomService{
		hub: hub,
		now: time.Now,
		log: log.With(slog.String("component", "room")),
	}
}

// Relay validates an inbound event from sender and broadcasts it to the rest
// of the room. The sender's own session never receives it back.
func (s *RoomService) Relay(sender *websocket.Client, msg *websocket.Message) error {
	event := domain.EventType(msg.Type)
	if !event.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Type)
	}
	if event.Mutating() && !sender.CanEdit() {
		return fmt.Errorf("%w: %s", ErrReadOnlySession, msg.Type)
	}

	payload, err := s.normalize(event, sender.ID, msg.Payload)
	if err != nil {
		return err
	}

	out := &websocket.Message{
		Type:      msg.Type,
		SessionID: sender.ID,
		Timestamp: s.now(),
		Payload:   payload,
	}

	return s.hub.BroadcastToSpace(sender.SpaceID, out, sender.ID)
}

// normalize checks the payload shape and stamps the sender's session id
// where the event carries one, so sessions cannot speak for each other.
func (s *RoomService) normalize(event domain.EventType, sessionID string, raw json.RawMessage) (json.RawMessage, error) {
	switch event {
	case domain.EventSourceUpdate:
		var p domain.SourceUpdate
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", event, err)
		}
		if p.BlockID == "" || p.TranslationVersion <= 0 {
			return nil, fmt.Errorf("invalid %s payload: missing block or version", event)
		}
		p.SessionID = sessionID
		return json.Marshal(&p)

	case domain.EventPresenceUpdate:
		var p domain.Presence
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", event, err)
		}
		p.SessionID = sessionID
		return json.Marshal(&p)

	case domain.EventTranslationResult:
		var p domain.TranslationResult
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", event, err)
		}
		if p.BlockID == "" || p.Language == "" || p.TranslationVersion <= 0 {
			return nil, fmt.Errorf("invalid %s payload: incomplete translation result", event)
		}
		return raw, nil

	case domain.EventBlockPatch:
		var p domain.BlockPatchEvent
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", event, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("invalid %s payload: id is required", event)
		}
		return raw, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
}
