package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Options struct {
	MaxConnPerSpace int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	// MessagesPerSecond limits inbound frames per connection; zero disables.
	MessagesPerSecond float64
	Burst             int
}

// Manager fans events out to the sessions of each space room. A single Run
// loop owns registration and inbound dispatch, so messages from one sender
// reach the other sessions in the order they were read.
type Manager struct {
	rooms          map[string]map[string]*Client
	roomsMutex     sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	done           chan struct{}
	opts           Options
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	messageHandler MessageHandler
	log            *slog.Logger
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(opts Options, log *slog.Logger) *Manager {
	return &Manager{
		rooms:          make(map[string]map[string]*Client),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		done:           make(chan struct{}),
		opts:           opts,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		maxMessageSize: opts.MaxMessageSize,
		log:            log.With(slog.String("component", "hub")),
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) newLimiter() *rate.Limiter {
	if m.opts.MessagesPerSecond <= 0 {
		return nil
	}
	burst := m.opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(m.opts.MessagesPerSecond), burst)
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)

		case <-m.done:
			m.closeAll()
			return
		}
	}
}

// Join hands client to the Run loop. It reports false once the manager is
// stopped.
func (m *Manager) Join(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

// Stop ends Run and closes every connection's send queue.
func (m *Manager) Stop() {
	close(m.done)
}

func (m *Manager) registerClient(client *Client) bool {
	m.roomsMutex.Lock()
	defer m.roomsMutex.Unlock()

	room := m.rooms[client.SpaceID]
	if room == nil {
		room = make(map[string]*Client)
		m.rooms[client.SpaceID] = room
	}

	if old, ok := room[client.ID]; ok {
		// same session reconnected; the newer connection replaces the old one
		close(old.Send)
		delete(room, client.ID)
	}

	if m.opts.MaxConnPerSpace > 0 && len(room) >= m.opts.MaxConnPerSpace {
		m.log.Warn("max connections reached for space", slog.String("space_id", client.SpaceID))
		close(client.Send)
		return false
	}

	room[client.ID] = client

	m.log.Info("session joined",
		slog.String("session_id", client.ID),
		slog.String("space_id", client.SpaceID),
		slog.String("mode", string(client.Mode)))
	return true
}

func (m *Manager) unregisterClient(client *Client) {
	if !m.removeClient(client) {
		return
	}

	m.log.Info("session left", slog.String("session_id", client.ID), slog.String("space_id", client.SpaceID))
	m.announceLeft(client)
}

// announceLeft tells the rest of the room that client is gone.
func (m *Manager) announceLeft(client *Client) {
	msg, err := NewMessage(TypeSessionLeft, &SessionLeftPayload{SessionID: client.ID})
	if err != nil {
		return
	}
	msg.SessionID = client.ID
	m.BroadcastToSpace(client.SpaceID, msg, client.ID)
}

// removeClient drops client from its room if it is still the registered
// connection for its session, and closes its send queue.
func (m *Manager) removeClient(client *Client) bool {
	m.roomsMutex.Lock()
	defer m.roomsMutex.Unlock()

	room := m.rooms[client.SpaceID]
	if current, ok := room[client.ID]; !ok || current != client {
		return false
	}

	delete(room, client.ID)
	if len(room) == 0 {
		delete(m.rooms, client.SpaceID)
	}
	close(client.Send)
	return true
}

func (m *Manager) closeAll() {
	m.roomsMutex.Lock()
	defer m.roomsMutex.Unlock()

	for spaceID, room := range m.rooms {
		for _, c := range room {
			close(c.Send)
		}
		delete(m.rooms, spaceID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.log.Debug("error unmarshaling message", slog.String("session_id", clientMsg.Client.ID), slog.String("error", err.Error()))
		m.SendError(clientMsg.Client, "malformed message")
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.log.Debug("error handling message",
				slog.String("session_id", clientMsg.Client.ID),
				slog.String("type", string(msg.Type)),
				slog.String("error", err.Error()))
			m.SendError(clientMsg.Client, err.Error())
		}
	}
}

// BroadcastToSpace delivers message to every session of spaceID except
// excludeSessionID. Sessions whose send queue is full are disconnected and
// announced as left.
func (m *Manager) BroadcastToSpace(spaceID string, message *Message, excludeSessionID string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client

	m.roomsMutex.RLock()
	for sessionID, client := range m.rooms[spaceID] {
		if sessionID == excludeSessionID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.roomsMutex.RUnlock()

	for _, client := range slow {
		m.log.Warn("send buffer full, closing connection", slog.String("session_id", client.ID))
		if m.removeClient(client) {
			m.announceLeft(client)
		}
	}

	return nil
}

// SendToClient queues message for a single connection, dropping it when the
// queue is full.
func (m *Manager) SendToClient(client *Client, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.roomsMutex.RLock()
	defer m.roomsMutex.RUnlock()

	if current, ok := m.rooms[client.SpaceID][client.ID]; !ok || current != client {
		return nil
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.log.Warn("send buffer full", slog.String("session_id", client.ID))
	}

	return nil
}

func (m *Manager) SendError(client *Client, text string) {
	msg, err := NewMessage(TypeError, &ErrorPayload{Message: text})
	if err != nil {
		return
	}
	m.SendToClient(client, msg)
}

func (m *Manager) SpaceConnections(spaceID string) int {
	m.roomsMutex.RLock()
	defer m.roomsMutex.RUnlock()

	return len(m.rooms[spaceID])
}

// Sessions lists the session ids currently connected to spaceID.
func (m *Manager) Sessions(spaceID string) []string {
	m.roomsMutex.RLock()
	defer m.roomsMutex.RUnlock()

	ids := make([]string, 0, len(m.rooms[spaceID]))
	for id := range m.rooms[spaceID] {
		ids = append(ids, id)
	}
	return ids
}
