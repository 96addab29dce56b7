package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/logger"
	"polyform-sync/internal/room"
	hub "polyform-sync/internal/websocket"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

// EventError is the hub's reply to a frame it rejected.
const EventError = domain.EventType(hub.TypeError)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("room channel is not connected")
	ErrClosed       = errors.New("room channel is closed")
	ErrSendBuffer   = errors.New("room channel send buffer is full")
)

// WSChannel is a room.Channel over the server's websocket hub. Handlers run
// on the read goroutine in arrival order.
type WSChannel struct {
	url    string
	dialer *websocket.Dialer
	log    *slog.Logger

	mu       sync.RWMutex
	handlers map[domain.EventType][]func(room.Event)

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool
	wg        sync.WaitGroup
	err       error
}

func NewWSChannel(roomURL string, log *slog.Logger) *WSChannel {
	if log == nil {
		log = logger.Discard()
	}
	return &WSChannel{
		url:      roomURL,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:      log.With(slog.String("component", "room_channel")),
		handlers: make(map[domain.EventType][]func(room.Event)),
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *WSChannel) Subscribe(eventType domain.EventType, handler func(room.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], handler)
}

func (c *WSChannel) Connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial room: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial room: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
	return nil
}

// Publish queues one event. It never blocks; a full buffer drops the event.
func (c *WSChannel) Publish(eventType domain.EventType, payload interface{}) error {
	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	msg, err := hub.NewMessage(hub.MessageType(eventType), payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBuffer
	}
}

func (c *WSChannel) Close() error {
	c.closing.Store(true)

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.shutdown(nil)
	c.wg.Wait()
	return nil
}

// Done is closed once the connection has ended for any reason.
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended; nil after a local Close.
func (c *WSChannel) Err() error {
	<-c.done
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *WSChannel) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		conn := c.conn
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			conn.Close()
		}
	})
}

func (c *WSChannel) readPump() {
	defer c.wg.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				c.shutdown(nil)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("room connection lost", logger.Err(err))
			}
			c.shutdown(err)
			return
		}

		var msg hub.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("undecodable frame", logger.Err(err))
			continue
		}
		if msg.Type == hub.TypePong {
			continue
		}
		c.dispatch(room.Event{
			Type:      domain.EventType(msg.Type),
			SessionID: msg.SessionID,
			Payload:   msg.Payload,
		})
	}
}

func (c *WSChannel) dispatch(ev room.Event) {
	c.mu.RLock()
	handlers := c.handlers[ev.Type]
	c.mu.RUnlock()

	if len(handlers) == 0 && ev.Type == EventError {
		var p hub.ErrorPayload
		_ = ev.Decode(&p)
		c.log.Warn("room rejected a frame", slog.String("message", p.Message))
		return
	}
	for _, h := range handlers {
		h(ev)
	}
}

func (c *WSChannel) writePump() {
	defer c.wg.Done()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			return
		}
	}
}
