package websocket

import (
	"time"

	"polyform-sync/internal/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const sendBufferSize = 256

// Client is one session connected to a space room.
type Client struct {
	ID      string
	SpaceID string
	Mode    domain.ShareMode
	Conn    *websocket.Conn
	Manager *Manager
	Send    chan []byte
	limiter *rate.Limiter
}

func NewClient(id, spaceID string, mode domain.ShareMode, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:      id,
		SpaceID: spaceID,
		Mode:    mode,
		Conn:    conn,
		Manager: manager,
		Send:    make(chan []byte, sendBufferSize),
		limiter: manager.newLimiter(),
	}
}

func (c *Client) CanEdit() bool {
	return c.Mode == domain.ShareModeEdit
}

func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Manager.Unregister <- c:
		case <-c.Manager.done:
		}
		c.Conn.Close()
	}()

	if c.Manager.maxMessageSize > 0 {
		c.Conn.SetReadLimit(c.Manager.maxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.log.Warn("websocket read failed", slog.String("session_id", c.ID), slog.String("error", err.Error()))
			}
			break
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Manager.log.Debug("message dropped by rate limit", slog.String("session_id", c.ID))
			continue
		}

		select {
		case c.Manager.HandleMessage <- &ClientMessage{Client: c, Message: message}:
		case <-c.Manager.done:
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one frame per message so the reader can decode each envelope
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
