package handler

import (
	"fmt"
	"net/http"
	"slices"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/middleware"
	"polyform-sync/internal/service"
	"polyform-sync/internal/websocket"
	"polyform-sync/pkg/jwt"

	ws "github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

type UpgradeOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

type WebSocketHandler struct {
	manager      *websocket.Manager
	ticketSecret string
	upgrader     ws.Upgrader
	log          *slog.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, ticketSecret string, opts UpgradeOptions, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:      manager,
		ticketSecret: ticketSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		log: log.With(slog.String("component", "ws")),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// HandleConnection upgrades a request carrying a room ticket into a session
// of that ticket's space. The session id is the one the ticket was issued
// for, so reconnecting with the same ticket keeps the identity and no other
// ticket can take it over.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := middleware.TicketFromRequest(r)
	if token == "" {
		http.Error(w, "missing room ticket", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.ticketSecret)
	if err != nil {
		h.log.Debug("ticket rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid room ticket", http.StatusUnauthorized)
		return
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		http.Error(w, "room ticket is not bound to a session", http.StatusUnauthorized)
		return
	}
	if q := r.URL.Query().Get("session_id"); q != "" && q != sessionID {
		h.log.Warn("session id does not match ticket",
			slog.String("space_id", claims.SpaceID),
			slog.String("requested", q))
		http.Error(w, "session id does not match room ticket", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", slog.String("error", err.Error()))
		return
	}

	client := websocket.NewClient(sessionID, claims.SpaceID, domain.ParseShareMode(claims.Mode), conn, h.manager)

	if !h.manager.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

type Relayer interface {
	Relay(sender *websocket.Client, msg *websocket.Message) error
}

// WebSocketMessageHandler dispatches frames read by the hub.
type WebSocketMessageHandler struct {
	room Relayer
}

func NewWebSocketMessageHandler(room Relayer) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		room: room,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		return h.handlePing(client)

	case websocket.TypePresenceUpdate, websocket.TypeBlockPatch,
		websocket.TypeTranslationResult, websocket.TypeSourceUpdate:
		return h.room.Relay(client, msg)

	default:
		return fmt.Errorf("%w: %s", service.ErrUnknownEvent, msg.Type)
	}
}

func (h *WebSocketMessageHandler) handlePing(client *websocket.Client) error {
	pongMsg, err := websocket.NewMessage(websocket.TypePong, nil)
	if err != nil {
		return err
	}

	return client.Manager.SendToClient(client, pongMsg)
}
