package delivery

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kioko/matchpulse/pkg/logger"
)

// Websocket transport constants.
const (
	defaultWriteTimeout   = 10 * time.Second
	defaultReadLimitBytes = 4096
)

// command is what clients send over the socket.
type command struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id,omitempty"`
}

// Client actions.
const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionPing        = "ping"
)

// wsConn adapts a gorilla connection to the registry's Conn. Writes are
// serialized; gorilla allows at most one concurrent writer.
type wsConn struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// Send delivers one text frame to the client.
func (c *wsConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down.
func (c *wsConn) Close() error {
	return c.ws.Close()
}

// Handler upgrades HTTP requests to websocket connections and speaks the
// subscribe protocol with clients.
type Handler struct {
	registry     *Registry
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          logger.Logger
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The delivery surface is read-only; any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: defaultWriteTimeout,
		log:          logger.Named("delivery"),
	}
}

// ServeHTTP upgrades the request and serves the connection until the client
// goes away or its commands stop parsing.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}
	ws.SetReadLimit(defaultReadLimitBytes)

	connID := uuid.NewString()
	conn := &wsConn{ws: ws, writeTimeout: h.writeTimeout}
	h.registry.Register(r.Context(), connID, conn)

	h.reply(r.Context(), conn, map[string]string{"type": "connected", "connection_id": connID})

	// Optional ?match_id= subscribes immediately.
	if matchID := r.URL.Query().Get("match_id"); matchID != "" {
		_ = h.registry.Subscribe(r.Context(), connID, matchID)
	}

	h.readLoop(r.Context(), connID, conn)
}

func (h *Handler) readLoop(ctx context.Context, connID string, conn *wsConn) {
	defer h.registry.Deregister(ctx, connID)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(ctx, conn, map[string]string{"type": "error", "error": "malformed command"})
			continue
		}

		switch cmd.Action {
		case actionSubscribe:
			if err := h.registry.Subscribe(ctx, connID, cmd.MatchID); err != nil {
				return
			}
			h.reply(ctx, conn, map[string]string{"action": "subscribed", "match_id": cmd.MatchID, "timestamp": stamp()})
		case actionUnsubscribe:
			if err := h.registry.Unsubscribe(ctx, connID, cmd.MatchID); err != nil {
				return
			}
			h.reply(ctx, conn, map[string]string{"action": "unsubscribed", "match_id": cmd.MatchID, "timestamp": stamp()})
		case actionPing:
			h.registry.Touch(connID)
			h.reply(ctx, conn, map[string]string{"action": "pong", "timestamp": stamp()})
		default:
			h.reply(ctx, conn, map[string]string{"type": "error", "error": "unknown action"})
		}
	}
}

// stamp is the timestamp carried on protocol replies.
func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (h *Handler) reply(ctx context.Context, conn *wsConn, payload map[string]string) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := conn.Send(ctx, data); err != nil {
		h.log.Debug(ctx, "reply failed", logger.Error(err))
	}
}
