// Package notify implements the real-time notifications gateway. Clients
// connect over websocket, authenticate with the same credential used by
// the HTTP API, and receive events on per-user channels.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/auth"
	"github.com/taskward/taskward/pkg/observability"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// sendBuffer bounds the per-client outbound queue. A client that
	// cannot drain it in time is disconnected rather than backing up
	// the hub.
	sendBuffer = 16
)

// Event is the frame delivered to connected clients.
type Event struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// UserChannel returns the private channel name for a user.
func UserChannel(userID int64) string {
	return fmt.Sprintf("/users/%d", userID)
}

type client struct {
	conn     *websocket.Conn
	send     chan Event
	channels map[string]struct{}
}

// Hub accepts websocket connections and fans events out to subscribed
// clients. Connections are authenticated before the protocol upgrade;
// an unauthenticated caller never completes the handshake.
type Hub struct {
	resolver *auth.Resolver
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub that authenticates connections with the given
// resolver.
func NewHub(resolver *auth.Resolver, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles a websocket handshake. The token travels in the
// `token` query parameter because the browser websocket API cannot set
// an Authorization header.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := auth.Locate(auth.Handshake{Query: r.URL.Query()})
	if err != nil {
		h.reject(w)
		return
	}

	principal, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed", "error", err)
		h.reject(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, sendBuffer),
		channels: map[string]struct{}{
			UserChannel(principal.ID): {},
		},
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	observability.WebsocketConnections.Inc()

	h.logger.Info("websocket client connected", "user_id", principal.ID)

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) reject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.NewUnauthorizedError())
}

// NotifyUser delivers a message to the user's private channel.
func (h *Hub) NotifyUser(userID int64, message string) {
	h.Broadcast(UserChannel(userID), message)
}

// Broadcast delivers a message to every client subscribed to channel.
func (h *Hub) Broadcast(channel, message string) {
	event := Event{Channel: channel, Message: message}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if _, ok := c.channels[channel]; !ok {
			continue
		}
		select {
		case c.send <- event:
		default:
			// Slow client, cut it loose.
			h.dropLocked(c)
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	observability.WebsocketConnections.Dec()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readLoop discards inbound frames. The gateway is push-only, but the
// read side must keep running for close and pong handling.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}
