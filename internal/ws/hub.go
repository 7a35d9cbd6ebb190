// Package ws serves dashboard sessions over websocket connections. Each
// connection owns one dashboard session: server pushes are rendered views and
// toasts, client messages are actions on bookings.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/Domenick1991/paraglide/internal/dashboard"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("websocket hub is shut down")

// Session is what a connection drives. *dashboard.Dashboard implements it.
type Session interface {
	Open(ctx context.Context) error
	Refresh(ctx context.Context) error
	Confirm(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	AssignPilot(ctx context.Context, id, pilotID string) error
	MarkSeen(ctx context.Context, id string) error
	SetFilter(tab dashboard.Tab, search string)
	Close()
}

// SessionFactory builds the session of a new connection; sink delivers to
// that connection.
type SessionFactory func(sess domain.Session, sink dashboard.Sink) Session

type Hub struct {
	upgrader websocket.Upgrader
	factory  SessionFactory
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub accepts upgrades from allowedOrigins; an empty list or "*" allows
// any origin.
func NewHub(factory SessionFactory, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		factory: factory,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and starts the connection's pumps. On an
// upgrade error the response has already been written.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sess domain.Session) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(h, conn, h.logger.With(zap.String("actor_id", sess.ActorID), zap.String("role", string(sess.Role))))
	c.session = h.factory(sess, c)

	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("websocket client registered", zap.Int("clients", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	h.logger.Debug("websocket client unregistered", zap.Int("clients", n))
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown refuses new connections and closes the open ones. Their read
// pumps then close the sessions.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	h.logger.Info("websocket hub shut down", zap.Int("closed", len(clients)))
}
