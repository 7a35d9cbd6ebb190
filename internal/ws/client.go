package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/paraglide/internal/dashboard"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var (
	ErrClientBufferFull = errors.New("client send buffer is full")
	errBadMessage       = errors.New("bad message")
)

const (
	MessageBookings = "bookings"
	MessageToast    = "toast"
	MessageError    = "error"
)

// outbound is a server push; Data is a dashboard.View or dashboard.Toast.
type outbound struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// inbound is an action sent by the browser.
type inbound struct {
	Action  string `json:"action"`
	ID      string `json:"id,omitempty"`
	PilotID string `json:"pilot_id,omitempty"`
	Tab     string `json:"tab,omitempty"`
	Search  string `json:"search,omitempty"`
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session Session
	logger  *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) Toast(t dashboard.Toast) {
	c.enqueue(outbound{Type: MessageToast, Data: t})
}

func (c *Client) Render(v dashboard.View) {
	c.enqueue(outbound{Type: MessageBookings, Data: v})
}

func (c *Client) enqueue(msg outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("dropping websocket message", zap.String("type", msg.Type), zap.Error(ErrClientBufferFull))
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.session.Close()
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := c.session.Open(ctx); err != nil {
		c.logger.Warn("dashboard open failed", zap.Error(err))
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(outbound{Type: MessageError, Error: "malformed message"})
			continue
		}
		if err := handleAction(ctx, c.session, msg); err != nil {
			if errors.Is(err, errBadMessage) {
				c.enqueue(outbound{Type: MessageError, Error: err.Error()})
				continue
			}
			// Already shown to the user as a toast.
			c.logger.Debug("action failed", zap.String("action", msg.Action), zap.String("booking_id", msg.ID), zap.Error(err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func handleAction(ctx context.Context, s Session, msg inbound) error {
	switch msg.Action {
	case "refresh":
		return s.Refresh(ctx)
	case "view":
		tab, err := dashboard.ParseTab(msg.Tab)
		if err != nil {
			return fmt.Errorf("%w: %v", errBadMessage, err)
		}
		s.SetFilter(tab, msg.Search)
		return nil
	}

	if msg.ID == "" {
		return fmt.Errorf("%w: %q requires id", errBadMessage, msg.Action)
	}
	switch msg.Action {
	case "confirm":
		return s.Confirm(ctx, msg.ID)
	case "cancel":
		return s.Cancel(ctx, msg.ID)
	case "complete":
		return s.Complete(ctx, msg.ID)
	case "seen":
		return s.MarkSeen(ctx, msg.ID)
	case "assign":
		if msg.PilotID == "" {
			return fmt.Errorf("%w: assign requires pilot_id", errBadMessage)
		}
		return s.AssignPilot(ctx, msg.ID, msg.PilotID)
	}
	return fmt.Errorf("%w: unknown action %q", errBadMessage, msg.Action)
}

var _ dashboard.Sink = (*Client)(nil)
