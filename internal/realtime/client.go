package realtime

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/micasa-app/micasa/internal/auth"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single authenticated WebSocket connection.
type Client struct {
	id        string
	hub       *Hub
	conn      *ws.Conn
	principal auth.Principal
	household string // tenant key after a successful join, guarded by hub.mu
	send      chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, principal auth.Principal) *Client {
	return &Client{
		id:        uuid.NewString(),
		hub:       hub,
		conn:      conn,
		principal: principal,
		send:      make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection id. Clients echo it back on mutation
// requests so their own writes are not broadcast back to them.
func (c *Client) ID() string {
	return c.id
}

// Run registers the client, starts the write pump, and runs the read
// pump. It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.sendFrame(EventConnected, map[string]string{"connectionId": c.id})

	go c.writePump(ctx)
	c.readPump(ctx)
}

type joinRequest struct {
	HouseholdID string `json:"householdId"`
}

// readPump reads incoming frames until the connection closes. The only
// client-initiated event is join-household; everything else is ignored.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Event == EventJoinHousehold {
			var req joinRequest
			if err := json.Unmarshal(frame.Data, &req); err != nil {
				continue
			}
			c.handleJoin(req.HouseholdID)
		}
	}
}

// handleJoin is the channel authorization gate. It recomputes the
// tenant key from this connection's principal and requires an exact
// match with the requested key, on every join attempt rather than only
// the first. A rejected connection stays open, receives a single error
// frame, and is never added to the membership set.
func (c *Client) handleJoin(requested string) {
	resolved := c.principal.HouseholdKey()
	if requested != resolved {
		c.hub.logger.Warn("unauthorized household join",
			"connection", c.id,
			"user", c.principal.UserID,
			"requested", requested,
		)
		c.sendFrame(EventError, map[string]string{"message": "Unauthorized household access"})
		return
	}

	c.hub.join(c, resolved)
	c.hub.logger.Debug("joined household channel", "connection", c.id, "household", resolved)
}

// sendFrame queues a frame without blocking; dropped if the buffer is full.
func (c *Client) sendFrame(eventName string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Frame{Event: eventName, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// writePump drains the send channel and writes frames to the
// WebSocket. It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel; connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
