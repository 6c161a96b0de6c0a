// Package realtime maintains the per-household WebSocket channels.
// Membership is in-memory and per-connection; it is never persisted
// and never shared across processes.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Frame is the wire envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Protocol event names that are not mutation event types.
const (
	EventJoinHousehold = "join-household"
	EventConnected     = "connected"
	EventError         = "error"
)

// Hub tracks connected clients and their household channel membership.
// It is the only mutable shared structure in the fan-out path: joins
// and disconnects write, broadcasts read.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // by connection id
	rooms   map[string]map[*Client]struct{} // by tenant key
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds an authenticated connection to the hub. The connection
// belongs to no household channel until a successful join.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// Unregister removes a client from the hub and any channel it joined,
// and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	if c.household != "" {
		if room, ok := h.rooms[c.household]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.household)
			}
		}
	}
	close(c.send)
}

// join adds a client to the membership set for the given tenant key.
// Authorization has already happened; this only mutates membership.
func (h *Hub) join(c *Client, householdKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		// Connection closed between the gate check and the join.
		return
	}
	room, ok := h.rooms[householdKey]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[householdKey] = room
	}
	room[c] = struct{}{}
	c.household = householdKey
}

// Broadcast sends an event to every connection joined to the tenant's
// channel, excluding the originating connection when its id is known.
// Sends never block; a client with a full buffer misses the message.
func (h *Hub) Broadcast(householdKey, originConnID, eventName string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("marshal broadcast body", "error", err)
		return
	}
	frame, err := json.Marshal(Frame{Event: eventName, Data: data})
	if err != nil {
		h.logger.Error("marshal broadcast frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[householdKey] {
		if originConnID != "" && c.id == originConnID {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Client buffer full, drop message to avoid blocking
		}
	}
}

// MemberCount returns the number of connections joined to a channel.
func (h *Hub) MemberCount(householdKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[householdKey])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
