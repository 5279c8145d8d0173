package api

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
)

// SessionRoom is the broadcast group of a collaboration session
func SessionRoom(sessionID int64) string {
	return "session_" + strconv.FormatInt(sessionID, 10)
}

// DashboardRoom is the personal broadcast group of a user
func DashboardRoom(userID int64) string {
	return "dashboard_" + strconv.FormatInt(userID, 10)
}

// Hub maintains active connections and their room memberships
type Hub struct {
	// Registered connections
	clients map[*Client]struct{}
	// Room name to members
	rooms map[string]map[*Client]struct{}
	// Mutex for thread safety
	mu sync.RWMutex

	metrics *telemetry.GatewayMetrics
}

// NewHub creates a new hub; metrics may be nil
func NewHub(metrics *telemetry.GatewayMetrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		metrics: metrics,
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a connection and every room membership it holds
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
	for name, members := range h.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, name)
			}
		}
	}
}

// Join adds a connection to a room
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave removes a connection from a room
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends an event to every member of a room and returns the number
// of connections it was queued for
func (h *Hub) Broadcast(room, event string, payload any) int {
	return h.BroadcastExcept(room, nil, event, payload)
}

// BroadcastExcept sends an event to every member of a room except one
func (h *Hub) BroadcastExcept(room string, except *Client, event string, payload any) int {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		slogging.Get().Error("Failed to marshal %s broadcast for room %s: %v", event, room, err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			sent++
		}
	}

	slogging.Get().Debug("Broadcast %s to room %s recipients=%d", event, room, sent)
	if h.metrics != nil {
		h.metrics.Broadcast(sent)
	}
	return sent
}

// EvictRoom removes every member from a room and returns them
func (h *Hub) EvictRoom(room string) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	delete(h.rooms, room)

	evicted := make([]*Client, 0, len(members))
	for c := range members {
		evicted = append(evicted, c)
	}
	return evicted
}

// Members returns the sorted connection ids in a room
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		ids = append(ids, c.ID())
	}
	sort.Strings(ids)
	return ids
}

// Clients returns every registered connection
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
