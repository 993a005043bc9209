package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/metrics"
)

// UserRoom is the personal room joined automatically by every connection of a user.
func UserRoom(userID string) string {
	return "user:" + userID
}

// TaskRoom is joined on explicit subscription.
func TaskRoom(taskID string) string {
	return "task:" + taskID
}

// Hub routes events to connected clients: everyone, a user's personal room,
// or the subscribers of a task.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		now:      time.Now,
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register joins an authenticated client to its personal room and records
// presence. Hub membership and presence change under the same lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.UserID))
	first := h.registry.Add(c.UserID, c.ID)
	c.setState(StateJoined)
	metrics.AddRealtimeConnection()
	h.mu.Unlock()

	h.logger.Debug("realtime client connected", "user_id", c.UserID, "conn_id", c.ID)

	if first {
		h.broadcast(UserJoined{UserID: c.UserID, Timestamp: h.now()}, c)
	}
}

// Unregister removes the client from every room. Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	last := h.registry.Remove(c.UserID, c.ID)
	c.close()
	c.setState(StateDisconnected)
	metrics.RemoveRealtimeConnection()
	h.mu.Unlock()

	h.logger.Debug("realtime client disconnected", "user_id", c.UserID, "conn_id", c.ID)

	if last {
		h.broadcast(UserLeft{UserID: c.UserID, Timestamp: h.now()}, nil)
	}
}

func (h *Hub) Subscribe(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.joinLocked(c, TaskRoom(taskID))
}

func (h *Hub) Unsubscribe(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, TaskRoom(taskID))
}

// Broadcast sends the event to every connected client.
func (h *Hub) Broadcast(e Event) {
	h.broadcast(e, nil)
}

// EmitToUser sends the event to the personal room of userID only.
func (h *Hub) EmitToUser(userID string, e Event) {
	h.emitToRoom(UserRoom(userID), e, nil)
}

// EmitToTask sends the event to the subscribers of taskID, skipping except.
func (h *Hub) EmitToTask(taskID string, e Event, except *Client) {
	h.emitToRoom(TaskRoom(taskID), e, except)
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

func (h *Hub) broadcast(e Event, except *Client) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, e)
}

func (h *Hub) emitToRoom(room string, e Event, except *Client) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for c := range members {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, e)
}

// deliver queues the encoded event on each target. Clients whose queue is
// full are disconnected after the fan-out.
func (h *Hub) deliver(targets []*Client, e Event) {
	if len(targets) == 0 {
		return
	}

	msg, err := Encode(e)
	if err != nil {
		h.logger.Error("failed to encode realtime event", "event", e.Name(), "error", err)
		return
	}

	var slow []*Client
	for _, c := range targets {
		if !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}
	metrics.RecordRealtimeEvent(context.Background(), e.Name())

	for _, c := range slow {
		h.logger.Warn("dropping slow realtime client", "user_id", c.UserID, "conn_id", c.ID)
		h.Unregister(c)
	}
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
