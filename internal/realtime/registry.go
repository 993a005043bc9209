package realtime

import (
	"sort"
	"sync"
)

// Registry tracks which users hold at least one open connection.
// A user with no remaining connections is removed entirely.
type Registry struct {
	mu    sync.Mutex
	users map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]struct{})}
}

// Add records connID for userID and reports whether it is the user's first connection.
func (r *Registry) Add(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.users[userID] = conns
	}
	conns[connID] = struct{}{}
	return !ok
}

// Remove drops connID and reports whether it was the user's last connection.
func (r *Registry) Remove(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok
}

func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// OnlineUsers returns the ids of connected users in sorted order.
func (r *Registry) OnlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Connections(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]string, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		conns = append(conns, id)
	}
	sort.Strings(conns)
	return conns
}
