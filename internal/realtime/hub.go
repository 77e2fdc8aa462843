package realtime

import (
	"sync"

	"helpdesk-realtime-api/internal/rooms"
)

// Client represents a single connection able to receive frames.
// The network conn itself is managed by the ws handler. Send must not block:
// fan-out calls it on the emitting goroutine.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains room membership of live clients and fans frames out to them.
// Rooms exist implicitly while they have members.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[rooms.Room]map[Client]struct{}
	members map[Client]map[rooms.Room]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[rooms.Room]map[Client]struct{}),
		members: make(map[Client]map[rooms.Room]struct{}),
	}
}

// Join adds a client to the global group and to the given rooms.
func (h *Hub) Join(client Client, rs ...rooms.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.members[client]
	if !ok {
		joined = make(map[rooms.Room]struct{})
		h.members[client] = joined
	}
	for _, r := range rs {
		if _, ok := h.rooms[r]; !ok {
			h.rooms[r] = make(map[Client]struct{})
		}
		h.rooms[r][client] = struct{}{}
		joined[r] = struct{}{}
	}
}

// LeaveAll removes a client from every room and from the global group.
func (h *Hub) LeaveAll(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for r := range h.members[client] {
		if clients, ok := h.rooms[r]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, r)
			}
		}
	}
	delete(h.members, client)
}

// Emit sends a frame to every member of a room. An empty room drops the frame.
func (h *Hub) Emit(room rooms.Room, message []byte) error {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	send(targets, message)
	return nil
}

// EmitAll sends a frame to every joined client.
func (h *Hub) EmitAll(message []byte) error {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.members))
	for c := range h.members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	send(targets, message)
	return nil
}

func send(targets []Client, message []byte) {
	for _, c := range targets {
		// a failed write is cleaned up by the client's own handler on its next read
		_ = c.Send(message)
	}
}

// Members returns the number of clients in a room.
func (h *Hub) Members(room rooms.Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Size returns the number of joined clients.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}
