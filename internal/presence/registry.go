package presence

import (
	"sort"
	"sync"
	"time"
)

// ConnectionMetrics is the flat record kept for every live connection.
type ConnectionMetrics struct {
	ConnectionID  string    `json:"socketId"`
	UserID        int64     `json:"userId"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	CompanyID     *int64    `json:"companyId,omitempty"`
	RoleID        *int64    `json:"roleId,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastLatencyMs int       `json:"lastLatencyMs"`
}

// Registry tracks which principals currently hold authenticated connections.
// A principal key exists only while it owns at least one connection.
type Registry struct {
	mu          sync.RWMutex
	byPrincipal map[int64]map[string]struct{}
	byConn      map[string]ConnectionMetrics
}

func NewRegistry() *Registry {
	return &Registry{
		byPrincipal: make(map[int64]map[string]struct{}),
		byConn:      make(map[string]ConnectionMetrics),
	}
}

// Register adds connectionID to the principal's set and stores its metrics.
// Registering a known connection again only overwrites the metrics.
// It reports whether this made the principal go from offline to online.
func (r *Registry) Register(principalID int64, connectionID string, metrics ConnectionMetrics) (wentOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connectionID]; ok && prev.UserID != principalID {
		r.detachLocked(prev.UserID, connectionID)
	}

	metrics.ConnectionID = connectionID
	metrics.UserID = principalID
	r.byConn[connectionID] = metrics

	conns, ok := r.byPrincipal[principalID]
	if !ok {
		conns = make(map[string]struct{})
		r.byPrincipal[principalID] = conns
	}
	conns[connectionID] = struct{}{}
	return !ok
}

// Unregister removes a connection. Unknown ids are ignored.
// wentOffline is true when the owning principal has no connections left.
func (r *Registry) Unregister(connectionID string) (principalID int64, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byConn[connectionID]
	if !ok {
		return 0, false
	}
	delete(r.byConn, connectionID)
	return m.UserID, r.detachLocked(m.UserID, connectionID)
}

func (r *Registry) detachLocked(principalID int64, connectionID string) bool {
	conns, ok := r.byPrincipal[principalID]
	if !ok {
		return false
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(r.byPrincipal, principalID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(principalID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPrincipal[principalID]) > 0
}

// UpdateLatency records the last round trip of a connection.
// The connection may already be gone when the pong arrives; that is not an error.
func (r *Registry) UpdateLatency(connectionID string, latencyMs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byConn[connectionID]; ok {
		m.LastLatencyMs = latencyMs
		r.byConn[connectionID] = m
	}
}

// ListConnections returns a snapshot ordered by connection time.
func (r *Registry) ListConnections() []ConnectionMetrics {
	r.mu.RLock()
	out := make([]ConnectionMetrics, 0, len(r.byConn))
	for _, m := range r.byConn {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectionID < out[j].ConnectionID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// OnlineUsers returns the ids of every principal with a live connection.
func (r *Registry) OnlineUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.byPrincipal))
	for id := range r.byPrincipal {
		out = append(out, id)
	}
	return out
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// UserCount is the number of distinct online principals.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPrincipal)
}
