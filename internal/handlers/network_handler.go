package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"helpdesk-realtime-api/internal/metrics"
	"helpdesk-realtime-api/internal/presence"

	"github.com/gin-gonic/gin"
)

// NetworkHealth is the data of GET /network/health.
type NetworkHealth struct {
	Status            metrics.Health `json:"status"`
	AverageLatency    int            `json:"averageLatency"`
	PeakLatency       int            `json:"peakLatency"`
	ActiveConnections int            `json:"activeConnections"`
	ConnectedUsers    int            `json:"connectedUsers"`
	Timestamp         time.Time      `json:"timestamp"`
}

// NetworkConnections is the data of GET /network/connections.
type NetworkConnections struct {
	Connections []presence.ConnectionMetrics `json:"connections"`
	Total       int                          `json:"total"`
}

// UserPresence is the data of GET /network/presence/:userId.
// Cluster is omitted when the service runs without a shared presence store.
type UserPresence struct {
	UserID      int64 `json:"userId"`
	Online      bool  `json:"online"`
	Connections int   `json:"connections"`
	Cluster     *bool `json:"cluster,omitempty"`
}

// PresenceLookup answers whether a user is online on any node.
type PresenceLookup interface {
	Lookup(ctx context.Context, userID int64) (bool, error)
}

// NetworkHandler serves read-only views of presence and latency.
type NetworkHandler struct {
	registry *presence.Registry
	sampler  *metrics.Sampler
	cluster  PresenceLookup
	now      func() time.Time
}

// NewNetworkHandler builds the handler; cluster may be nil in single-instance mode.
func NewNetworkHandler(registry *presence.Registry, sampler *metrics.Sampler, cluster PresenceLookup) *NetworkHandler {
	return &NetworkHandler{registry: registry, sampler: sampler, cluster: cluster, now: time.Now}
}

// GetStats handles GET /network/stats
func (h *NetworkHandler) GetStats(c *gin.Context) {
	snap := h.sampler.Snapshot(h.registry.ConnectionCount(), h.registry.UserCount(), h.now())
	respond(c, http.StatusOK, "Network statistics retrieved successfully", snap)
}

// GetHealth handles GET /network/health
func (h *NetworkHandler) GetHealth(c *gin.Context) {
	avg := h.sampler.AverageLatency()
	conns := h.registry.ConnectionCount()
	respond(c, http.StatusOK, "Network health retrieved successfully", NetworkHealth{
		Status:            metrics.OverallHealth(avg, conns),
		AverageLatency:    avg,
		PeakLatency:       h.sampler.PeakLatency(),
		ActiveConnections: conns,
		ConnectedUsers:    h.registry.UserCount(),
		Timestamp:         h.now(),
	})
}

// GetConnections handles GET /network/connections
func (h *NetworkHandler) GetConnections(c *gin.Context) {
	list := h.registry.ListConnections()
	if list == nil {
		list = []presence.ConnectionMetrics{}
	}
	respond(c, http.StatusOK, "Active connections retrieved successfully", NetworkConnections{
		Connections: list,
		Total:       len(list),
	})
}

// GetUserPresence handles GET /network/presence/:userId
func (h *NetworkHandler) GetUserPresence(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		respond(c, http.StatusBadRequest, "Invalid user id", nil)
		return
	}

	data := UserPresence{
		UserID: userID,
		Online: h.registry.IsOnline(userID),
	}
	for _, conn := range h.registry.ListConnections() {
		if conn.UserID == userID {
			data.Connections++
		}
	}

	if h.cluster != nil {
		online, err := h.cluster.Lookup(c.Request.Context(), userID)
		if err != nil {
			respond(c, http.StatusServiceUnavailable, "Shared presence store unavailable", nil)
			return
		}
		online = online || data.Online
		data.Cluster = &online
	}

	respond(c, http.StatusOK, "User presence retrieved successfully", data)
}
