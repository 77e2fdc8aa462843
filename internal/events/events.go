package events

import (
	"time"
)

// Name identifies an event on the wire.
type Name string

// Server -> client events.
const (
	UserOnlineName                Name = "USER_ONLINE"
	UserOfflineName               Name = "USER_OFFLINE"
	ConnectionEventName           Name = "CONNECTION_EVENT"
	NotificationName              Name = "NOTIFICATION"
	DashboardUpdateName           Name = "DASHBOARD_UPDATE"
	TicketCreatedName             Name = "TICKET_CREATED"
	TicketUpdatedName             Name = "TICKET_UPDATED"
	TicketAssignedName            Name = "TICKET_ASSIGNED"
	AssetAssignedName             Name = "ASSET_ASSIGNED"
	SystemAlertName               Name = "SYSTEM_ALERT"
	ApprovalPendingName           Name = "APPROVAL_PENDING"
	ApprovalApprovedName          Name = "APPROVAL_APPROVED"
	ApprovalRejectedName          Name = "APPROVAL_REJECTED"
	NetworkStatsUpdateName        Name = "NETWORK_STATS_UPDATE"
	NetworkMetricsName            Name = "NETWORK_METRICS"
	PongName                      Name = "pong"
	NotificationsSubscribedName   Name = "subscribed:notifications"
	NotificationsUnsubscribedName Name = "unsubscribed:notifications"
	NotificationReadAckName       Name = "notification:read:ack"
)

// Event is one of the payload variants declared in this package.
type Event interface {
	EventName() Name
	// Stamp sets the dispatch time carried in the payload.
	Stamp(t time.Time)
	sealed()
}

// Meta carries the timestamp every broadcast payload is stamped with.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

func (m *Meta) Stamp(t time.Time) { m.Timestamp = t }
func (*Meta) sealed()             {}

// ConnectionEventType tells whether a CONNECTION_EVENT reports a connect or a disconnect.
type ConnectionEventType string

const (
	Connected    ConnectionEventType = "connected"
	Disconnected ConnectionEventType = "disconnected"
)

type UserOnline struct {
	UserID int64 `json:"userId"`
	Meta
}

func (*UserOnline) EventName() Name { return UserOnlineName }

type UserOffline struct {
	UserID int64 `json:"userId"`
	Meta
}

func (*UserOffline) EventName() Name { return UserOfflineName }

// ConnectionEvent is the global operational signal sent on every connect and disconnect.
type ConnectionEvent struct {
	UserID    int64               `json:"userId"`
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	SocketID  string              `json:"socketId"`
	EventType ConnectionEventType `json:"eventType"`
	Meta
}

func (*ConnectionEvent) EventName() Name { return ConnectionEventName }

type Notification struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"userId"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Category  string         `json:"category,omitempty"`
	Link      string         `json:"link,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
	Meta
}

func (*Notification) EventName() Name { return NotificationName }

// DashboardUpdate tells dashboards which section changed.
type DashboardUpdate struct {
	Section string         `json:"section"`
	Data    map[string]any `json:"data,omitempty"`
	Meta
}

func (*DashboardUpdate) EventName() Name { return DashboardUpdateName }

type Ticket struct {
	TicketID     int64  `json:"ticketId"`
	TicketNumber string `json:"ticketNumber,omitempty"`
	Title        string `json:"title"`
	Status       string `json:"status,omitempty"`
	Priority     string `json:"priority,omitempty"`
	AssigneeID   *int64 `json:"assigneeId,omitempty"`
	ActorID      *int64 `json:"actorId,omitempty"`
}

type TicketCreated struct {
	Ticket
	Meta
}

func (*TicketCreated) EventName() Name { return TicketCreatedName }

type TicketUpdated struct {
	Ticket
	Changes []string `json:"changes,omitempty"`
	Meta
}

func (*TicketUpdated) EventName() Name { return TicketUpdatedName }

type TicketAssigned struct {
	Ticket
	Meta
}

func (*TicketAssigned) EventName() Name { return TicketAssignedName }

type AssetAssigned struct {
	AssetID    int64  `json:"assetId"`
	AssetTag   string `json:"assetTag,omitempty"`
	AssetName  string `json:"assetName"`
	EmployeeID int64  `json:"employeeId"`
	AssignedBy *int64 `json:"assignedBy,omitempty"`
	Meta
}

func (*AssetAssigned) EventName() Name { return AssetAssignedName }

// AlertSeverity grades a SYSTEM_ALERT.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type SystemAlert struct {
	Severity AlertSeverity `json:"severity"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Meta
}

func (*SystemAlert) EventName() Name { return SystemAlertName }

type Approval struct {
	ApprovalID  int64  `json:"approvalId"`
	RequestType string `json:"requestType"`
	RequestID   int64  `json:"requestId"`
	RequestedBy int64  `json:"requestedBy"`
	ApproverID  *int64 `json:"approverId,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

type ApprovalPending struct {
	Approval
	Meta
}

func (*ApprovalPending) EventName() Name { return ApprovalPendingName }

type ApprovalApproved struct {
	Approval
	Meta
}

func (*ApprovalApproved) EventName() Name { return ApprovalApprovedName }

type ApprovalRejected struct {
	Approval
	Meta
}

func (*ApprovalRejected) EventName() Name { return ApprovalRejectedName }

// NetworkStatsUpdate is the periodic aggregate pushed to every connection.
// Throughput and FailedConnections are simulated values.
type NetworkStatsUpdate struct {
	ActiveNodes       int       `json:"activeNodes"`
	ConnectedUsers    int       `json:"connectedUsers"`
	AverageLatency    int       `json:"averageLatency"`
	PeakLatency       int       `json:"peakLatency"`
	Throughput        int       `json:"throughput"`
	FailedConnections int       `json:"failedConnections"`
	HealthScore       int       `json:"healthScore"`
	Status            string    `json:"status"`
	LastUpdated       time.Time `json:"lastUpdated"`
	Meta
}

func (*NetworkStatsUpdate) EventName() Name { return NetworkStatsUpdateName }

type NetworkMetrics struct {
	ActiveConnections int `json:"activeConnections"`
	Latency           int `json:"latency"`
	Throughput        int `json:"throughput"`
	Meta
}

func (*NetworkMetrics) EventName() Name { return NetworkMetricsName }

// Pong answers a client ping. Both times are epoch milliseconds.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
	SentAt    int64 `json:"sentAt"`
}

func (*Pong) EventName() Name     { return PongName }
func (p *Pong) Stamp(t time.Time) { p.Timestamp = t.UnixMilli() }
func (*Pong) sealed()             {}

type NotificationsSubscribed struct {
	UserID int64 `json:"userId"`
	Meta
}

func (*NotificationsSubscribed) EventName() Name { return NotificationsSubscribedName }

type NotificationsUnsubscribed struct {
	UserID int64 `json:"userId"`
	Meta
}

func (*NotificationsUnsubscribed) EventName() Name { return NotificationsUnsubscribedName }

type NotificationReadAck struct {
	NotificationID string `json:"notificationId"`
	Meta
}

func (*NotificationReadAck) EventName() Name { return NotificationReadAckName }
