package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/realtime"
	"helpdesk-realtime-api/internal/rooms"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type frame struct {
	room rooms.Room
	all  bool
	body map[string]any
	name string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	frames []frame
	err    error
}

func (d *fakeDispatcher) record(room rooms.Room, all bool, msg []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	d.frames = append(d.frames, frame{room: room, all: all, body: env.Data, name: env.Event})
	return nil
}

func (d *fakeDispatcher) Emit(room rooms.Room, msg []byte) error { return d.record(room, false, msg) }
func (d *fakeDispatcher) EmitAll(msg []byte) error { return d.record("", true, msg) }

func newTestService(t *testing.T, d Dispatcher) *Service {
	s := NewService(d, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestService_ScopesAndTimestamp(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestService(t, d)

	require.NoError(t, s.ToUser(1, &events.UserOnline{UserID: 1}))
	require.NoError(t, s.ToCompany(2, &events.DashboardUpdate{Section: "tickets"}))
	require.NoError(t, s.ToRole(3, &events.SystemAlert{Title: "x"}))
	require.NoError(t, s.ToEveryone(&events.NetworkMetrics{ActiveConnections: 4}))

	require.Len(t, d.frames, 4)
	require.Equal(t, rooms.Room("user:1"), d.frames[0].room)
	require.Equal(t, rooms.Room("company:2"), d.frames[1].room)
	require.Equal(t, rooms.Room("role:3"), d.frames[2].room)
	require.True(t, d.frames[3].all)
	for _, f := range d.frames {
		require.Equal(t, "2025-01-02T03:04:05Z", f.body["timestamp"])
	}
}

func TestService_Helpers(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestService(t, d)
	assignee := int64(8)
	approver := int64(5)

	require.NoError(t, s.SendNotification(4, &events.Notification{ID: "n1", Title: "Hi", Type: "info"}))
	require.NoError(t, s.SendDashboardUpdate(2, &events.DashboardUpdate{Section: "assets"}))
	require.NoError(t, s.NotifyTicketCreated(2, events.Ticket{TicketID: 1, Title: "VPN"}))
	require.NoError(t, s.NotifyTicketUpdated(2, events.Ticket{TicketID: 1}, []string{"status"}))
	require.NoError(t, s.NotifyTicketAssigned(events.Ticket{TicketID: 1, AssigneeID: &assignee}))
	require.NoError(t, s.NotifyAssetAssigned(9, &events.AssetAssigned{AssetID: 3, AssetName: "Laptop", EmployeeID: 9}))
	require.NoError(t, s.BroadcastSystemAlert(events.SeverityCritical, "Outage", "Mail is down"))
	require.NoError(t, s.NotifyApprovalPending(approver, events.Approval{ApprovalID: 1, RequestedBy: 4}))
	require.NoError(t, s.NotifyApprovalApproved(events.Approval{ApprovalID: 1, RequestedBy: 4}))
	require.NoError(t, s.NotifyApprovalRejected(events.Approval{ApprovalID: 2, RequestedBy: 6}))

	want := []struct {
		name string
		room rooms.Room
	}{
		{"NOTIFICATION", "user:4"},
		{"DASHBOARD_UPDATE", "company:2"},
		{"TICKET_CREATED", "company:2"},
		{"TICKET_UPDATED", "company:2"},
		{"TICKET_ASSIGNED", "user:8"},
		{"ASSET_ASSIGNED", "user:9"},
		{"SYSTEM_ALERT", ""},
		{"APPROVAL_PENDING", "role:5"},
		{"APPROVAL_APPROVED", "user:4"},
		{"APPROVAL_REJECTED", "user:6"},
	}
	require.Len(t, d.frames, len(want))
	for i, w := range want {
		require.Equal(t, w.name, d.frames[i].name)
		require.Equal(t, w.room, d.frames[i].room)
	}
	require.EqualValues(t, 4, d.frames[0].body["userId"])
	require.Equal(t, "critical", d.frames[6].body["severity"])
}

func TestService_TicketAssignedWithoutAssignee(t *testing.T) {
	s := newTestService(t, &fakeDispatcher{})
	require.ErrorIs(t, s.NotifyTicketAssigned(events.Ticket{TicketID: 1}), ErrNoAssignee)
}

func TestService_DispatchErrorIsReturned(t *testing.T) {
	boom := errors.New("transport down")
	s := newTestService(t, &fakeDispatcher{err: boom})
	require.ErrorIs(t, s.ToEveryone(&events.NetworkMetrics{}), boom)
}

func TestService_EmptyRoomIsNotAnError(t *testing.T) {
	s := newTestService(t, realtime.NewHub())
	for i := 0; i < 3; i++ {
		require.NoError(t, s.ToUser(12345, &events.UserOffline{UserID: 12345}))
	}
}
