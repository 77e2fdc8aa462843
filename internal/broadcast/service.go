package broadcast

import (
	"errors"
	"fmt"
	"time"

	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/rooms"

	"go.uber.org/zap"
)

// Dispatcher moves encoded frames to the connections of a room.
type Dispatcher interface {
	Emit(room rooms.Room, message []byte) error
	EmitAll(message []byte) error
}

var ErrNoAssignee = errors.New("ticket has no assignee")

// Service is the delivery API used by application features. Delivery is
// at-most-once: frames for rooms without members are dropped.
type Service struct {
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewService(dispatcher Dispatcher, log *zap.Logger) *Service {
	return &Service{dispatcher: dispatcher, log: log, now: time.Now}
}

func (s *Service) ToUser(userID int64, e events.Event) error {
	return s.deliver(rooms.UserRoom(userID), e)
}

func (s *Service) ToCompany(companyID int64, e events.Event) error {
	return s.deliver(rooms.CompanyRoom(companyID), e)
}

func (s *Service) ToRole(roleID int64, e events.Event) error {
	return s.deliver(rooms.RoleRoom(roleID), e)
}

func (s *Service) ToEveryone(e events.Event) error {
	return s.deliver("", e)
}

// deliver stamps and encodes e; an empty room means every connection.
func (s *Service) deliver(room rooms.Room, e events.Event) error {
	e.Stamp(s.now())
	msg, err := events.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EventName(), err)
	}

	if room == "" {
		err = s.dispatcher.EmitAll(msg)
	} else {
		err = s.dispatcher.Emit(room, msg)
	}
	if err != nil {
		s.log.Warn("event dispatch failed",
			zap.String("event", string(e.EventName())),
			zap.String("room", string(room)),
			zap.Error(err))
		return fmt.Errorf("dispatch %s: %w", e.EventName(), err)
	}

	s.log.Debug("event dispatched",
		zap.String("event", string(e.EventName())),
		zap.String("room", string(room)))
	return nil
}

func (s *Service) SendNotification(userID int64, n *events.Notification) error {
	n.UserID = userID
	return s.ToUser(userID, n)
}

func (s *Service) SendDashboardUpdate(companyID int64, u *events.DashboardUpdate) error {
	return s.ToCompany(companyID, u)
}

func (s *Service) NotifyTicketCreated(companyID int64, t events.Ticket) error {
	return s.ToCompany(companyID, &events.TicketCreated{Ticket: t})
}

func (s *Service) NotifyTicketUpdated(companyID int64, t events.Ticket, changes []string) error {
	return s.ToCompany(companyID, &events.TicketUpdated{Ticket: t, Changes: changes})
}

// NotifyTicketAssigned goes to the assignee only.
func (s *Service) NotifyTicketAssigned(t events.Ticket) error {
	if t.AssigneeID == nil {
		return ErrNoAssignee
	}
	return s.ToUser(*t.AssigneeID, &events.TicketAssigned{Ticket: t})
}

func (s *Service) NotifyAssetAssigned(userID int64, a *events.AssetAssigned) error {
	return s.ToUser(userID, a)
}

func (s *Service) BroadcastSystemAlert(severity events.AlertSeverity, title, message string) error {
	return s.ToEveryone(&events.SystemAlert{Severity: severity, Title: title, Message: message})
}

// NotifyApprovalPending reaches everyone holding the approver role.
func (s *Service) NotifyApprovalPending(approverRoleID int64, a events.Approval) error {
	return s.ToRole(approverRoleID, &events.ApprovalPending{Approval: a})
}

func (s *Service) NotifyApprovalApproved(a events.Approval) error {
	return s.ToUser(a.RequestedBy, &events.ApprovalApproved{Approval: a})
}

func (s *Service) NotifyApprovalRejected(a events.Approval) error {
	return s.ToUser(a.RequestedBy, &events.ApprovalRejected{Approval: a})
}
