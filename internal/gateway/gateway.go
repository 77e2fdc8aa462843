package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/metrics"
	"helpdesk-realtime-api/internal/presence"
	"helpdesk-realtime-api/internal/realtime"
	"helpdesk-realtime-api/internal/rooms"

	"go.uber.org/zap"
)

// Rooms is the membership side of the hub.
type Rooms interface {
	Join(client realtime.Client, rs ...rooms.Room)
	LeaveAll(client realtime.Client)
}

// Broadcaster is the part of the broadcast service the gateway emits through.
type Broadcaster interface {
	ToUser(userID int64, e events.Event) error
	ToEveryone(e events.Event) error
}

// Deps wires a Gateway.
type Deps struct {
	Verifier    auth.Verifier
	Registry    *presence.Registry
	Sampler     *metrics.Sampler
	Rooms       Rooms
	Broadcaster Broadcaster
	Mirror      presence.Mirror
	// AuthTimeout bounds a single verifier call.
	AuthTimeout time.Duration
	Log         *zap.Logger
}

// presenceStripes is the number of locks principals are hashed onto.
const presenceStripes = 64

// Gateway authenticates connections, keeps presence and relays client messages.
type Gateway struct {
	verifier    auth.Verifier
	registry    *presence.Registry
	sampler     *metrics.Sampler
	rooms       Rooms
	broadcast   Broadcaster
	mirror      presence.Mirror
	authTimeout time.Duration
	log         *zap.Logger
	now         func() time.Time

	// presenceMu orders a principal's registry transition together with the
	// mirror update and event announcing it.
	presenceMu [presenceStripes]sync.Mutex
}

func New(d Deps) *Gateway {
	mirror := d.Mirror
	if mirror == nil {
		mirror = presence.NopMirror{}
	}
	return &Gateway{
		verifier:    d.Verifier,
		registry:    d.Registry,
		sampler:     d.Sampler,
		rooms:       d.Rooms,
		broadcast:   d.Broadcaster,
		mirror:      mirror,
		authTimeout: d.AuthTimeout,
		log:         d.Log,
		now:         time.Now,
	}
}

// Serve runs one connection from handshake to close, feeding it the frames
// read off the transport. It returns once the connection is closed.
func (g *Gateway) Serve(ctx context.Context, t Transport, frames <-chan []byte) {
	c, err := g.Connect(ctx, t)
	if err != nil {
		return
	}
	defer g.Disconnect(context.WithoutCancel(ctx), c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Done():
			return
		case raw, ok := <-frames:
			if !ok {
				return
			}
			if err := g.Handle(c, raw); err != nil {
				g.log.Warn("closing connection after message failure",
					zap.String("socket_id", c.ID()),
					zap.Int64("user_id", c.principal.ID),
					zap.Error(err))
				return
			}
		}
	}
}

// Connect authenticates a freshly opened transport and activates it.
// On any error the transport has been closed and nothing was registered.
func (g *Gateway) Connect(ctx context.Context, t Transport) (*Connection, error) {
	c := newConnection(t)
	log := g.log.With(zap.String("socket_id", t.ID()))

	token := t.Credential()
	if token == "" {
		log.Warn("rejecting connection without credential")
		g.abort(c)
		return nil, ErrNoCredential
	}

	c.setState(StateAuthenticating)
	p, err := g.verify(ctx, t, token)

	select {
	case <-t.Done():
		// the client left while we were verifying; registering now would leave a phantom entry
		log.Debug("discarding authentication result for closed connection")
		c.setState(StateClosed)
		return nil, ErrClosedDuringAuth
	default:
	}

	if err != nil || p == nil {
		log.Warn("rejecting connection with invalid credential", zap.Error(err))
		g.abort(c)
		if err == nil {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	g.activate(ctx, c, p)
	log.Info("connection authenticated",
		zap.Int64("user_id", p.ID),
		zap.Int("connections", g.registry.ConnectionCount()))
	return c, nil
}

// verify calls the verifier bounded by the auth timeout and by the transport's lifetime.
func (g *Gateway) verify(ctx context.Context, t Transport, token string) (*auth.Principal, error) {
	vctx, cancel := context.WithTimeout(ctx, g.authTimeout)
	defer cancel()

	go func() {
		select {
		case <-t.Done():
			cancel()
		case <-vctx.Done():
		}
	}()

	return g.verifier.Verify(vctx, token)
}

func (g *Gateway) activate(ctx context.Context, c *Connection, p *auth.Principal) {
	c.principal = p
	c.joinedAt = g.now()

	mu := g.presenceLock(p.ID)
	mu.Lock()
	wentOnline := g.registry.Register(p.ID, c.ID(), presence.ConnectionMetrics{
		Username:    p.DisplayName(),
		Email:       p.Email,
		CompanyID:   p.CompanyID,
		RoleID:      p.RoleID,
		ConnectedAt: c.joinedAt,
	})
	g.rooms.Join(c.transport, rooms.ForPrincipal(p.ID, p.CompanyID, p.RoleID)...)
	c.setState(StateActive)

	if wentOnline {
		if err := g.mirror.Online(ctx, p.ID); err != nil {
			g.log.Warn("presence mirror update failed", zap.Int64("user_id", p.ID), zap.Error(err))
		}
		g.emit(g.broadcast.ToUser(p.ID, &events.UserOnline{UserID: p.ID}))
	}
	mu.Unlock()

	g.emit(g.broadcast.ToEveryone(g.connectionEvent(c, events.Connected)))
}

// Disconnect tears an active connection down. Calling it more than once is harmless.
func (g *Gateway) Disconnect(ctx context.Context, c *Connection) {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		return
	}
	c.transport.Close()
	if prev != StateActive {
		return
	}

	g.rooms.LeaveAll(c.transport)

	mu := g.presenceLock(c.principal.ID)
	mu.Lock()
	userID, wentOffline := g.registry.Unregister(c.ID())
	if wentOffline {
		if err := g.mirror.Offline(ctx, userID); err != nil {
			g.log.Warn("presence mirror update failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		g.emit(g.broadcast.ToUser(userID, &events.UserOffline{UserID: userID}))
	}
	mu.Unlock()
	g.emit(g.broadcast.ToEveryone(g.connectionEvent(c, events.Disconnected)))

	g.log.Info("connection closed",
		zap.String("socket_id", c.ID()),
		zap.Int64("user_id", userID),
		zap.Bool("went_offline", wentOffline))
}

func (g *Gateway) presenceLock(principalID int64) *sync.Mutex {
	i := principalID % presenceStripes
	if i < 0 {
		i = -i
	}
	return &g.presenceMu[i]
}

func (g *Gateway) abort(c *Connection) {
	c.setState(StateClosed)
	c.transport.Close()
}

func (g *Gateway) connectionEvent(c *Connection, kind events.ConnectionEventType) *events.ConnectionEvent {
	return &events.ConnectionEvent{
		UserID:    c.principal.ID,
		Username:  c.principal.DisplayName(),
		Email:     c.principal.Email,
		SocketID:  c.ID(),
		EventType: kind,
	}
}

// emit logs a failed presence broadcast; delivery is best effort.
func (g *Gateway) emit(err error) {
	if err != nil {
		g.log.Warn("presence broadcast failed", zap.Error(err))
	}
}

// Handle processes one inbound frame of an active connection.
func (g *Gateway) Handle(c *Connection, raw []byte) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	env, err := events.Decode(raw)
	if err != nil {
		return err
	}

	switch env.Event {
	case events.SubscribeNotifications:
		return g.reply(c, &events.NotificationsSubscribed{UserID: c.principal.ID})

	case events.UnsubscribeNotifications:
		return g.reply(c, &events.NotificationsUnsubscribed{UserID: c.principal.ID})

	case events.Ping:
		var req events.PingRequest
		if err := env.Bind(&req); err != nil {
			return err
		}
		if req.SentAt <= 0 {
			return fmt.Errorf("%w: ping without sentAt", ErrInvalidPayload)
		}
		now := g.now()
		latency := now.UnixMilli() - req.SentAt
		if latency < 0 {
			// client clock ahead of ours
			latency = 0
		}
		g.sampler.RecordLatency(int(latency))
		g.registry.UpdateLatency(c.ID(), int(latency))
		return g.send(c, &events.Pong{Timestamp: now.UnixMilli(), SentAt: req.SentAt})

	case events.NotificationRead:
		var req events.NotificationReadRequest
		if err := env.Bind(&req); err != nil {
			return err
		}
		if req.NotificationID == "" {
			return fmt.Errorf("%w: notification:read without notificationId", ErrInvalidPayload)
		}
		return g.reply(c, &events.NotificationReadAck{NotificationID: req.NotificationID})

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func (g *Gateway) reply(c *Connection, e events.Event) error {
	e.Stamp(g.now())
	return g.send(c, e)
}

func (g *Gateway) send(c *Connection, e events.Event) error {
	msg, err := events.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	if !c.transport.Send(msg) {
		return ErrSendFailed
	}
	return nil
}
