package gateway

import (
	"sync/atomic"
	"time"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/realtime"
)

// State is the lifecycle stage of a connection. There is no resumption:
// a closed connection never becomes active again.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the network side of a connection.
type Transport interface {
	realtime.Client
	// ID is the opaque transport-assigned connection id.
	ID() string
	// Credential is the bearer token presented at handshake, if any.
	Credential() string
	// Done is closed once the transport is gone.
	Done() <-chan struct{}
}

// Connection is owned by the gateway for its whole lifetime.
type Connection struct {
	transport Transport
	state     atomic.Int32
	principal *auth.Principal
	joinedAt  time.Time
}

func newConnection(t Transport) *Connection {
	c := &Connection{transport: t}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Connection) ID() string { return c.transport.ID() }

func (c *Connection) State() State { return State(c.state.Load()) }

// Principal is nil until the connection becomes active.
func (c *Connection) Principal() *auth.Principal { return c.principal }

func (c *Connection) JoinedAt() time.Time { return c.joinedAt }

func (c *Connection) setState(s State) { c.state.Store(int32(s)) }
