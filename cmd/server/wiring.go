package main

import (
	"helpdesk-realtime-api/internal/broadcast"
	"helpdesk-realtime-api/internal/realtime"

	"go.uber.org/zap"
)

// broadcasters splits delivery by reach. Feature events go through the relay
// (when one is configured) so they reach a user on whichever node holds the
// socket; network stats describe this node only and stay on the local hub.
type broadcasters struct {
	cluster *broadcast.Service
	local   *broadcast.Service
}

func newBroadcasters(hub *realtime.Hub, relay *broadcast.NATSRelay, log *zap.Logger) broadcasters {
	local := broadcast.NewService(hub, log)
	if relay == nil {
		return broadcasters{cluster: local, local: local}
	}
	return broadcasters{cluster: broadcast.NewService(relay, log), local: local}
}
