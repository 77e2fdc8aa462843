package broadcast

import (
	"strings"
	"time"

	"helpdesk-realtime-api/internal/rooms"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSRelay fans frames out through NATS so every instance delivers them to
// its own connections. Frames reach local clients only via the subscription,
// except when publishing fails and the relay falls back to local delivery.
type NATSRelay struct {
	pub    publisher
	local  Dispatcher
	prefix string
	log    *zap.Logger
	sub    *nats.Subscription
}

func NewNATSRelay(pub publisher, local Dispatcher, prefix string, log *zap.Logger) *NATSRelay {
	return &NATSRelay{pub: pub, local: local, prefix: prefix, log: log}
}

// ConnectNATS dials the server with reconnects enabled forever.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", url)
	}
	return nc, nil
}

// Subscribe starts delivering relayed frames into the local dispatcher.
func (r *NATSRelay) Subscribe(nc *nats.Conn) error {
	sub, err := nc.Subscribe(r.prefix+".>", func(m *nats.Msg) {
		r.deliver(m.Subject, m.Data)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe relay subjects")
	}
	r.sub = sub
	return nil
}

func (r *NATSRelay) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

func (r *NATSRelay) Emit(room rooms.Room, message []byte) error {
	if err := r.pub.Publish(r.roomSubject(room), message); err != nil {
		r.log.Warn("nats publish failed, delivering locally", zap.String("room", string(room)), zap.Error(err))
		return r.local.Emit(room, message)
	}
	return nil
}

func (r *NATSRelay) EmitAll(message []byte) error {
	if err := r.pub.Publish(r.prefix+".all", message); err != nil {
		r.log.Warn("nats publish failed, delivering locally", zap.Error(err))
		return r.local.EmitAll(message)
	}
	return nil
}

// roomSubject maps "company:7" to "<prefix>.room.company.7".
func (r *NATSRelay) roomSubject(room rooms.Room) string {
	return r.prefix + ".room." + strings.Replace(string(room), ":", ".", 1)
}

func (r *NATSRelay) deliver(subject string, data []byte) {
	rest, ok := strings.CutPrefix(subject, r.prefix+".")
	if !ok {
		return
	}
	if rest == "all" {
		_ = r.local.EmitAll(data)
		return
	}
	target, ok := strings.CutPrefix(rest, "room.")
	if !ok {
		r.log.Debug("ignoring relay subject", zap.String("subject", subject))
		return
	}
	room := rooms.Room(strings.Replace(target, ".", ":", 1))
	if _, _, err := rooms.Parse(room); err != nil {
		r.log.Warn("dropping frame for malformed room", zap.String("subject", subject), zap.Error(err))
		return
	}
	_ = r.local.Emit(room, data)
}
