package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server events.
const (
	SubscribeNotifications   Name = "subscribe:notifications"
	UnsubscribeNotifications Name = "unsubscribe:notifications"
	Ping                     Name = "ping"
	NotificationRead         Name = "notification:read"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event Name  `json:"event"`
	Data  Event `json:"data"`
}

// Encode wraps an event into its wire frame.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(outbound{Event: e.EventName(), Data: e})
}

// Decode parses an inbound frame. Data is left raw for the handler of the named event.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return env, nil
}

type PingRequest struct {
	SentAt int64 `json:"sentAt"`
}

type NotificationReadRequest struct {
	NotificationID string `json:"notificationId"`
}

// Bind decodes the envelope data into v. A missing data field leaves v untouched.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedFrame, e.Event, err)
	}
	return nil
}
