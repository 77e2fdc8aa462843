package gateway

import "errors"

var (
	ErrNoCredential     = errors.New("no credential supplied")
	ErrUnauthenticated  = errors.New("authentication failed")
	ErrClosedDuringAuth = errors.New("connection closed during authentication")
	ErrNotActive        = errors.New("connection is not active")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrSendFailed       = errors.New("send failed")
)
