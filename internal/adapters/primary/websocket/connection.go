package websocket

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrConnectionClosed is returned by Send once a connection has been closed.
	ErrConnectionClosed = errors.New("websocket: connection closed")

	// ErrSendBufferFull is returned by Send when the outbound buffer cannot take another frame.
	ErrSendBufferFull = errors.New("websocket: send buffer full")

	// ErrUnknownConnection is returned by room operations on an id that is not registered.
	ErrUnknownConnection = errors.New("websocket: unknown connection")
)

// Close codes sent by the server. The 4xxx range is application defined.
const (
	CloseUnauthenticated = 4401
	CloseSuperseded      = 4409
)

// Connection is the registry's handle on one live duplex channel.
// Send must not block on network I/O; Close must be safe to call more than once.
type Connection interface {
	ID() uuid.UUID
	Send(frame []byte) error
	Close(code int, reason string) error
}
