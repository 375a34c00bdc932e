// Package transport abstracts a duplex, framed text channel (C7). Any
// transport providing ordered, reliable delivery within one connection
// satisfies the contract: connect/accept, send, receive (as events),
// close. The dispatcher and the client reliable sender are both written
// against this interface, not against gorilla/websocket directly, so a
// Pipe-backed fake can stand in for tests.
package transport

import "errors"

// ErrNotConnected is returned by a Sender's send callback before the first
// transport has ever been bound (client.New's placeholder sender).
var ErrNotConnected = errors.New("transport: not connected")

// EventKind classifies what happened on a Transport.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventClose
	EventError
)

// Event is a single transport-level occurrence delivered on the channel
// returned by Transport.Events.
type Event struct {
	Kind EventKind
	Data []byte // populated for EventMessage
	Err  error  // populated for EventError
}

// Transport is a duplex, framed text channel: onOpen/onMessage/onClose/
// onError surface as a stream of Events, and Send/Close are the two
// operations a caller performs on it (spec §4.7).
type Transport interface {
	// Send transmits one frame. It does not block on a slow peer for
	// longer than the underlying transport's own write semantics allow.
	Send(frame []byte) error
	// Close terminates the transport. Idempotent.
	Close() error
	// Events yields transport occurrences; a close is reported as a final
	// EventClose. The channel itself is never closed.
	Events() <-chan Event
	// IsOpen reports whether Send is currently expected to succeed.
	IsOpen() bool
}
