// Package dispatcher implements the protocol dispatcher (C4): the
// handshake, snapshot synthesis, per-message-type handlers, broadcast
// fan-out, and disconnect cleanup described in spec §4.4.
package dispatcher

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fireline-edge/fireline/internal/domain/store"
)

// state is a connection's position in the per-connection handshake state
// machine (spec §4.4).
type state int

const (
	stateAwaitingHello state = iota
	stateJoined
	stateClosed
)

// Dispatcher creates one Session per accepted connection and owns the
// shared state store and logger used by all of them.
type Dispatcher struct {
	Store  *store.Store
	Logger *slog.Logger
	Tracer trace.Tracer
}

// New returns a Dispatcher bound to the given store.
func New(st *store.Store, logger *slog.Logger, tracer trace.Tracer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("fireline/dispatcher")
	}
	return &Dispatcher{Store: st, Logger: logger, Tracer: tracer}
}

// NewSession starts the per-connection state machine for a freshly accepted
// connection. conn's own mailbox/write-pump is already running; Session
// only ever writes to it indirectly, by calling conn.Send with encoded
// outbound frames.
func (d *Dispatcher) NewSession(conn *store.Connection) *Session {
	return &Session{
		d:     d,
		conn:  conn,
		state: stateAwaitingHello,
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
