package transport

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ServerConn adapts a server-accepted *websocket.Conn to the Transport
// contract, the same duplex shape the teacher's ws.WSHandler pumps
// directly but here decoupled behind events so the dispatcher never
// touches gorilla/websocket itself.
type ServerConn struct {
	ws        *websocket.Conn
	events    chan Event
	writeMu   sync.Mutex
	closeOnce sync.Once
	open      atomic.Bool
}

// NewServerConn wraps an already-upgraded websocket connection and starts
// its read pump. The caller owns calling Close when done.
func NewServerConn(ws *websocket.Conn) *ServerConn {
	sc := &ServerConn{ws: ws, events: make(chan Event, 32)}
	sc.open.Store(true)
	sc.events <- Event{Kind: EventOpen}
	go sc.readLoop()
	return sc
}

func (s *ServerConn) readLoop() {
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			s.open.Store(false)
			s.events <- Event{Kind: EventClose}
			return
		}
		s.events <- Event{Kind: EventMessage, Data: data}
	}
}

// Send writes a text frame. gorilla/websocket connections are not safe for
// concurrent writers, so this is the only place that calls ws.WriteMessage.
func (s *ServerConn) Send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close terminates the underlying socket exactly once.
func (s *ServerConn) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.open.Store(false)
		err = s.ws.Close()
	})
	return err
}

// IsOpen reports whether the read pump has not yet observed a close/error.
func (s *ServerConn) IsOpen() bool { return s.open.Load() }

// Events returns the event stream for this connection.
func (s *ServerConn) Events() <-chan Event { return s.events }
