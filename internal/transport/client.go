package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ClientDial adapts a client-initiated websocket connection to the
// Transport contract, used by the client reliable sender (C5) and
// snapshot applier (C6) to reach the edge node. It does not retry a
// failed Dial itself; the caller (client.Client) owns reconnect policy.
type ClientDial struct {
	ws        *websocket.Conn
	events    chan Event
	writeMu   sync.Mutex
	closeOnce sync.Once
	open      atomic.Bool
}

// Dial connects to url and returns a Transport once the handshake
// completes. A dial failure returns an error immediately; the caller
// decides whether and when to retry.
func Dial(url string) (*ClientDial, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &ClientDial{ws: ws, events: make(chan Event, 32)}
	c.open.Store(true)
	c.events <- Event{Kind: EventOpen}
	go c.readLoop()
	return c, nil
}

func (c *ClientDial) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.open.Store(false)
			c.events <- Event{Kind: EventClose}
			return
		}
		c.events <- Event{Kind: EventMessage, Data: data}
	}
}

// Send writes a text frame with a short deadline so a stalled peer cannot
// wedge the reliable sender's single-goroutine flush loop indefinitely.
func (c *ClientDial) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close terminates the connection exactly once.
func (c *ClientDial) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.open.Store(false)
		err = c.ws.Close()
	})
	return err
}

// IsOpen reports whether the read pump has not yet observed a close/error.
func (c *ClientDial) IsOpen() bool { return c.open.Load() }

// Events returns the event stream for this connection.
func (c *ClientDial) Events() <-chan Event { return c.events }
