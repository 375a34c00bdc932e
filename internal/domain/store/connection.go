package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection is a per-socket actor: a private mailbox plus a write-pump
// goroutine, adapted from the teacher's registry.connect/registry.Cell.
// Unlike the teacher, Fireline does not pool Connections with sync.Pool —
// edge-node connection volume is bounded by the number of responder
// devices on one incident network, not datacenter fan-in, so the pooling
// complexity has no hot path to justify it (see SPEC_FULL.md §4.4).
//
// A Connection starts unbound (no incident/responder) and is bound exactly
// once, on a successful CLIENT_HELLO, by the dispatcher.
type Connection struct {
	id uuid.UUID

	mu          sync.RWMutex
	incidentID  string
	responderID string
	bound       bool

	ctx      context.Context
	cancelFn context.CancelFunc

	mailbox chan []byte
	writeFn func([]byte) error
	closeFn func() error

	closeOnce    sync.Once
	lastActivity int64 // unix nanos, atomic
	dropped      uint64
}

// NewConnection wraps a transport's send/close primitives into a
// mailbox-backed actor. writeFn performs the actual frame write (e.g. a
// websocket.Conn.WriteMessage call); it is only ever invoked from this
// Connection's own write-pump goroutine, so it need not be safe for
// concurrent use by anyone else.
func NewConnection(ctx context.Context, bufferSize int, writeFn func([]byte) error, closeFn func() error) *Connection {
	childCtx, cancel := context.WithCancel(ctx)
	c := &Connection{
		id:           uuid.New(),
		ctx:          childCtx,
		cancelFn:     cancel,
		mailbox:      make(chan []byte, bufferSize),
		writeFn:      writeFn,
		closeFn:      closeFn,
		lastActivity: time.Now().UnixNano(),
	}
	go c.pump()
	return c
}

// ID returns the connection's identity, stable for its lifetime.
func (c *Connection) ID() uuid.UUID { return c.id }

// Bind associates this connection with an (incidentId, responderId) pair
// on the first successful CLIENT_HELLO. Calling it again overwrites the
// binding; the dispatcher's state machine is what rejects a second hello,
// so in practice it is called once per connection (spec §4.4).
func (c *Connection) Bind(incidentID, responderID string) {
	c.mu.Lock()
	c.incidentID = incidentID
	c.responderID = responderID
	c.bound = true
	c.mu.Unlock()
}

// Identity returns the bound (incidentId, responderId, ok) triple.
func (c *Connection) Identity() (incidentID, responderID string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.incidentID, c.responderID, c.bound
}

func (c *Connection) touch() {
	atomic.StoreInt64(&c.lastActivity, time.Now().UnixNano())
}

// Send enqueues a pre-encoded frame for delivery. If the mailbox is full,
// the frame is dropped (documented loss, spec §5) rather than blocking the
// broadcasting goroutine.
func (c *Connection) Send(frame []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	case c.mailbox <- frame:
		c.touch()
		return true
	default:
		atomic.AddUint64(&c.dropped, 1)
		return false
	}
}

// Dropped reports how many frames have been shed due to backpressure.
func (c *Connection) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

func (c *Connection) pump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame, ok := <-c.mailbox:
			if !ok {
				return
			}
			// A slow or broken peer must not stall the dispatcher (spec §5);
			// the write itself may block briefly on the OS socket buffer, but
			// that cost is paid by this connection's own goroutine only.
			_ = c.writeFn(frame)
		}
	}
}

// Close tears the connection down exactly once: cancels its context,
// which stops the write pump and discards any frames still queued in the
// mailbox, and invokes the transport's own close.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()
		if c.closeFn != nil {
			_ = c.closeFn()
		}
	})
}
