package transport

import (
	"errors"
	"sync"
)

// ErrPipeClosed is returned by Send on a closed Pipe endpoint.
var ErrPipeClosed = errors.New("transport: pipe closed")

// pipeEnd is one side of an in-process, no-network Transport pair. It
// exists so the dispatcher and the client package can be exercised in
// tests without a real socket, while still going through the same
// Transport contract every real caller uses.
type pipeEnd struct {
	events chan Event
	peer   *pipeEnd

	mu   sync.Mutex
	open bool
}

// NewPipe returns two connected Transports: frames sent on one arrive as
// EventMessage on the other, and closing either side closes both.
func NewPipe() (Transport, Transport) {
	a := &pipeEnd{events: make(chan Event, 64), open: true}
	b := &pipeEnd{events: make(chan Event, 64), open: true}
	a.peer = b
	b.peer = a
	a.events <- Event{Kind: EventOpen}
	b.events <- Event{Kind: EventOpen}
	return a, b
}

func (p *pipeEnd) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *pipeEnd) Send(frame []byte) error {
	p.mu.Lock()
	open := p.open
	p.mu.Unlock()
	if !open {
		return ErrPipeClosed
	}

	select {
	case p.peer.events <- Event{Kind: EventMessage, Data: frame}:
	default:
		// Peer's buffer is saturated; drop, mirroring real backpressure
		// (spec §5: no timeouts on send, documented loss instead).
	}
	return nil
}

func (p *pipeEnd) Close() error {
	p.mu.Lock()
	wasOpen := p.open
	p.open = false
	p.mu.Unlock()
	if !wasOpen {
		return nil
	}

	select {
	case p.events <- Event{Kind: EventClose}:
	default:
	}

	p.peer.mu.Lock()
	peerWasOpen := p.peer.open
	p.peer.open = false
	p.peer.mu.Unlock()
	if peerWasOpen {
		select {
		case p.peer.events <- Event{Kind: EventClose}:
		default:
		}
	}
	return nil
}

func (p *pipeEnd) Events() <-chan Event { return p.events }
