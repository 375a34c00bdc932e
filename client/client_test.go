package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireline-edge/fireline/client/state"
	"github.com/fireline-edge/fireline/config"
	"github.com/fireline-edge/fireline/internal/domain/codec"
	"github.com/fireline-edge/fireline/internal/domain/dispatcher"
	"github.com/fireline-edge/fireline/internal/domain/store"
	"github.com/fireline-edge/fireline/internal/transport"
)

// runOverPipe drives a Client against a real dispatcher.Session, both ends
// joined by an in-process Pipe, so the client's handshake/outbox/applier
// wiring is exercised without a network socket.
func runOverPipe(t *testing.T, cfg *config.Config) (*Client, func()) {
	t.Helper()
	clientSide, serverSide := transport.NewPipe()

	st := store.New(nil)
	d := dispatcher.New(st, nil, nil)
	conn := store.NewConnection(context.Background(), 16, serverSide.Send, serverSide.Close)
	session := d.NewSession(conn)

	go func() {
		for ev := range serverSide.Events() {
			switch ev.Kind {
			case transport.EventMessage:
				session.HandleFrame(context.Background(), ev.Data)
			case transport.EventClose, transport.EventError:
				session.Close()
				return
			}
		}
	}()

	cl := New(cfg, nil)
	cl.tr = clientSide
	cl.sender.Rebind(clientSide.Send, clientSide.IsOpen)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for ev := range clientSide.Events() {
			switch ev.Kind {
			case transport.EventOpen:
				cl.applier.OnOpen()
				cl.sendHandshake()
			case transport.EventMessage:
				cl.handleFrame(ev.Data)
			case transport.EventClose, transport.EventError:
				cl.applier.OnClose()
				return
			}
		}
	}()
	go cl.sender.Run(ctx, cfg.FlushTick())

	return cl, cancel
}

func waitForStatus(t *testing.T, cl *Client, want state.Status) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if cl.Snapshot().Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s, got %s", want, cl.Snapshot().Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClientJoinsAndReceivesSnapshot(t *testing.T) {
	cfg := &config.Config{IncidentID: "I1", ResponderID: "A", FlushTickMs: 10, ResendAfterMs: 500}
	cl, cancel := runOverPipe(t, cfg)
	defer cancel()

	waitForStatus(t, cl, state.StatusConnected)

	deadline := time.After(time.Second)
	for len(cl.Snapshot().Responders) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Contains(t, cl.Snapshot().Responders, "A")
}

func TestClientEnqueueGetsAckedAndRemoved(t *testing.T) {
	cfg := &config.Config{IncidentID: "I1", ResponderID: "A", FlushTickMs: 10, ResendAfterMs: 500}
	cl, cancel := runOverPipe(t, cfg)
	defer cancel()

	waitForStatus(t, cl, state.StatusConnected)

	cl.Enqueue("CHAT_SEND", map[string]any{"text": "hello"})

	deadline := time.After(time.Second)
	for cl.sender.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ack to drain outbox")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandshakeFrameShape(t *testing.T) {
	frame, err := codec.Decode([]byte(`{"type":"CLIENT_HELLO","incidentId":"I1","responderId":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, "I1", frame.IncidentID)
	assert.Equal(t, "A", frame.ResponderID)
}
