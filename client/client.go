// Package client implements the reference client runtime (C5+C6 glue): it
// dials the edge node, sends the out-of-band CLIENT_HELLO the moment the
// transport opens, drives the reliable sender's flush loop, and feeds
// every inbound frame to the snapshot applier (spec §4.5, §4.6).
package client

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fireline-edge/fireline/client/outbox"
	"github.com/fireline-edge/fireline/client/state"
	"github.com/fireline-edge/fireline/config"
	"github.com/fireline-edge/fireline/internal/domain/codec"
	"github.com/fireline-edge/fireline/internal/domain/model"
	"github.com/fireline-edge/fireline/internal/transport"
)

// Client wires a Transport, an outbox.Sender and a state.Applier together
// into the reference client behavior described in spec §4.5/§4.6.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger

	incidentID  string
	responderID string

	applier *state.Applier
	sender  *outbox.Sender
	tr      transport.Transport
}

// New builds a client bound to the incident/responder named in cfg. The
// identity is fixed for the lifetime of the client; reconnects rejoin the
// same incident as the same responder.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:         cfg,
		logger:      logger,
		incidentID:  cfg.IncidentID,
		responderID: cfg.ResponderID,
		applier:     state.NewApplier(),
	}
	c.applier.SetIdentity(c.incidentID, c.responderID)
	// One long-lived sender for the client's whole lifetime: Run rebinds it
	// to each new transport rather than replacing it, so the outbox and
	// pending table survive a reconnect untouched (spec §4.5/§5).
	c.sender = outbox.NewSender(func([]byte) error { return transport.ErrNotConnected }, func() bool { return false }, cfg.ResendAfter(), logger)
	return c
}

// Subscribe registers an observer of the client's state.Snapshot.
func (c *Client) Subscribe(fn func(state.Snapshot)) { c.applier.Subscribe(fn) }

// Snapshot returns the current observable state.
func (c *Client) Snapshot() state.Snapshot { return c.applier.Snapshot() }

// Enqueue hands a user-initiated action to the reliable sender, returning
// the generated msgId. It never fails, even before the transport is open:
// the outbox holds the item until connected (spec §4.5).
func (c *Client) Enqueue(kind model.Kind, fields map[string]any) string {
	return c.sender.Enqueue(kind, fields)
}

// Run dials the edge node and drives the client until ctx is cancelled or
// the transport closes. It does not reconnect itself; callers wanting
// reconnect-with-backoff should call Run again in a loop (the outbox and
// applier both tolerate this: queued items and last-known state survive
// across Run calls because they live on c, not on the transport).
func (c *Client) Run(ctx context.Context) error {
	c.applier.BeginConnecting()

	tr, err := transport.Dial(c.cfg.EdgeURL)
	if err != nil {
		c.applier.OnClose()
		return err
	}
	c.tr = tr
	c.sender.Rebind(tr.Send, tr.IsOpen)

	// The flush loop and the event loop run concurrently for the life of
	// this connection. Cancelling ctx stops both; the event loop returning
	// (transport closed) cancels flushCtx, which stops the flush loop.
	// errgroup waits for both to finish (same pairing the teacher uses for
	// concurrent peer lookups in internal/service/peer_enricher.go).
	flushCtx, cancelFlush := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.sender.Run(flushCtx, c.cfg.FlushTick())
		return nil
	})
	g.Go(func() error {
		defer cancelFlush()
		return c.pump(gctx, tr)
	})
	return g.Wait()
}

func (c *Client) pump(ctx context.Context, tr transport.Transport) error {
	for {
		select {
		case <-ctx.Done():
			_ = tr.Close()
			return ctx.Err()
		case ev, ok := <-tr.Events():
			if !ok {
				c.applier.OnClose()
				return nil
			}
			switch ev.Kind {
			case transport.EventOpen:
				c.applier.OnOpen()
				c.sendHandshake()
			case transport.EventMessage:
				c.handleFrame(ev.Data)
			case transport.EventClose, transport.EventError:
				c.applier.OnClose()
				return nil
			}
		}
	}
}

// sendHandshake transmits CLIENT_HELLO directly over the transport,
// bypassing the outbox: the handshake is not retried through the reliable
// sender, it simply happens once per connection open (spec §4.5).
func (c *Client) sendHandshake() {
	frame := model.Frame(model.KindClientHello, map[string]any{
		"incidentId":  c.incidentID,
		"responderId": c.responderID,
	})
	data, err := codec.Encode(frame)
	if err != nil {
		c.logger.Error("client: failed to encode handshake", "error", err)
		return
	}
	if err := c.tr.Send(data); err != nil {
		c.logger.Warn("client: failed to send handshake", "error", err)
	}
}

func (c *Client) handleFrame(raw []byte) {
	env, err := codec.Decode(raw)
	if err != nil {
		c.logger.Warn("client: malformed frame from edge", "error", err)
		return
	}

	switch env.Type {
	case model.KindAck:
		// Handshake acknowledged; no additional state change beyond OnOpen.
	case model.KindAckMsg:
		c.sender.Ack(env.MsgID)
	case model.KindIncidentSnapshot:
		responders := stringSlice(env.Raw["responders"])
		locations := locationMap(env.Raw["locations"])
		sos := sosMap(env.Raw["sos"])
		c.applier.ApplySnapshot(env.IncidentID, responders, locations, sos)
	case model.KindLocationUpdate:
		c.applier.ApplyLocationUpdate(env.ResponderID, locationFrom(env.Raw))
	case model.KindSosRaise:
		c.applier.ApplySosRaise(env.ResponderID, sosFrom(env.Raw))
	case model.KindSosClear:
		c.applier.ApplySosClear(env.ResponderID)
	case model.KindPresenceLeave:
		c.applier.ApplyPresenceLeave(env.ResponderID)
	case model.KindError:
		c.logger.Warn("client: server reported error", "reason", env.Raw["error"])
	default:
		// Chat and passthrough kinds have no observable-state effect; a
		// caller wanting them would subscribe to raw frames separately.
	}
}
