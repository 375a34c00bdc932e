package dispatcher

import (
	"context"

	"github.com/fireline-edge/fireline/internal/domain/codec"
	"github.com/fireline-edge/fireline/internal/domain/model"
	"github.com/fireline-edge/fireline/internal/domain/store"
)

// Session is the per-connection instance of the protocol state machine. It
// is only ever driven from the connection's own read-pump goroutine, so it
// needs no internal locking.
type Session struct {
	d     *Dispatcher
	conn  *store.Connection
	state state
}

// HandleFrame decodes and processes one inbound frame. Decoding errors and
// protocol/validation failures never terminate the connection (spec §7):
// they produce an ERROR reply to the offending connection only.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) {
	ctx, span := s.d.Tracer.Start(ctx, "dispatcher.HandleFrame")
	defer span.End()

	env, err := codec.Decode(raw)
	if err != nil {
		s.replyError(err.Error())
		return
	}

	switch s.state {
	case stateAwaitingHello:
		s.handleHello(env)
	case stateJoined:
		if env.Type == model.KindClientHello {
			s.replyError("already joined; a second CLIENT_HELLO is not supported on this connection")
			return
		}
		s.handleData(ctx, env)
	case stateClosed:
		// Defensive: a frame arriving after Close() is simply ignored.
	}
}

// Close runs disconnect cleanup: remove the connection from its room and,
// if it was bound, broadcast a presence-leave (spec §4.4, CLOSED state).
func (s *Session) Close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed

	incidentID, responderID, wasBound := s.d.Store.RemoveConnection(s.conn)
	s.conn.Close()

	if wasBound && responderID != "" {
		frame := model.Frame(model.KindPresenceLeave, map[string]any{
			"incidentId":  incidentID,
			"responderId": responderID,
			"at":          nowMs(),
		})
		if data, err := codec.Encode(frame); err == nil {
			s.d.Store.Broadcast(incidentID, data)
		}
	}
}

func (s *Session) handleHello(env *model.Envelope) {
	if env.Type != model.KindClientHello {
		s.replyError("expected CLIENT_HELLO before any other message")
		return
	}
	incidentID := env.IncidentID
	responderID := env.ResponderID
	if incidentID == "" || responderID == "" {
		s.replyError("CLIENT_HELLO requires non-empty incidentId and responderId")
		return
	}

	s.d.Store.AddConnection(s.conn, incidentID, responderID)
	s.state = stateJoined

	s.reply(model.Frame(model.KindAck, map[string]any{
		"message":    "Joined incident",
		"incidentId": incidentID,
		"at":         nowMs(),
	}))

	s.reply(model.Frame(model.KindIncidentSnapshot, map[string]any{
		"incidentId": incidentID,
		"responders": s.d.Store.ResponderIDsIn(incidentID),
		"locations":  s.d.Store.LocationsFor(incidentID),
		"sos":        s.d.Store.SosFor(incidentID),
		"at":         nowMs(),
	}))
}

// reply encodes and sends a frame to this connection only.
func (s *Session) reply(frame map[string]any) {
	data, err := codec.Encode(frame)
	if err != nil {
		s.d.Logger.Error("failed to encode outbound frame", "error", err)
		return
	}
	s.conn.Send(data)
}

func (s *Session) replyError(reason string) {
	s.reply(model.Frame(model.KindError, map[string]any{
		"error": reason,
		"at":    nowMs(),
	}))
}
