package dispatcher

import (
	"context"

	"github.com/fireline-edge/fireline/internal/domain/codec"
	"github.com/fireline-edge/fireline/internal/domain/model"
)

// handleData processes any non-hello message while JOINED (spec §4.4.1).
func (s *Session) handleData(ctx context.Context, env *model.Envelope) {
	incidentID, responderID, bound := s.conn.Identity()
	if !bound {
		s.replyError("connection is not bound to an incident")
		return
	}

	if env.MsgID == "" {
		s.replyError("Missing msgId")
		return
	}

	isNew := s.d.Store.MarkIfNew(incidentID, env.MsgID, nowMs())
	s.reply(model.Frame(model.KindAckMsg, map[string]any{
		"msgId": env.MsgID,
		"at":    nowMs(),
	}))
	if !isNew {
		return
	}

	switch env.Type {
	case model.KindLocationUpdate:
		s.handleLocationUpdate(incidentID, responderID, env)
	case model.KindSosRaise:
		s.handleSosRaise(incidentID, responderID, env)
	case model.KindSosClear:
		s.handleSosClear(incidentID, responderID, env)
	case model.KindChatSend:
		s.handleChatSend(incidentID, responderID, env)
	default:
		s.handlePassthrough(incidentID, responderID, env)
	}
}

func (s *Session) handleLocationUpdate(incidentID, responderID string, env *model.Envelope) {
	lat, latOK := codec.NumberField(env, "lat")
	lng, lngOK := codec.NumberField(env, "lng")
	if !latOK || !lngOK || !model.ValidLatLng(lat, lng) {
		s.replyError("invalid lat/lng")
		return
	}

	at := nowMs()
	loc := model.Location{Lat: lat, Lng: lng, At: at}
	if acc, ok := codec.NumberField(env, "accuracy"); ok && model.FiniteAccuracy(acc) {
		loc.Accuracy = &acc
	}
	s.d.Store.SetLocation(responderID, loc)

	fields := map[string]any{
		"msgId":       env.MsgID,
		"incidentId":  incidentID,
		"responderId": responderID,
		"lat":         lat,
		"lng":         lng,
		"at":          at,
	}
	if loc.Accuracy != nil {
		fields["accuracy"] = *loc.Accuracy
	}
	s.broadcast(incidentID, model.KindLocationUpdate, fields)
}

func (s *Session) handleSosRaise(incidentID, responderID string, env *model.Envelope) {
	at := nowMs()
	sos := model.SosState{At: at}
	fields := map[string]any{
		"msgId":       env.MsgID,
		"incidentId":  incidentID,
		"responderId": responderID,
		"at":          at,
	}
	if note, ok := codec.StringField(env, "note"); ok {
		sos.Note = note
		fields["note"] = note
	}

	s.d.Store.RaiseSos(incidentID, responderID, sos)
	s.broadcast(incidentID, model.KindSosRaise, fields)
}

func (s *Session) handleSosClear(incidentID, responderID string, env *model.Envelope) {
	at := nowMs()
	s.d.Store.ClearSos(incidentID, responderID)
	s.broadcast(incidentID, model.KindSosClear, map[string]any{
		"msgId":       env.MsgID,
		"incidentId":  incidentID,
		"responderId": responderID,
		"at":          at,
	})
}

func (s *Session) handleChatSend(incidentID, responderID string, env *model.Envelope) {
	text, ok := codec.StringField(env, "text")
	if !ok || text == "" {
		s.replyError("text must be a non-empty string")
		return
	}
	s.broadcast(incidentID, model.KindChatSend, map[string]any{
		"msgId":      env.MsgID,
		"incidentId": incidentID,
		"from":       responderID,
		"text":       text,
		"at":         nowMs(),
	})
}

// handlePassthrough forwards any message kind Fireline does not special-case,
// overwriting incidentId/from to enforce server authority over routing
// (spec §4.4.1, "other" row).
func (s *Session) handlePassthrough(incidentID, responderID string, env *model.Envelope) {
	fields := make(map[string]any, len(env.Raw)+3)
	for k, v := range env.Raw {
		fields[k] = v
	}
	fields["msgId"] = env.MsgID
	fields["incidentId"] = incidentID
	fields["from"] = responderID
	fields["at"] = nowMs()
	delete(fields, "type")
	s.broadcast(incidentID, env.Type, fields)
}

// broadcast encodes a typed frame and fans it out to every open connection
// in the incident's room, including the sender (spec §4.4.1).
func (s *Session) broadcast(incidentID string, kind model.Kind, fields map[string]any) {
	data, err := codec.Encode(model.Frame(kind, fields))
	if err != nil {
		s.d.Logger.Error("failed to encode broadcast frame", "error", err, "type", kind)
		return
	}
	s.d.Store.Broadcast(incidentID, data)
}
