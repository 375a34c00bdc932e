// Package codec implements the message codec & envelope component (C1):
// framed text payloads carrying a JSON object with a mandatory "type" field.
// Decoding errors are reported, never fatal — the dispatcher turns them into
// a protocol ERROR reply rather than tearing down the connection.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

// ErrDecode wraps any failure to parse a frame into a usable envelope.
type ErrDecode struct {
	Reason string
}

func (e *ErrDecode) Error() string { return e.Reason }

// Decode parses a raw frame into an Envelope, keeping the full decoded
// object in Raw so type-specific handlers can pull additional fields.
func Decode(frame []byte) (*model.Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, &ErrDecode{Reason: fmt.Sprintf("malformed json: %v", err)}
	}

	typeStr, _ := raw["type"].(string)
	if typeStr == "" {
		return nil, &ErrDecode{Reason: "missing type"}
	}

	env := &model.Envelope{
		Type: model.Kind(typeStr),
		Raw:  raw,
	}
	if v, ok := raw["msgId"].(string); ok {
		env.MsgID = v
	}
	if v, ok := raw["incidentId"].(string); ok {
		env.IncidentID = v
	}
	if v, ok := raw["responderId"].(string); ok {
		env.ResponderID = v
	}
	return env, nil
}

// Encode serializes an outbound frame (built with model.Frame) to wire
// bytes.
func Encode(frame map[string]any) ([]byte, error) {
	return json.Marshal(frame)
}

// StringField fetches a string field from an envelope's raw object,
// returning "" if absent or of the wrong type.
func StringField(env *model.Envelope, key string) (string, bool) {
	v, ok := env.Raw[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NumberField fetches a numeric field, which json.Unmarshal always decodes
// as float64 into a map[string]any.
func NumberField(env *model.Envelope, key string) (float64, bool) {
	v, ok := env.Raw[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
