package client

import "github.com/fireline-edge/fireline/internal/domain/model"

// The helpers below convert the generic map[string]any shape produced by
// encoding/json (every object becomes map[string]any, every number
// becomes float64) back into the typed values the applier wants.

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func locationMap(v any) map[string]model.Location {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]model.Location, len(obj))
	for k, raw := range obj {
		if m, ok := raw.(map[string]any); ok {
			out[k] = locationFrom(m)
		}
	}
	return out
}

func sosMap(v any) map[string]model.SosState {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]model.SosState, len(obj))
	for k, raw := range obj {
		if m, ok := raw.(map[string]any); ok {
			out[k] = sosFrom(m)
		}
	}
	return out
}

func locationFrom(m map[string]any) model.Location {
	loc := model.Location{}
	if f, ok := m["lat"].(float64); ok {
		loc.Lat = f
	}
	if f, ok := m["lng"].(float64); ok {
		loc.Lng = f
	}
	if f, ok := m["at"].(float64); ok {
		loc.At = int64(f)
	}
	if f, ok := m["accuracy"].(float64); ok {
		acc := f
		loc.Accuracy = &acc
	}
	return loc
}

func sosFrom(m map[string]any) model.SosState {
	sos := model.SosState{}
	if s, ok := m["note"].(string); ok {
		sos.Note = s
	}
	if f, ok := m["at"].(float64); ok {
		sos.At = int64(f)
	}
	return sos
}
