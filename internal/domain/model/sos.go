package model

// SosState is present iff the responder is currently raising SOS within a
// given incident. Keyed by (incidentId, responderId) in the store.
type SosState struct {
	Note string `json:"note,omitempty"`
	At   int64  `json:"at"`
}
