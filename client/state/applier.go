// Package state implements the client snapshot applier (C6): the single
// observable view of "what does this client currently believe", kept up
// to date by full-replace on INCIDENT_SNAPSHOT and incremental apply on
// every subsequent server event (spec §4.6).
package state

import (
	"sync"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

// Status is the connection lifecycle phase surfaced to observers.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Snapshot is the full, read-only observable state (spec §4.6). Locations
// and Sos persist across a disconnect; they are only ever replaced by a
// fresh INCIDENT_SNAPSHOT after rejoining.
type Snapshot struct {
	Status      Status
	IncidentID  string
	ResponderID string
	Responders  []string
	Locations   map[string]model.Location
	Sos         map[string]model.SosState
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Responders = append([]string(nil), s.Responders...)
	out.Locations = make(map[string]model.Location, len(s.Locations))
	for k, v := range s.Locations {
		out.Locations[k] = v
	}
	out.Sos = make(map[string]model.SosState, len(s.Sos))
	for k, v := range s.Sos {
		out.Sos[k] = v
	}
	return out
}

// Applier owns the observable Snapshot and fans out changes to subscribers.
type Applier struct {
	mu          sync.Mutex
	snap        Snapshot
	subscribers []func(Snapshot)
}

// NewApplier returns an applier in the disconnected state with empty
// collections.
func NewApplier() *Applier {
	return &Applier{
		snap: Snapshot{
			Status:    StatusDisconnected,
			Locations: map[string]model.Location{},
			Sos:       map[string]model.SosState{},
		},
	}
}

// Subscribe registers fn to be called, with a snapshot copy, on every
// state change including the current one.
func (a *Applier) Subscribe(fn func(Snapshot)) {
	a.mu.Lock()
	a.subscribers = append(a.subscribers, fn)
	cp := a.snap.clone()
	a.mu.Unlock()
	fn(cp)
}

// emit notifies every subscriber with a snapshot copy. It takes the lock
// only to copy the state and the subscriber list, then calls subscribers
// after unlocking, so a subscriber that calls back into the applier (e.g.
// Snapshot) cannot deadlock against its own notification.
func (a *Applier) emit() {
	a.mu.Lock()
	cp := a.snap.clone()
	subscribers := make([]func(Snapshot), len(a.subscribers))
	copy(subscribers, a.subscribers)
	a.mu.Unlock()

	for _, fn := range subscribers {
		fn(cp)
	}
}

// Snapshot returns a copy of the current observable state.
func (a *Applier) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.clone()
}

// SetIdentity records the incident/responder this client will join next.
func (a *Applier) SetIdentity(incidentID, responderID string) {
	a.mu.Lock()
	a.snap.IncidentID = incidentID
	a.snap.ResponderID = responderID
	a.mu.Unlock()
	a.emit()
}

// BeginConnecting marks a dial attempt in progress.
func (a *Applier) BeginConnecting() {
	a.mu.Lock()
	a.snap.Status = StatusConnecting
	a.mu.Unlock()
	a.emit()
}

// OnOpen marks the transport open (handshake sent, not yet acked).
func (a *Applier) OnOpen() {
	a.mu.Lock()
	a.snap.Status = StatusConnected
	a.mu.Unlock()
	a.emit()
}

// OnClose marks the transport closed. Responders/Locations/Sos are
// preserved as last-known state until a fresh snapshot replaces them.
func (a *Applier) OnClose() {
	a.mu.Lock()
	a.snap.Status = StatusDisconnected
	a.mu.Unlock()
	a.emit()
}

// ApplySnapshot fully replaces the roster/location/SOS view on receipt of
// INCIDENT_SNAPSHOT (spec §4.6: "full replace, never merge").
func (a *Applier) ApplySnapshot(incidentID string, responders []string, locations map[string]model.Location, sos map[string]model.SosState) {
	a.mu.Lock()
	a.snap.IncidentID = incidentID
	a.snap.Responders = append([]string(nil), responders...)
	a.snap.Locations = make(map[string]model.Location, len(locations))
	for k, v := range locations {
		a.snap.Locations[k] = v
	}
	a.snap.Sos = make(map[string]model.SosState, len(sos))
	for k, v := range sos {
		a.snap.Sos[k] = v
	}
	a.mu.Unlock()
	a.emit()
}

// ApplyLocationUpdate incrementally updates one responder's location.
func (a *Applier) ApplyLocationUpdate(responderID string, loc model.Location) {
	a.mu.Lock()
	if a.snap.Locations == nil {
		a.snap.Locations = map[string]model.Location{}
	}
	a.snap.Locations[responderID] = loc
	a.mu.Unlock()
	a.emit()
}

// ApplySosRaise records an active SOS for a responder.
func (a *Applier) ApplySosRaise(responderID string, sos model.SosState) {
	a.mu.Lock()
	if a.snap.Sos == nil {
		a.snap.Sos = map[string]model.SosState{}
	}
	a.snap.Sos[responderID] = sos
	a.mu.Unlock()
	a.emit()
}

// ApplySosClear removes a responder's active SOS, if any.
func (a *Applier) ApplySosClear(responderID string) {
	a.mu.Lock()
	delete(a.snap.Sos, responderID)
	a.mu.Unlock()
	a.emit()
}

// ApplyPresenceLeave removes a responder from the roster. Their last-known
// location is left in place; presence and location liveness are distinct
// (spec §3).
func (a *Applier) ApplyPresenceLeave(responderID string) {
	a.mu.Lock()
	for i, r := range a.snap.Responders {
		if r == responderID {
			a.snap.Responders = append(a.snap.Responders[:i], a.snap.Responders[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	a.emit()
}
