package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fireline-edge/fireline/internal/domain/dedup"
	"github.com/fireline-edge/fireline/internal/domain/model"
)

// Room is one incident's active membership: the set of open connections,
// the responderId -> current-binding index, the incident-scoped SOS table,
// and the incident-scoped dedup window. Sharding hot state by incidentId
// this way means only lastLocationByResponder (held in LocationIndex,
// outside any Room) needs its own, separate concurrency discipline — see
// SPEC_FULL.md §9.
type Room struct {
	incidentID string

	mu          sync.Mutex
	conns       map[uuid.UUID]*Connection
	byResponder map[string]uuid.UUID
	sos         map[string]model.SosState

	dedup *dedup.Window
}

func newRoom(incidentID string) *Room {
	return &Room{
		incidentID:  incidentID,
		conns:       make(map[uuid.UUID]*Connection),
		byResponder: make(map[string]uuid.UUID),
		sos:         make(map[string]model.SosState),
		dedup:       dedup.NewWindow(),
	}
}

// join binds conn as the current connection for responderID. A prior
// binding for the same responder, if any, stops being part of the live
// membership index but is not itself closed — it remains independently
// open until its own close, per spec §3.
func (r *Room) join(conn *Connection, responderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
	r.byResponder[responderID] = conn.ID()
}

// leave removes conn from the room. It reports the responderId that was
// bound to conn (if any) and whether the room can be reclaimed: zero
// connections remaining AND no active SOS. A room with live SOS entries is
// kept around with no connections so a later rejoin still sees them in its
// INCIDENT_SNAPSHOT (spec §3, "SOS persistence across reconnect").
func (r *Room) leave(conn *Connection) (responderID string, reclaimable bool) {
	_, responderID, bound := conn.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn.ID())
	if bound {
		if current, ok := r.byResponder[responderID]; ok && current == conn.ID() {
			delete(r.byResponder, responderID)
		}
	}
	return responderID, len(r.conns) == 0 && len(r.sos) == 0
}

// responderIDs lists responders with a live binding in this room. Order is
// iteration order of a Go map and is not stable (spec §4.4.1 does not
// require stability).
func (r *Room) responderIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byResponder))
	for rid := range r.byResponder {
		out = append(out, rid)
	}
	return out
}

// broadcast sends frame to every open connection currently tracked by the
// room, including any connection orphaned by a reconnect that has not yet
// closed (spec §4.4.1: "including the sender").
func (r *Room) broadcast(frame []byte) {
	r.mu.Lock()
	targets := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		c.Send(frame)
	}
}

func (r *Room) isEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0
}

func (r *Room) connectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// raiseSos overwrites any existing SOS for responderID.
func (r *Room) raiseSos(responderID string, sos model.SosState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sos[responderID] = sos
}

// clearSos removes responderID's SOS, if any.
func (r *Room) clearSos(responderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sos, responderID)
}

func (r *Room) sosSnapshot() map[string]model.SosState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.SosState, len(r.sos))
	for k, v := range r.sos {
		out[k] = v
	}
	return out
}

func (r *Room) sosEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sos) == 0
}
