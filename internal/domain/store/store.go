// Package store implements the incident state store (C2): the per-incident
// room registry, connection metadata, last-known location per responder,
// active SOS per incident, and the dedup window each incident owns (C3).
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

// Store is the edge node's authoritative in-memory state. All of it is
// process memory: a crash discards rooms, locations, SOS, and dedup
// history, per spec §6 ("Persisted state: None").
type Store struct {
	rooms     sync.Map // incidentId (string) -> *Room
	locations *LocationIndex
	logger    *slog.Logger
}

// New returns an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{locations: newLocationIndex(), logger: logger}
}

func (s *Store) roomFor(incidentID string) *Room {
	if v, ok := s.rooms.Load(incidentID); ok {
		return v.(*Room)
	}
	room := newRoom(incidentID)
	actual, _ := s.rooms.LoadOrStore(incidentID, room)
	return actual.(*Room)
}

// AddConnection binds conn to (incidentID, responderID) and adds it to the
// incident's room, creating the room lazily on first use (spec §3,
// Incident lifecycle).
func (s *Store) AddConnection(conn *Connection, incidentID, responderID string) {
	conn.Bind(incidentID, responderID)
	s.roomFor(incidentID).join(conn, responderID)
}

// RemoveConnection removes conn from its room (if bound) and reports the
// identity it held. If the room is left with no connections and no active
// SOS, it is deleted from the rooms map; a room holding an active SOS is
// kept with zero connections so a later rejoin still sees that SOS.
func (s *Store) RemoveConnection(conn *Connection) (incidentID, responderID string, ok bool) {
	incidentID, _, bound := conn.Identity()
	if !bound {
		return "", "", false
	}

	v, loaded := s.rooms.Load(incidentID)
	if !loaded {
		return incidentID, "", false
	}
	room := v.(*Room)
	responderID, reclaimable := room.leave(conn)
	if reclaimable {
		s.rooms.CompareAndDelete(incidentID, room)
	}
	return incidentID, responderID, true
}

// ResponderIDsIn lists responders currently bound to a connection in the
// given incident.
func (s *Store) ResponderIDsIn(incidentID string) []string {
	if v, ok := s.rooms.Load(incidentID); ok {
		return v.(*Room).responderIDs()
	}
	return nil
}

// Broadcast sends an already-encoded frame to every open connection in the
// incident's room.
func (s *Store) Broadcast(incidentID string, frame []byte) {
	if v, ok := s.rooms.Load(incidentID); ok {
		v.(*Room).broadcast(frame)
	}
}

// SetLocation records a responder's last-known location globally,
// independent of which incident (if any) they are currently connected to.
func (s *Store) SetLocation(responderID string, loc model.Location) {
	s.locations.Set(responderID, loc)
}

// LocationsFor returns last-known locations restricted to responders
// currently present (bound) in the incident (spec §4.2).
func (s *Store) LocationsFor(incidentID string) map[string]model.Location {
	out := make(map[string]model.Location)
	for _, rid := range s.ResponderIDsIn(incidentID) {
		if loc, ok := s.locations.Get(rid); ok {
			out[rid] = loc
		}
	}
	return out
}

// RaiseSos overwrites responderID's SOS state for the incident.
func (s *Store) RaiseSos(incidentID, responderID string, sos model.SosState) {
	s.roomFor(incidentID).raiseSos(responderID, sos)
}

// ClearSos removes responderID's SOS state for the incident. It never
// deletes the room itself; a room is reclaimed by RemoveConnection or
// Sweep once it has no connections and no active SOS.
func (s *Store) ClearSos(incidentID, responderID string) {
	if v, ok := s.rooms.Load(incidentID); ok {
		v.(*Room).clearSos(responderID)
	}
}

// SosFor returns a snapshot of all active SOS entries for the incident.
func (s *Store) SosFor(incidentID string) map[string]model.SosState {
	if v, ok := s.rooms.Load(incidentID); ok {
		return v.(*Room).sosSnapshot()
	}
	return map[string]model.SosState{}
}

// MarkIfNew delegates to the incident's dedup window, creating the room
// lazily if needed (a data message cannot arrive before CLIENT_HELLO binds
// the connection, so in practice the room already exists).
func (s *Store) MarkIfNew(incidentID, msgID string, nowMs int64) bool {
	return s.roomFor(incidentID).dedup.MarkIfNew(msgID, nowMs)
}

// Stats is a point-in-time snapshot of store occupancy, used by the
// operator-facing monitor command (SPEC_FULL.md §2b).
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	SosActive   int `json:"sos_active"`
}

// Snapshot computes aggregate occupancy across all rooms.
func (s *Store) Snapshot() Stats {
	var st Stats
	s.rooms.Range(func(_, v any) bool {
		room := v.(*Room)
		st.Rooms++
		st.Connections += room.connectionCount()
		room.mu.Lock()
		st.SosActive += len(room.sos)
		room.mu.Unlock()
		return true
	})
	return st
}

// Sweep runs one dedup-TTL eviction pass, matching the teacher's
// Hub.runEvictor cadence: it visits every room, drops dedup entries older
// than ttlMs, and deletes rooms left with no connections, no tracked
// dedup entries and no active SOS. Per-incident dedup memory is bounded by each room's own
// dedup.Window capacity, not by anything Sweep does.
func (s *Store) Sweep(now time.Time, ttl time.Duration) {
	nowMs := now.UnixMilli()
	ttlMs := ttl.Milliseconds()

	reaped := 0
	s.rooms.Range(func(key, value any) bool {
		incidentID := key.(string)
		room := value.(*Room)

		remaining := room.dedup.Sweep(nowMs, ttlMs)
		if remaining == 0 && room.isEmpty() && room.sosEmpty() {
			s.rooms.CompareAndDelete(incidentID, room)
			reaped++
		}
		return true
	})

	if reaped > 0 {
		s.logger.Info("dedup sweep reclaimed idle incidents", "count", reaped)
	}
}

// StartSweeper runs Sweep every interval until stop is closed. The
// configured default interval is one minute, matching the teacher's
// registry.Hub eviction cadence.
func (s *Store) StartSweeper(stop <-chan struct{}, interval time.Duration, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.Sweep(now, ttl)
		}
	}
}
