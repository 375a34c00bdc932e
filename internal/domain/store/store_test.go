package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

// newTestConnection returns a Connection whose write-pump goroutine
// forwards every frame onto a channel, so tests can synchronize on
// delivery instead of racing a plain slice against that goroutine.
func newTestConnection(t *testing.T) (*Connection, chan []byte) {
	t.Helper()
	out := make(chan []byte, 16)
	conn := NewConnection(context.Background(), 8, func(frame []byte) error {
		out <- frame
		return nil
	}, func() error { return nil })
	t.Cleanup(conn.Close)
	return conn, out
}

func expectFrame(t *testing.T, out chan []byte) []byte {
	t.Helper()
	select {
	case frame := <-out:
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func expectNoFrame(t *testing.T, out chan []byte) {
	t.Helper()
	select {
	case frame := <-out:
		t.Fatalf("expected no frame, got %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddConnectionJoinsRoomAndResponderIDsIn(t *testing.T) {
	st := New(nil)
	conn, _ := newTestConnection(t)
	st.AddConnection(conn, "inc-1", "r1")

	assert.ElementsMatch(t, []string{"r1"}, st.ResponderIDsIn("inc-1"))
	assert.Empty(t, st.ResponderIDsIn("inc-2"))
}

func TestCrossIncidentIsolation(t *testing.T) {
	st := New(nil)
	connA, outA := newTestConnection(t)
	connB, outB := newTestConnection(t)

	st.AddConnection(connA, "inc-1", "r1")
	st.AddConnection(connB, "inc-2", "r2")

	st.Broadcast("inc-1", []byte("hello-1"))

	assert.Equal(t, []byte("hello-1"), expectFrame(t, outA))
	expectNoFrame(t, outB)
}

func TestRemoveConnectionReclaimsEmptyRoom(t *testing.T) {
	st := New(nil)
	conn, _ := newTestConnection(t)
	st.AddConnection(conn, "inc-1", "r1")

	incidentID, responderID, ok := st.RemoveConnection(conn)
	require.True(t, ok)
	assert.Equal(t, "inc-1", incidentID)
	assert.Equal(t, "r1", responderID)
	assert.Empty(t, st.ResponderIDsIn("inc-1"))

	stats := st.Snapshot()
	assert.Equal(t, 0, stats.Rooms)
}

func TestLocationSurvivesDisconnectAndIsScopedToPresence(t *testing.T) {
	st := New(nil)
	conn, _ := newTestConnection(t)
	st.AddConnection(conn, "inc-1", "r1")

	st.SetLocation("r1", model.Location{Lat: 1, Lng: 2, At: 100})
	locs := st.LocationsFor("inc-1")
	assert.Contains(t, locs, "r1")

	st.RemoveConnection(conn)
	// Location itself is never deleted by a disconnect (spec §3), but
	// LocationsFor only surfaces responders currently present in the room.
	assert.Empty(t, st.LocationsFor("inc-1"))

	conn2, _ := newTestConnection(t)
	st.AddConnection(conn2, "inc-1", "r1")
	locs = st.LocationsFor("inc-1")
	assert.Equal(t, model.Location{Lat: 1, Lng: 2, At: 100}, locs["r1"])
}

func TestSosPersistsAcrossReconnect(t *testing.T) {
	st := New(nil)
	conn, _ := newTestConnection(t)
	st.AddConnection(conn, "inc-1", "r1")
	st.RaiseSos("inc-1", "r1", model.SosState{Note: "trapped", At: 1})

	st.RemoveConnection(conn)
	// The room is kept alive (zero connections, but an active SOS) so a
	// later rejoin still sees it in its snapshot (spec §3/§8.3).
	sos := st.SosFor("inc-1")
	assert.Equal(t, model.SosState{Note: "trapped", At: 1}, sos["r1"])

	conn2, _ := newTestConnection(t)
	st.AddConnection(conn2, "inc-1", "r1")
	sos = st.SosFor("inc-1")
	assert.Equal(t, model.SosState{Note: "trapped", At: 1}, sos["r1"])
}

func TestMarkIfNewPerIncidentScoping(t *testing.T) {
	st := New(nil)
	assert.True(t, st.MarkIfNew("inc-1", "m1", 100))
	assert.False(t, st.MarkIfNew("inc-1", "m1", 101))
	assert.True(t, st.MarkIfNew("inc-2", "m1", 100))
}

func TestSweepReclaimsIdleIncidents(t *testing.T) {
	st := New(nil)
	st.MarkIfNew("inc-1", "m1", 0)

	st.Sweep(time.UnixMilli(2_000_000), time.Millisecond*900_000)
	stats := st.Snapshot()
	assert.Equal(t, 0, stats.Rooms)
}
