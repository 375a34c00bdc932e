package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

func TestLifecycleTransitions(t *testing.T) {
	a := NewApplier()
	assert.Equal(t, StatusDisconnected, a.Snapshot().Status)

	a.BeginConnecting()
	assert.Equal(t, StatusConnecting, a.Snapshot().Status)

	a.OnOpen()
	assert.Equal(t, StatusConnected, a.Snapshot().Status)

	a.OnClose()
	assert.Equal(t, StatusDisconnected, a.Snapshot().Status)
}

func TestApplySnapshotFullyReplaces(t *testing.T) {
	a := NewApplier()
	a.ApplyLocationUpdate("stale-responder", model.Location{Lat: 9, Lng: 9})

	a.ApplySnapshot("inc-1", []string{"r1", "r2"},
		map[string]model.Location{"r1": {Lat: 1, Lng: 2}},
		map[string]model.SosState{"r2": {Note: "trapped"}})

	snap := a.Snapshot()
	assert.Equal(t, "inc-1", snap.IncidentID)
	assert.ElementsMatch(t, []string{"r1", "r2"}, snap.Responders)
	assert.Equal(t, model.Location{Lat: 1, Lng: 2}, snap.Locations["r1"])
	assert.NotContains(t, snap.Locations, "stale-responder")
	assert.Equal(t, model.SosState{Note: "trapped"}, snap.Sos["r2"])
}

func TestIncrementalApply(t *testing.T) {
	a := NewApplier()
	a.ApplySnapshot("inc-1", []string{"r1"}, nil, nil)

	a.ApplyLocationUpdate("r1", model.Location{Lat: 3, Lng: 4})
	assert.Equal(t, model.Location{Lat: 3, Lng: 4}, a.Snapshot().Locations["r1"])

	a.ApplySosRaise("r1", model.SosState{Note: "help", At: 5})
	assert.Equal(t, model.SosState{Note: "help", At: 5}, a.Snapshot().Sos["r1"])

	a.ApplySosClear("r1")
	assert.NotContains(t, a.Snapshot().Sos, "r1")

	a.ApplyPresenceLeave("r1")
	assert.NotContains(t, a.Snapshot().Responders, "r1")
	// Location is not removed by a presence leave: it is keyed by
	// responderId and survives independent of connection liveness.
	assert.Equal(t, model.Location{Lat: 3, Lng: 4}, a.Snapshot().Locations["r1"])
}

func TestSubscribeReceivesCurrentStateImmediately(t *testing.T) {
	a := NewApplier()
	a.BeginConnecting()

	var got Snapshot
	a.Subscribe(func(s Snapshot) { got = s })
	assert.Equal(t, StatusConnecting, got.Status)
}
