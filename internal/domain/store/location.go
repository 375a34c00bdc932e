package store

import (
	"sync"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

// LocationIndex is the single global map of responderId -> last-known
// Location. It is the one piece of hot state that is not sharded by
// incidentId (spec §9's Design Note): a responder's position survives
// disconnects and outlives any one room.
type LocationIndex struct {
	mu   sync.RWMutex
	byID map[string]model.Location
}

func newLocationIndex() *LocationIndex {
	return &LocationIndex{byID: make(map[string]model.Location)}
}

// Set stores loc for responderID, overwriting any prior value.
func (l *LocationIndex) Set(responderID string, loc model.Location) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[responderID] = loc
}

// Get returns the last-known location for responderID, if any.
func (l *LocationIndex) Get(responderID string) (model.Location, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.byID[responderID]
	return loc, ok
}
