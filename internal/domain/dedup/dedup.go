// Package dedup implements the dedup/ACK layer (C3): a per-incident,
// time-bounded record of message identifiers already seen, so a repeated
// msgId within the effect window is acknowledged but not re-executed.
package dedup

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// capacity bounds one incident's dedup window so a flood of distinct
// msgIds between sweeps cannot grow the table without limit; the least
// recently seen entry is evicted first (a repeated msgId refreshes its
// recency), same as the teacher's peer cache in
// internal/service/peer_enricher.go.
const capacity = 10_000

// Window is a mark-if-new table for one incident's msgIds. It is owned by
// a single store.Room but guarded by its own mutex, separate from the
// room's lock, so callers need no locking of their own.
type Window struct {
	mu    sync.Mutex
	cache *lru.Cache[string, int64]
}

// NewWindow returns an empty, capacity-bounded dedup window.
func NewWindow() *Window {
	cache, _ := lru.New[string, int64](capacity)
	return &Window{cache: cache}
}

// MarkIfNew atomically inserts msgId with firstSeenAtMs if absent, and
// reports whether this is the first sighting. Validation failures still
// call this first (mark-then-validate, per spec §4.4.1's reference choice)
// so a rejected message's msgId is consumed the same as an accepted one.
func (w *Window) MarkIfNew(msgID string, nowMs int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.cache.Get(msgID); ok {
		return false
	}
	w.cache.Add(msgID, nowMs)
	return true
}

// Sweep removes entries older than ttlMs as of nowMs, and reports the
// number of entries remaining (used by the caller to decide whether the
// owning room can be reclaimed).
func (w *Window) Sweep(nowMs, ttlMs int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.cache.Keys() {
		seenAt, ok := w.cache.Peek(id)
		if ok && nowMs-seenAt > ttlMs {
			w.cache.Remove(id)
		}
	}
	return w.cache.Len()
}

// Len reports the current number of tracked msgIds.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.Len()
}
