// Package outbox implements the client reliable sender (C5): a
// priority-ordered outbox, an in-flight pending table, retry-on-timeout,
// and ACK-driven removal (spec §4.5). It is the client-side analogue of
// the teacher's registry.Cell/registry.connect actors: a private flush
// loop driven by a single ticker on its own goroutine, with the queue
// itself guarded by a mutex so other goroutines can enqueue and ack.
package outbox

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fireline-edge/fireline/internal/domain/codec"
	"github.com/fireline-edge/fireline/internal/domain/model"
)

// Priority values, lower is more urgent (spec §4.5).
const (
	PriorityUrgent   = 0 // SOS_RAISE, SOS_CLEAR
	PriorityLocation = 2
	PriorityChat     = 3
	PriorityOther    = 5
)

// PriorityFor returns the outbox priority for a message kind.
func PriorityFor(kind model.Kind) int {
	switch kind {
	case model.KindSosRaise, model.KindSosClear:
		return PriorityUrgent
	case model.KindLocationUpdate:
		return PriorityLocation
	case model.KindChatSend:
		return PriorityChat
	default:
		return PriorityOther
	}
}

// Item is one queued intent, created on user action and removed on a
// matching server ACK_MSG.
type Item struct {
	MsgID        string
	Type         model.Kind
	Payload      map[string]any
	Priority     int
	Attempts     int
	LastSentAtMs int64
	seq          int64
}

// Sender owns the outbox and pending table. All of Enqueue/Ack/Tick may be
// called from different goroutines (a CLI command enqueuing a user action
// while the flush loop runs on its own ticker), so unlike the single-
// threaded reference runtime this port guards the shared slices with a
// mutex instead of relying on one cooperative event loop.
type Sender struct {
	mu      sync.Mutex
	outbox  []*Item
	pending map[string]*Item
	seq     int64

	send          func(frame []byte) error
	isOpen        func() bool
	resendAfterMs int64
	logger        *slog.Logger
}

// NewSender wires the outbox to a transport's send/open primitives.
func NewSender(send func([]byte) error, isOpen func() bool, resendAfter time.Duration, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		pending:       make(map[string]*Item),
		send:          send,
		isOpen:        isOpen,
		resendAfterMs: resendAfter.Milliseconds(),
		logger:        logger,
	}
}

// Rebind points the sender at a new transport's send/open primitives,
// leaving the outbox and pending table untouched. This is how queued and
// in-flight items survive a reconnect (spec §4.5/§5): a new connection
// simply resumes flushing the same queue, retrying anything still
// unacked after resendAfter elapses on the new transport.
func (s *Sender) Rebind(send func([]byte) error, isOpen func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
	s.isOpen = isOpen
}

// Enqueue adds a fresh intent to the outbox and returns its generated
// msgId. Each call produces a distinct msgId (spec §4.5: "Enqueue is
// idempotent only with respect to distinct calls").
func (s *Sender) Enqueue(kind model.Kind, fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgID := uuid.NewString()
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["msgId"] = msgID

	item := &Item{
		MsgID:    msgID,
		Type:     kind,
		Payload:  payload,
		Priority: PriorityFor(kind),
		seq:      s.seq,
	}
	s.seq++
	s.insertSorted(item)
	return msgID
}

// insertSorted keeps s.outbox ordered by (priority asc, insertion order).
func (s *Sender) insertSorted(item *Item) {
	idx := sort.Search(len(s.outbox), func(i int) bool {
		o := s.outbox[i]
		if o.Priority != item.Priority {
			return o.Priority > item.Priority
		}
		return o.seq > item.seq
	})
	s.outbox = append(s.outbox, nil)
	copy(s.outbox[idx+1:], s.outbox[idx:])
	s.outbox[idx] = item
}

// Ack removes msgId from both the pending table and the outbox, retiring
// the item (spec §4.5: "On ACK_MSG receipt: remove from pending and from
// the outbox").
func (s *Sender) Ack(msgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, msgID)
	for i, item := range s.outbox {
		if item.MsgID == msgID {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			break
		}
	}
}

// Tick runs one flush pass (spec §4.5 algorithm). It is exported so tests
// can drive it deterministically instead of waiting on a real ticker.
func (s *Sender) Tick(nowMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen() {
		return
	}

	for _, item := range s.outbox {
		if _, inFlight := s.pending[item.MsgID]; !inFlight {
			s.dispatch(item, nowMs)
			return
		}
	}

	for _, item := range s.outbox {
		p, inFlight := s.pending[item.MsgID]
		if inFlight && nowMs-p.LastSentAtMs > s.resendAfterMs {
			s.dispatch(item, nowMs)
			return
		}
	}
}

func (s *Sender) dispatch(item *Item, nowMs int64) {
	data, err := codec.Encode(model.Frame(item.Type, item.Payload))
	if err != nil {
		s.logger.Error("outbox: failed to encode item", "msg_id", item.MsgID, "error", err)
		return
	}
	if err := s.send(data); err != nil {
		s.logger.Warn("outbox: send failed, will retry", "msg_id", item.MsgID, "error", err)
	}
	item.LastSentAtMs = nowMs
	item.Attempts++
	s.pending[item.MsgID] = item
}

// Run drives Tick on a ticker until ctx is cancelled. Disconnects do not
// cancel in-flight items; they simply suspend flushing, since Tick is a
// no-op whenever isOpen reports false (spec §4.5/§5).
func (s *Sender) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(time.Now().UnixMilli())
		}
	}
}

// Len reports the outbox size (queued + in-flight).
func (s *Sender) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

// PendingLen reports how many items are currently in flight.
func (s *Sender) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
