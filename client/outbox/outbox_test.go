package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireline-edge/fireline/internal/domain/model"
)

func newSenderForTest() (*Sender, *[][]byte) {
	sent := &[][]byte{}
	open := true
	s := NewSender(func(frame []byte) error {
		*sent = append(*sent, frame)
		return nil
	}, func() bool { return open }, 1500*time.Millisecond, nil)
	return s, sent
}

func TestPriorityForOrdering(t *testing.T) {
	assert.Equal(t, PriorityUrgent, PriorityFor(model.KindSosRaise))
	assert.Equal(t, PriorityUrgent, PriorityFor(model.KindSosClear))
	assert.Equal(t, PriorityLocation, PriorityFor(model.KindLocationUpdate))
	assert.Equal(t, PriorityChat, PriorityFor(model.KindChatSend))
	assert.Equal(t, PriorityOther, PriorityFor(model.Kind("SOMETHING_ELSE")))
}

func TestTickDrainsInPriorityOrder(t *testing.T) {
	s, sent := newSenderForTest()
	s.Enqueue(model.KindChatSend, map[string]any{"text": "hi"})
	s.Enqueue(model.KindLocationUpdate, map[string]any{"lat": 1.0, "lng": 2.0})
	s.Enqueue(model.KindSosRaise, map[string]any{"note": "trapped"})

	for i := 0; i < 3; i++ {
		s.Tick(int64(i))
	}

	require.Len(t, *sent, 3)
	var kinds []string
	for _, frame := range *sent {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(frame, &decoded))
		kinds = append(kinds, decoded["type"].(string))
	}
	assert.Equal(t, []string{"SOS_RAISE", "LOCATION_UPDATE", "CHAT_SEND"}, kinds)
}

func TestTickResendsAfterTimeout(t *testing.T) {
	s, sent := newSenderForTest()
	s.Enqueue(model.KindChatSend, map[string]any{"text": "hi"})

	s.Tick(0)
	require.Len(t, *sent, 1)

	// Not yet past resendAfterMs: no-op.
	s.Tick(1000)
	assert.Len(t, *sent, 1)

	// Past resendAfterMs: resend.
	s.Tick(2000)
	assert.Len(t, *sent, 2)
}

func TestAckRemovesFromOutboxAndPending(t *testing.T) {
	s, sent := newSenderForTest()
	msgID := s.Enqueue(model.KindChatSend, map[string]any{"text": "hi"})
	s.Tick(0)
	require.Len(t, *sent, 1)
	assert.Equal(t, 1, s.PendingLen())

	s.Ack(msgID)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.PendingLen())

	s.Tick(5000)
	assert.Len(t, *sent, 1, "acked item must never be resent")
}

func TestTickNoOpWhenClosed(t *testing.T) {
	sent := &[][]byte{}
	s := NewSender(func(frame []byte) error {
		*sent = append(*sent, frame)
		return nil
	}, func() bool { return false }, 0, nil)
	s.Enqueue(model.KindChatSend, map[string]any{"text": "hi"})

	s.Tick(0)
	assert.Empty(t, *sent)
}
