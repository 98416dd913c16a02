package testutil

import (
	"sync"
	"testing"
	"time"
)

// Message is one engine output captured by RecordingBroadcaster. ClientID is
// empty for broadcasts and set for direct sends.
type Message struct {
	ClientID string
	Type     string
	Payload  interface{}
}

// RecordingBroadcaster is a game.Broadcaster that records every message so
// tests can assert on engine output without a WebSocket hub.
type RecordingBroadcaster struct {
	mu   sync.Mutex
	msgs []Message
}

// NewRecordingBroadcaster creates an empty recorder.
func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

// Broadcast records a fan-out message.
func (b *RecordingBroadcaster) Broadcast(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Type: msgType, Payload: payload})
}

// SendTo records a direct message.
func (b *RecordingBroadcaster) SendTo(clientID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{ClientID: clientID, Type: msgType, Payload: payload})
}

// Messages returns a copy of everything recorded so far.
func (b *RecordingBroadcaster) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// OfType returns all recorded messages with the given type.
func (b *RecordingBroadcaster) OfType(msgType string) []Message {
	var out []Message
	for _, m := range b.Messages() {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many messages of the given type were recorded.
func (b *RecordingBroadcaster) Count(msgType string) int {
	return len(b.OfType(msgType))
}

// Last returns the most recent message of the given type.
func (b *RecordingBroadcaster) Last(msgType string) (Message, bool) {
	msgs := b.OfType(msgType)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// WaitFor polls until a message of the given type shows up or the test fails.
// Needed for output produced by the engine's timer goroutine.
func (b *RecordingBroadcaster) WaitFor(t *testing.T, msgType string) Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := b.Last(msgType); ok {
			return msg
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q message", msgType)
	return Message{}
}

// Reset forgets everything recorded so far.
func (b *RecordingBroadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = nil
}
