package websocket

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStreamHub_StopShutsDownFanOut(t *testing.T) {
	hub := NewStreamHub(zap.NewNop())
	hub.Start()

	hub.Stop()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("Expected Stop to release the fan-out loop")
	}

	// A second Stop must not panic on the closed channel.
	hub.Stop()
}

func TestStreamHub_RegisterUnregister(t *testing.T) {
	hub := NewStreamHub(zap.NewNop())
	hub.Start()
	defer hub.Stop()

	hub.register <- registration{ConversationID: "conv-1", conn: nil}
	hub.unregister <- registration{ConversationID: "conv-1", conn: nil}

	// Broadcasting to a conversation with no subscribers is a no-op.
	hub.broadcast <- Envelope{Kind: "state", ConversationID: "conv-1", Payload: "idle"}
}
