package events

import (
	"github.com/midagedev/dochi/internal/domain/entities"

	"github.com/kelindar/event"
)

// Event types
const (
	ToolCallEventType       uint32 = 1
	MessageHistoryEventType uint32 = 2
	StateChangeEventType    uint32 = 3
	StreamDeltaEventType    uint32 = 4
)

// ToolCallEventData wraps the ToolCallEvent for publishing
type ToolCallEventData struct {
	Event *entities.ToolCallEvent
}

// MessageHistoryEventData wraps message history change events
type MessageHistoryEventData struct {
	ConversationID string
	Messages       []*entities.Message
}

// StateChangeEventData announces session state transitions
type StateChangeEventData struct {
	ConversationID string
	State          entities.SessionState
}

// StreamDeltaEventData carries the full streaming text accumulated so
// far for an in-flight assistant message. Content is replaced
// wholesale on each update, never appended client-side.
type StreamDeltaEventData struct {
	ConversationID string
	MessageID      string
	Content        string
	Final          bool
}

func (t ToolCallEventData) Type() uint32 {
	return ToolCallEventType
}

func (m MessageHistoryEventData) Type() uint32 {
	return MessageHistoryEventType
}

func (s StateChangeEventData) Type() uint32 {
	return StateChangeEventType
}

func (s StreamDeltaEventData) Type() uint32 {
	return StreamDeltaEventType
}

// PublishToolCallEvent publishes a tool call event
func PublishToolCallEvent(toolEvent *entities.ToolCallEvent) {
	event.Emit(ToolCallEventData{Event: toolEvent})
}

// SubscribeToToolCallEvents subscribes to tool call events
func SubscribeToToolCallEvents(handler func(data ToolCallEventData)) func() {
	return event.On(handler)
}

// PublishMessageHistoryEvent publishes a message history change event
func PublishMessageHistoryEvent(conversationID string, messages []*entities.Message) {
	event.Emit(MessageHistoryEventData{ConversationID: conversationID, Messages: messages})
}

// SubscribeToMessageHistoryEvents subscribes to message history change events
func SubscribeToMessageHistoryEvents(handler func(data MessageHistoryEventData)) func() {
	return event.On(handler)
}

// PublishStateChangeEvent publishes a session state transition
func PublishStateChangeEvent(conversationID string, state entities.SessionState) {
	event.Emit(StateChangeEventData{ConversationID: conversationID, State: state})
}

// SubscribeToStateChangeEvents subscribes to session state transitions
func SubscribeToStateChangeEvents(handler func(data StateChangeEventData)) func() {
	return event.On(handler)
}

// PublishStreamDeltaEvent publishes the accumulated streaming text
func PublishStreamDeltaEvent(conversationID, messageID, content string, final bool) {
	event.Emit(StreamDeltaEventData{ConversationID: conversationID, MessageID: messageID, Content: content, Final: final})
}

// SubscribeToStreamDeltaEvents subscribes to streaming text updates
func SubscribeToStreamDeltaEvents(handler func(data StreamDeltaEventData)) func() {
	return event.On(handler)
}
