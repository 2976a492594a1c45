package entities

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the interaction state exposed to consumers of the
// session controller.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateListening     SessionState = "listening"
	StateProcessing    SessionState = "processing"
	StateExecutingTool SessionState = "executingTool"
	StateSpeaking      SessionState = "speaking"
)

// ToolCallEvent represents an event when a tool is called
type ToolCallEvent struct {
	ID             string            `json:"id" bson:"_id"`
	ConversationID string            `json:"conversation_id" bson:"conversation_id"`
	ToolCallID     string            `json:"tool_call_id" bson:"tool_call_id"`
	ToolName       string            `json:"tool_name" bson:"tool_name"`
	Arguments      string            `json:"arguments" bson:"arguments"`
	Result         string            `json:"result" bson:"result"`
	Error          string            `json:"error,omitempty" bson:"error,omitempty"`
	Timestamp      time.Time         `json:"timestamp" bson:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewToolCallEvent creates a new tool call event
func NewToolCallEvent(conversationID, toolCallID, toolName, arguments, result, errorMsg string, metadata map[string]string) *ToolCallEvent {
	return &ToolCallEvent{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		ToolCallID:     toolCallID,
		ToolName:       toolName,
		Arguments:      arguments,
		Result:         result,
		Error:          errorMsg,
		Timestamp:      time.Now(),
		Metadata:       metadata,
	}
}
