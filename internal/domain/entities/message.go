package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

type ToolCall struct {
	ID       string `json:"id" bson:"id"`
	Type     string `json:"type" bson:"type"`
	Function struct {
		Name      string `json:"name" bson:"name"`
		Arguments string `json:"arguments" bson:"arguments"`
	} `json:"function" bson:"function"`
}

// ImageAttachment carries either an inline base64 payload or a URL,
// never both.
type ImageAttachment struct {
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
	Data     string `json:"data,omitempty" bson:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty" bson:"mime_type,omitempty"`
}

type Usage struct {
	Provider         string  `json:"provider,omitempty" bson:"provider,omitempty"`
	Model            string  `json:"model,omitempty" bson:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens" bson:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens" bson:"total_tokens"`
	LatencyMS        int64   `json:"latency_ms,omitempty" bson:"latency_ms,omitempty"`
	Cost             float64 `json:"cost,omitempty" bson:"cost,omitempty"`
	Fallback         bool    `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

type Message struct {
	ID          string                `json:"id" bson:"id"`
	Role        string                `json:"role" bson:"role"`
	Content     string                `json:"content" bson:"content"`
	ToolCalls   []ToolCall            `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolCallID  string                `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
	Images      []ImageAttachment     `json:"images,omitempty" bson:"images,omitempty"`
	ToolRecords []ToolExecutionRecord `json:"tool_records,omitempty" bson:"tool_records,omitempty"`
	Usage       *Usage                `json:"usage,omitempty" bson:"usage,omitempty"`
	Timestamp   time.Time             `json:"timestamp" bson:"timestamp"`
}

func NewMessage(role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// AddUsage attaches provider metadata to a completed message.
func (m *Message) AddUsage(provider, model string, promptTokens, completionTokens int, latency time.Duration) {
	m.Usage = &Usage{
		Provider:         provider,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		LatencyMS:        latency.Milliseconds(),
	}
}

// IsUnlabeledResult reports whether a tool message arrived without a
// link back to the tool call that produced it. Such results are kept
// but rendered without attribution.
func (m *Message) IsUnlabeledResult() bool {
	return m.Role == RoleTool && m.ToolCallID == ""
}
