package entities

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewMessage(t *testing.T) {
	message := NewMessage(RoleUser, "hello there")

	if message.ID == "" {
		t.Error("Expected message ID to be set")
	}
	if message.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, message.Role)
	}
	if message.Content != "hello there" {
		t.Errorf("Expected content 'hello there', got %s", message.Content)
	}
	if message.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestMessage_AddUsage(t *testing.T) {
	message := NewMessage(RoleAssistant, "response")
	message.AddUsage("openai", "gpt-4o", 100, 25, 1500)

	if message.Usage == nil {
		t.Fatal("Expected usage to be set")
	}
	if message.Usage.PromptTokens != 100 {
		t.Errorf("Expected 100 prompt tokens, got %d", message.Usage.PromptTokens)
	}
	if message.Usage.CompletionTokens != 25 {
		t.Errorf("Expected 25 completion tokens, got %d", message.Usage.CompletionTokens)
	}
	if message.Usage.TotalTokens != 125 {
		t.Errorf("Expected 125 total tokens, got %d", message.Usage.TotalTokens)
	}
	if message.Usage.Model != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %s", message.Usage.Model)
	}
}

func TestMessage_IsUnlabeledResult(t *testing.T) {
	unlabeled := NewMessage(RoleTool, "result")
	if !unlabeled.IsUnlabeledResult() {
		t.Error("Expected tool message without call ID to be unlabeled")
	}

	labeled := NewMessage(RoleTool, "result")
	labeled.ToolCallID = "call-1"
	if labeled.IsUnlabeledResult() {
		t.Error("Expected tool message with call ID to be labeled")
	}

	user := NewMessage(RoleUser, "hello")
	if user.IsUnlabeledResult() {
		t.Error("Expected user message to never be an unlabeled result")
	}
}

func TestNewConversation(t *testing.T) {
	conversation := NewConversation("My Chat")

	if conversation.ID == "" {
		t.Error("Expected conversation ID to be set")
	}
	if conversation.Title != "My Chat" {
		t.Errorf("Expected title 'My Chat', got %s", conversation.Title)
	}
	if conversation.Source != SourceLocal {
		t.Errorf("Expected source %s, got %s", SourceLocal, conversation.Source)
	}
	if !conversation.Active {
		t.Error("Expected new conversation to be active")
	}
	if len(conversation.Messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(conversation.Messages))
	}
}

func TestConversation_ReadOnly(t *testing.T) {
	local := NewConversation("local")
	if local.ReadOnly() {
		t.Error("Expected local conversation to be writable")
	}

	external := NewConversation("imported")
	external.Source = SourceExternal
	if !external.ReadOnly() {
		t.Error("Expected external conversation to be read-only")
	}
}

func TestConversation_UpdateUsage(t *testing.T) {
	conversation := NewConversation("usage")

	first := NewMessage(RoleAssistant, "one")
	first.AddUsage("openai", "gpt-4o", 10, 5, 100)
	first.Usage.Cost = 0.01

	second := NewMessage(RoleAssistant, "two")
	second.AddUsage("openai", "gpt-4o", 20, 10, 200)
	second.Usage.Cost = 0.02

	conversation.Messages = append(conversation.Messages, *first, *second)
	conversation.UpdateUsage()

	if conversation.Usage.TotalPromptTokens != 30 {
		t.Errorf("Expected 30 prompt tokens, got %d", conversation.Usage.TotalPromptTokens)
	}
	if conversation.Usage.TotalCompletionTokens != 15 {
		t.Errorf("Expected 15 completion tokens, got %d", conversation.Usage.TotalCompletionTokens)
	}
	if conversation.Usage.TotalTokens != 45 {
		t.Errorf("Expected 45 total tokens, got %d", conversation.Usage.TotalTokens)
	}
	if conversation.Usage.TotalCost != 0.03 {
		t.Errorf("Expected total cost 0.03, got %f", conversation.Usage.TotalCost)
	}
}

func TestConversation_DeriveTitle(t *testing.T) {
	conversation := NewConversation("")
	conversation.Messages = append(conversation.Messages,
		*NewMessage(RoleSystem, "You are helpful."),
		*NewMessage(RoleUser, "How do I tie a bowline knot?\nStep by step please."),
	)

	title := conversation.DeriveTitle()
	if title != "How do I tie a bowline knot?" {
		t.Errorf("Expected title from first user line, got %q", title)
	}
}

func TestConversation_DeriveTitleTruncates(t *testing.T) {
	conversation := NewConversation("")
	long := strings.Repeat("word ", 30)
	conversation.Messages = append(conversation.Messages, *NewMessage(RoleUser, long))

	title := conversation.DeriveTitle()
	if len(title) > 48 {
		t.Errorf("Expected title of at most 48 characters, got %d", len(title))
	}
	if strings.HasSuffix(title, " ") {
		t.Errorf("Expected title to end at a word break, got %q", title)
	}
}

func TestConversation_DeriveTitleKeepsRunesIntact(t *testing.T) {
	conversation := NewConversation("")
	long := "a" + strings.Repeat("안녕하세요", 10)
	conversation.Messages = append(conversation.Messages, *NewMessage(RoleUser, long))

	title := conversation.DeriveTitle()
	if !utf8.ValidString(title) {
		t.Errorf("Expected valid UTF-8 title, got %q", title)
	}
	if len(title) > 48 {
		t.Errorf("Expected title of at most 48 bytes, got %d", len(title))
	}
	if !strings.HasPrefix(long, title) {
		t.Errorf("Expected title to be a prefix of the message, got %q", title)
	}
}

func TestConversation_DeriveTitleFallback(t *testing.T) {
	conversation := NewConversation("")
	conversation.Messages = append(conversation.Messages, *NewMessage(RoleAssistant, "Hello!"))

	if title := conversation.DeriveTitle(); title != "New Conversation" {
		t.Errorf("Expected fallback title, got %q", title)
	}
}

func TestConversation_DeriveTitleKeepsExisting(t *testing.T) {
	conversation := NewConversation("Fixed Title")
	conversation.Messages = append(conversation.Messages, *NewMessage(RoleUser, "something else"))

	if title := conversation.DeriveTitle(); title != "Fixed Title" {
		t.Errorf("Expected existing title to win, got %q", title)
	}
}

func TestNewToolExecutionRecord(t *testing.T) {
	record := NewToolExecutionRecord("fetch", "https://example.com", "200 OK", true, 250*time.Millisecond)

	if record.Name != "fetch" {
		t.Errorf("Expected name fetch, got %s", record.Name)
	}
	if !record.Success {
		t.Error("Expected record to be marked successful")
	}
	if record.Duration != 250*time.Millisecond {
		t.Errorf("Expected duration 250ms, got %s", record.Duration)
	}
}

func TestNewToolExecutionRecordTruncatesSummaries(t *testing.T) {
	long := strings.Repeat("x", 500)
	record := NewToolExecutionRecord("fetch", long, long, false, 0)

	if len(record.InputSummary) > 203 {
		t.Errorf("Expected input summary to be truncated, got %d characters", len(record.InputSummary))
	}
	if len(record.ResultSummary) > 203 {
		t.Errorf("Expected result summary to be truncated, got %d characters", len(record.ResultSummary))
	}
}
