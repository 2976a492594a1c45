package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
)

func sampleConversation() *entities.Conversation {
	conversation := entities.NewConversation("Trip Planning")
	conversation.Messages = append(conversation.Messages,
		*entities.NewMessage(entities.RoleSystem, "You are a travel assistant."),
		*entities.NewMessage(entities.RoleUser, "Plan a weekend in Lisbon"),
		*entities.NewMessage(entities.RoleAssistant, "Day one: Alfama and the castle."),
	)

	toolMessage := entities.NewMessage(entities.RoleTool, `{"temp": 24}`)
	toolMessage.ToolCallID = "call-weather-1"
	conversation.Messages = append(conversation.Messages, *toolMessage)

	return conversation
}

func TestNewExporter(t *testing.T) {
	for _, format := range []string{"md", "markdown", "json", "html"} {
		if _, err := NewExporter(format); err != nil {
			t.Errorf("Expected format %q to be supported, got %v", format, err)
		}
	}
	if _, err := NewExporter("pdf"); err == nil {
		t.Error("Expected unsupported format to be rejected")
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	conversation := sampleConversation()
	var buf bytes.Buffer

	exporter := &MarkdownExporter{}
	if err := exporter.Export(conversation, Options{}, &buf); err != nil {
		t.Fatalf("Failed to export markdown: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "# Trip Planning\n") {
		t.Errorf("Expected title heading, got %q", out[:50])
	}
	if !strings.Contains(out, "Plan a weekend in Lisbon") {
		t.Error("Expected user message in output")
	}
	if strings.Contains(out, "travel assistant") {
		t.Error("Expected system message to be excluded by default")
	}
	if strings.Contains(out, "call-weather-1") || strings.Contains(out, `{"temp": 24}`) {
		t.Error("Expected tool message to be excluded by default")
	}
	if !strings.Contains(out, "**Messages:** 2") {
		t.Errorf("Expected filtered message count of 2, got output:\n%s", out)
	}
}

func TestMarkdownExporter_IncludeOptions(t *testing.T) {
	conversation := sampleConversation()
	var buf bytes.Buffer

	exporter := &MarkdownExporter{}
	opts := Options{IncludeSystem: true, IncludeTool: true}
	if err := exporter.Export(conversation, opts, &buf); err != nil {
		t.Fatalf("Failed to export markdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "travel assistant") {
		t.Error("Expected system message when IncludeSystem is set")
	}
	if !strings.Contains(out, `{"temp": 24}`) {
		t.Error("Expected tool message when IncludeTool is set")
	}
}

func TestMarkdownExporter_Metadata(t *testing.T) {
	conversation := sampleConversation()
	conversation.Messages[2].AddUsage("openai", "gpt-4o", 1200, 300, time.Second)
	conversation.UpdateUsage()

	var buf bytes.Buffer
	exporter := &MarkdownExporter{}
	if err := exporter.Export(conversation, Options{IncludeMetadata: true}, &buf); err != nil {
		t.Fatalf("Failed to export markdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "**Tokens:** 1,500") {
		t.Errorf("Expected grouped token total in header, got:\n%s", out)
	}
	if !strings.Contains(out, "_gpt-4o, 1,500 tokens_") {
		t.Errorf("Expected per-message usage line, got:\n%s", out)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	in := "some **bold** text\n```\n**verbatim**\n```\nafter __emphasis__"
	out := escapeMarkdown(in)

	if !strings.Contains(out, `\*\*bold\*\*`) {
		t.Errorf("Expected bold markers escaped outside code blocks, got %q", out)
	}
	if !strings.Contains(out, "**verbatim**") {
		t.Errorf("Expected code block content untouched, got %q", out)
	}
	if !strings.Contains(out, `\_\_emphasis\_\_`) {
		t.Errorf("Expected underscores escaped outside code blocks, got %q", out)
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	conversation := sampleConversation()
	var buf bytes.Buffer

	exporter := &JSONExporter{}
	opts := Options{IncludeSystem: true, IncludeTool: true}
	if err := exporter.Export(conversation, opts, &buf); err != nil {
		t.Fatalf("Failed to export JSON: %v", err)
	}

	doc, err := ParseDocument(&buf)
	if err != nil {
		t.Fatalf("Failed to parse exported JSON: %v", err)
	}

	if doc.ID != conversation.ID {
		t.Errorf("Expected ID %s, got %s", conversation.ID, doc.ID)
	}
	if doc.Title != "Trip Planning" {
		t.Errorf("Expected title 'Trip Planning', got %q", doc.Title)
	}
	if len(doc.Messages) != len(conversation.Messages) {
		t.Fatalf("Expected %d messages, got %d", len(conversation.Messages), len(doc.Messages))
	}
	for i, msg := range conversation.Messages {
		if doc.Messages[i].Role != msg.Role {
			t.Errorf("Expected role %s at index %d, got %s", msg.Role, i, doc.Messages[i].Role)
		}
		if doc.Messages[i].Content != msg.Content {
			t.Errorf("Expected content %q at index %d, got %q", msg.Content, i, doc.Messages[i].Content)
		}
	}
	if doc.Messages[3].ToolCallID != "call-weather-1" {
		t.Errorf("Expected tool call ID to survive the round trip, got %q", doc.Messages[3].ToolCallID)
	}
}

func TestJSONExporter_MetadataStripped(t *testing.T) {
	conversation := sampleConversation()
	conversation.Messages[2].AddUsage("openai", "gpt-4o", 10, 5, time.Second)

	var buf bytes.Buffer
	exporter := &JSONExporter{}
	if err := exporter.Export(conversation, Options{}, &buf); err != nil {
		t.Fatalf("Failed to export JSON: %v", err)
	}

	doc, err := ParseDocument(&buf)
	if err != nil {
		t.Fatalf("Failed to parse exported JSON: %v", err)
	}
	for _, msg := range doc.Messages {
		if msg.Usage != nil {
			t.Error("Expected usage to be omitted without IncludeMetadata")
		}
	}
}

func TestHTMLExporter_Export(t *testing.T) {
	conversation := sampleConversation()
	var buf bytes.Buffer

	exporter := &HTMLExporter{}
	if err := exporter.Export(conversation, Options{}, &buf); err != nil {
		t.Fatalf("Failed to export HTML: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Trip Planning</title>") {
		t.Error("Expected document title in output")
	}
	if !strings.Contains(out, "<h1") {
		t.Error("Expected rendered markdown heading")
	}
	if !strings.Contains(out, "Plan a weekend in Lisbon") {
		t.Error("Expected user message in rendered output")
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 25, 0, 0, time.UTC)

	conversation := entities.NewConversation("Trip Planning: Lisbon!")
	name := Filename(conversation, &MarkdownExporter{}, now)
	if name != "trip-planning-lisbon-20260829-142500.md" {
		t.Errorf("Expected sanitized filename, got %q", name)
	}

	untitled := entities.NewConversation("")
	name = Filename(untitled, &JSONExporter{}, now)
	if name != "new-conversation-20260829-142500.json" {
		t.Errorf("Expected derived fallback filename, got %q", name)
	}

	symbols := entities.NewConversation("!!!")
	name = Filename(symbols, &JSONExporter{}, now)
	if name != "conversation-20260829-142500.json" {
		t.Errorf("Expected generic filename for unusable titles, got %q", name)
	}
}
