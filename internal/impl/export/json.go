package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
)

// Document is the stable JSON export shape. Parsing an exported
// document yields the same ordered roles and content.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []DocumentMessage `json:"messages"`
}

type DocumentMessage struct {
	ID          string                         `json:"id"`
	Role        string                         `json:"role"`
	Content     string                         `json:"content"`
	ToolCallID  string                         `json:"tool_call_id,omitempty"`
	Timestamp   time.Time                      `json:"timestamp"`
	Usage       *entities.Usage                `json:"usage,omitempty"`
	ToolRecords []entities.ToolExecutionRecord `json:"tool_records,omitempty"`
}

// JSONExporter exports conversations in JSON format (pretty-printed)
type JSONExporter struct{}

// Export exports a conversation to JSON format
func (e *JSONExporter) Export(conversation *entities.Conversation, opts Options, w io.Writer) error {
	doc := Document{
		ID:        conversation.ID,
		Title:     conversation.DeriveTitle(),
		Source:    string(conversation.Source),
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
		Messages:  make([]DocumentMessage, 0, len(conversation.Messages)),
	}

	for _, msg := range filtered(conversation, opts) {
		docMsg := DocumentMessage{
			ID:         msg.ID,
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Timestamp:  msg.Timestamp,
		}
		if opts.IncludeMetadata {
			docMsg.Usage = msg.Usage
			docMsg.ToolRecords = msg.ToolRecords
		}
		doc.Messages = append(doc.Messages, docMsg)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

// ParseDocument reads back a JSON export.
func ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
