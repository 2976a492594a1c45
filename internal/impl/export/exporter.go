package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
)

// Options controls which message classes and metadata are written.
type Options struct {
	IncludeSystem   bool
	IncludeTool     bool
	IncludeMetadata bool
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(conversation *entities.Conversation, opts Options, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "html":
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, html)", format)
	}
}

// filtered returns the messages selected by opts, in original order.
func filtered(conversation *entities.Conversation, opts Options) []entities.Message {
	messages := make([]entities.Message, 0, len(conversation.Messages))
	for _, msg := range conversation.Messages {
		switch msg.Role {
		case entities.RoleSystem:
			if !opts.IncludeSystem {
				continue
			}
		case entities.RoleTool:
			if !opts.IncludeTool {
				continue
			}
		}
		messages = append(messages, msg)
	}
	return messages
}

// Filename derives an export file name from the conversation title and
// timestamp, e.g. "trip-planning-20260829-142500.md".
func Filename(conversation *entities.Conversation, exporter Exporter, now time.Time) string {
	title := conversation.DeriveTitle()
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "conversation"
	}
	return fmt.Sprintf("%s-%s.%s", slug, now.Format("20060102-150405"), exporter.Extension())
}
