package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/midagedev/dochi/internal/domain/entities"

	"github.com/dustin/go-humanize"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conversation *entities.Conversation, opts Options, w io.Writer) error {
	messages := filtered(conversation, opts)

	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", conversation.DeriveTitle())
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", conversation.Source)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", conversation.CreatedAt.Format("2006-01-02 15:04"))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(messages))

	if opts.IncludeMetadata && conversation.Usage != nil && conversation.Usage.TotalTokens > 0 {
		_, _ = fmt.Fprintf(w, "**Tokens:** %s\n\n", humanize.Comma(int64(conversation.Usage.TotalTokens)))
	}

	_, _ = fmt.Fprintf(w, "---\n\n")

	// Messages
	for i, msg := range messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format("2006-01-02 15:04:05"))
		}

		content := escapeMarkdown(msg.Content)
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, content)

		if opts.IncludeMetadata {
			if msg.Usage != nil && msg.Usage.TotalTokens > 0 {
				_, _ = fmt.Fprintf(w, "_%s, %s tokens_\n\n", msg.Usage.Model, humanize.Comma(int64(msg.Usage.TotalTokens)))
			}
			for _, record := range msg.ToolRecords {
				status := "ok"
				if !record.Success {
					status = "error"
				}
				_, _ = fmt.Fprintf(w, "_tool %s (%s, %s): %s_\n\n", record.Name, status, record.Duration, record.ResultSummary)
			}
		}

		if i < len(messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown special characters outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
