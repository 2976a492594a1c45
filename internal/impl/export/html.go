package export

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/midagedev/dochi/internal/domain/entities"

	"github.com/yuin/goldmark"
	gfmext "github.com/yuin/goldmark/extension"
)

// HTMLExporter renders the markdown export through goldmark with GFM
// extensions, producing a standalone page.
type HTMLExporter struct{}

func (e *HTMLExporter) Export(conversation *entities.Conversation, opts Options, w io.Writer) error {
	var md bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conversation, opts, &md); err != nil {
		return err
	}

	renderer := goldmark.New(goldmark.WithExtensions(gfmext.GFM))
	var body bytes.Buffer
	if err := renderer.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, _ = fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(conversation.DeriveTitle()))
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, _ = fmt.Fprint(w, "\n</body>\n</html>\n")

	return nil
}

func (e *HTMLExporter) Extension() string {
	return "html"
}
