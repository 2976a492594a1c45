package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/impl/export"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExportService_ExportConversation(t *testing.T) {
	conversations := newMemoryConversationService()
	ctx := context.Background()

	conversation, err := conversations.CreateConversation(ctx, "Export Me")
	assert.NoError(t, err)
	assert.NoError(t, conversations.AppendMessage(ctx, conversation.ID, entities.NewMessage(entities.RoleUser, "hello")))
	assert.NoError(t, conversations.AppendMessage(ctx, conversation.ID, entities.NewMessage(entities.RoleAssistant, "hi there")))

	service := NewExportService(conversations, zap.NewNop())

	t.Run("markdown", func(t *testing.T) {
		data, filename, err := service.ExportConversation(ctx, conversation.ID, "md", export.Options{})

		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "# Export Me"))
		assert.True(t, strings.HasPrefix(filename, "export-me-"))
		assert.True(t, strings.HasSuffix(filename, ".md"))
	})

	t.Run("json round trip", func(t *testing.T) {
		data, filename, err := service.ExportConversation(ctx, conversation.ID, "json", export.Options{})

		assert.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".json"))

		doc, err := export.ParseDocument(bytes.NewReader(data))
		assert.NoError(t, err)
		assert.Equal(t, conversation.ID, doc.ID)
		assert.Len(t, doc.Messages, 2)
		assert.Equal(t, "hello", doc.Messages[0].Content)
		assert.Equal(t, "hi there", doc.Messages[1].Content)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := service.ExportConversation(ctx, conversation.ID, "docx", export.Options{})

		assert.IsType(t, &errs.ValidationError{}, err)
	})

	t.Run("missing conversation", func(t *testing.T) {
		_, _, err := service.ExportConversation(ctx, "11111111-2222-3333-4444-555555555555", "md", export.Options{})

		assert.IsType(t, &errs.NotFoundError{}, err)
	})

	t.Run("empty id", func(t *testing.T) {
		_, _, err := service.ExportConversation(ctx, "", "md", export.Options{})

		assert.IsType(t, &errs.ValidationError{}, err)
	})
}
