package services

import (
	"bytes"
	"context"
	"time"

	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/impl/export"

	"go.uber.org/zap"
)

type ExportService interface {
	ExportConversation(ctx context.Context, id, format string, opts export.Options) ([]byte, string, error)
}

type exportService struct {
	conversations ConversationService
	logger        *zap.Logger
}

func NewExportService(conversations ConversationService, logger *zap.Logger) *exportService {
	return &exportService{
		conversations: conversations,
		logger:        logger,
	}
}

// ExportConversation renders the conversation in the requested format
// and returns the payload with a derived file name.
func (s *exportService) ExportConversation(ctx context.Context, id, format string, opts export.Options) ([]byte, string, error) {
	if id == "" {
		return nil, "", errs.ValidationErrorf("conversation ID is required")
	}

	conversation, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		return nil, "", err
	}

	exporter, err := export.NewExporter(format)
	if err != nil {
		return nil, "", errs.ValidationErrorf("%v", err)
	}

	var buf bytes.Buffer
	if err := exporter.Export(conversation, opts, &buf); err != nil {
		s.logger.Error("Export failed", zap.String("conversation_id", id), zap.String("format", format), zap.Error(err))
		return nil, "", errs.InternalErrorf("failed to export conversation: %v", err)
	}

	return buf.Bytes(), export.Filename(conversation, exporter, time.Now()), nil
}

var _ ExportService = (*exportService)(nil)
