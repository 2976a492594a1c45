package services

import (
	"context"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/events"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"go.uber.org/zap"
)

type ConversationService interface {
	ListConversations(ctx context.Context) ([]*entities.Conversation, error)
	GetConversation(ctx context.Context, id string) (*entities.Conversation, error)
	GetActiveConversation(ctx context.Context) (*entities.Conversation, error)
	SetActiveConversation(ctx context.Context, id string) error
	CreateConversation(ctx context.Context, title string) (*entities.Conversation, error)
	AppendMessage(ctx context.Context, id string, message *entities.Message) error
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
}

type conversationService struct {
	repo   interfaces.ConversationRepository
	logger *zap.Logger
}

func NewConversationService(repo interfaces.ConversationRepository, logger *zap.Logger) *conversationService {
	return &conversationService{
		repo:   repo,
		logger: logger,
	}
}

func (s *conversationService) ListConversations(ctx context.Context) ([]*entities.Conversation, error) {
	conversations, err := s.repo.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	return conversations, nil
}

func (s *conversationService) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	if id == "" {
		return nil, errs.ValidationErrorf("conversation ID is required")
	}

	conversation, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

func (s *conversationService) CreateConversation(ctx context.Context, title string) (*entities.Conversation, error) {
	conversation := entities.NewConversation(title)
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, err
	}

	if err := s.setOtherConversationsInactive(ctx, conversation.ID); err != nil {
		s.logger.Warn("Failed to deactivate other conversations", zap.Error(err))
	}

	return conversation, nil
}

func (s *conversationService) setOtherConversationsInactive(ctx context.Context, activeID string) error {
	conversations, err := s.repo.ListConversations(ctx)
	if err != nil {
		return err
	}
	for _, c := range conversations {
		if c.ID != activeID && c.Active {
			c.Active = false
			if err := s.repo.UpdateConversation(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *conversationService) GetActiveConversation(ctx context.Context) (*entities.Conversation, error) {
	conversations, err := s.repo.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	for _, conversation := range conversations {
		if conversation.Active {
			return conversation, nil
		}
	}

	return nil, errs.NotFoundErrorf("no active conversation found")
}

func (s *conversationService) SetActiveConversation(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrorf("conversation ID is required")
	}

	conversation, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.setOtherConversationsInactive(ctx, conversation.ID); err != nil {
		return err
	}
	conversation.Active = true
	if err := s.repo.UpdateConversation(ctx, conversation); err != nil {
		s.logger.Error("Failed to update conversation status", zap.String("conversation_id", conversation.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *conversationService) AppendMessage(ctx context.Context, id string, message *entities.Message) error {
	if id == "" {
		return errs.ValidationErrorf("conversation ID is required")
	}
	if message == nil || message.Role == "" {
		return errs.ValidationErrorf("message role is required")
	}

	if err := s.repo.AppendMessage(ctx, id, message); err != nil {
		return err
	}

	// Derive a title once the first user message lands.
	conversation, err := s.repo.GetConversation(ctx, id)
	if err == nil && conversation.Title == "" {
		if derived := conversation.DeriveTitle(); derived != "New Conversation" {
			if err := s.repo.RenameConversation(ctx, id, derived); err != nil {
				s.logger.Warn("Failed to set derived title", zap.String("conversation_id", id), zap.Error(err))
			}
		}
	}

	events.PublishMessageHistoryEvent(id, []*entities.Message{message})

	return nil
}

func (s *conversationService) RenameConversation(ctx context.Context, id, title string) error {
	if id == "" {
		return errs.ValidationErrorf("conversation ID is required")
	}
	if title == "" {
		return errs.ValidationErrorf("conversation title is required")
	}

	return s.repo.RenameConversation(ctx, id, title)
}

func (s *conversationService) DeleteConversation(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrorf("conversation ID is required")
	}

	return s.repo.DeleteConversation(ctx, id)
}

var _ ConversationService = (*conversationService)(nil)
