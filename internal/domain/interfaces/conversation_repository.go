package interfaces

import (
	"context"

	"github.com/midagedev/dochi/internal/domain/entities"
)

type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *entities.Conversation) error
	UpdateConversation(ctx context.Context, conversation *entities.Conversation) error
	AppendMessage(ctx context.Context, id string, message *entities.Message) error
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
	GetConversation(ctx context.Context, id string) (*entities.Conversation, error)
	ListConversations(ctx context.Context) ([]*entities.Conversation, error)
}
