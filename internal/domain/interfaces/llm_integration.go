package interfaces

import (
	"context"

	"github.com/midagedev/dochi/internal/domain/entities"
)

// MessageCallback receives messages as they become available so callers
// can persist partial progress before the full exchange completes.
type MessageCallback func(messages []*entities.Message) error

type LLMIntegration interface {
	ModelName() string
	GenerateResponse(ctx context.Context, messages []*entities.Message, tools []entities.Tool, options map[string]any, callback MessageCallback) ([]*entities.Message, error)
	GetUsage() (*entities.Usage, error)
	GetLastUsage() (*entities.Usage, error)
}
