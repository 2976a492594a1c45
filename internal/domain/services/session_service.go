package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/events"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// defaultContextWindow bounds the history sent to the model when the
// integration does not report its own limit.
const defaultContextWindow = 128000

// SessionService owns the active conversation and the interaction
// state machine. All conversation-affecting actions go through its
// methods; consumers observe state and streaming text via the event
// bus.
type SessionService interface {
	State() entities.SessionState
	PartialText() string
	ActiveConversation(ctx context.Context) (*entities.Conversation, error)
	NewConversation(ctx context.Context) (*entities.Conversation, error)
	SelectConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
	SendMessage(ctx context.Context, content string, images []entities.ImageAttachment) (*entities.Message, error)
	CancelRequest()
}

type sessionService struct {
	conversations ConversationService
	llm           interfaces.LLMIntegration
	fallback      interfaces.LLMIntegration
	systemPrompt  string
	logger        *zap.Logger

	mu          sync.Mutex
	state       entities.SessionState
	partialText string
	cancel      context.CancelFunc
}

func NewSessionService(
	conversations ConversationService,
	llm interfaces.LLMIntegration,
	fallback interfaces.LLMIntegration,
	systemPrompt string,
	logger *zap.Logger,
) *sessionService {
	return &sessionService{
		conversations: conversations,
		llm:           llm,
		fallback:      fallback,
		systemPrompt:  systemPrompt,
		logger:        logger,
		state:         entities.StateIdle,
	}
}

func (s *sessionService) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PartialText returns the streaming assistant text accumulated so far.
// Replaced wholesale on each update, cleared when the turn finalizes.
func (s *sessionService) PartialText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partialText
}

func (s *sessionService) setState(conversationID string, state entities.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	events.PublishStateChangeEvent(conversationID, state)
}

func (s *sessionService) ActiveConversation(ctx context.Context) (*entities.Conversation, error) {
	return s.conversations.GetActiveConversation(ctx)
}

func (s *sessionService) NewConversation(ctx context.Context) (*entities.Conversation, error) {
	return s.conversations.CreateConversation(ctx, "")
}

func (s *sessionService) SelectConversation(ctx context.Context, id string) error {
	return s.conversations.SetActiveConversation(ctx, id)
}

func (s *sessionService) DeleteConversation(ctx context.Context, id string) error {
	return s.conversations.DeleteConversation(ctx, id)
}

// CancelRequest aborts the in-flight generation. Messages already
// persisted stay untouched; only the streaming state is discarded.
func (s *sessionService) CancelRequest() {
	s.mu.Lock()
	cancel := s.cancel
	s.partialText = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *sessionService) SendMessage(ctx context.Context, content string, images []entities.ImageAttachment) (*entities.Message, error) {
	if strings.TrimSpace(content) == "" && len(images) == 0 {
		return nil, errs.ValidationErrorf("message content is required")
	}

	conversation, err := s.conversations.GetActiveConversation(ctx)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); !ok {
			return nil, err
		}
		conversation, err = s.conversations.CreateConversation(ctx, "")
		if err != nil {
			return nil, err
		}
	}
	if conversation.ReadOnly() {
		return nil, errs.ReadOnlyErrorf("conversation %s is read-only", conversation.ID)
	}

	userMessage := entities.NewMessage(entities.RoleUser, content)
	userMessage.Images = images
	if err := s.conversations.AppendMessage(ctx, conversation.ID, userMessage); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.partialText = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.partialText = ""
		s.mu.Unlock()
		cancel()
	}()

	s.setState(conversation.ID, entities.StateProcessing)
	defer s.setState(conversation.ID, entities.StateIdle)

	// Re-read so the prompt includes the message just appended.
	conversation, err = s.conversations.GetConversation(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}

	messagesToSend := s.buildPrompt(conversation)
	options := map[string]any{
		"temperature":     0.0,
		"conversation_id": conversation.ID,
	}

	callback := s.persistCallback(ctx, conversation.ID)

	newMessages, err := s.llm.GenerateResponse(ctx, messagesToSend, nil, options, callback)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, errs.CanceledErrorf("message processing was canceled")
		}
		if s.fallback == nil {
			s.recordFailure(conversation.ID, err)
			return nil, errs.InternalErrorf("failed to generate response: %v", err)
		}
		s.logger.Warn("Primary model failed, trying fallback",
			zap.String("model", s.llm.ModelName()), zap.Error(err))
		// Mark fallback replies before the callback persists them, so
		// the stored copies carry the flag too.
		markFallback := func(messages []*entities.Message) error {
			for _, msg := range messages {
				if msg.Usage == nil {
					msg.Usage = &entities.Usage{}
				}
				msg.Usage.Fallback = true
			}
			return callback(messages)
		}
		newMessages, err = s.fallback.GenerateResponse(ctx, messagesToSend, nil, options, markFallback)
		if err != nil {
			if ctx.Err() == context.Canceled {
				return nil, errs.CanceledErrorf("message processing was canceled")
			}
			s.recordFailure(conversation.ID, err)
			return nil, errs.InternalErrorf("failed to generate response: %v", err)
		}
	}

	newMessages = s.ensureToolCallResponses(conversation.ID, newMessages)

	if len(newMessages) == 0 {
		return nil, errs.InternalErrorf("no response generated")
	}
	return newMessages[len(newMessages)-1], nil
}

// recordFailure leaves a visible error message in the conversation so
// the failed turn is not silent. Previously persisted messages are
// untouched.
func (s *sessionService) recordFailure(conversationID string, cause error) {
	failure := entities.NewMessage(entities.RoleSystem, "Error: "+cause.Error())
	if err := s.conversations.AppendMessage(context.Background(), conversationID, failure); err != nil {
		s.logger.Warn("Failed to record generation error", zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// persistCallback saves each batch of generated messages as it arrives
// and mirrors assistant text onto the stream delta channel.
func (s *sessionService) persistCallback(ctx context.Context, conversationID string) interfaces.MessageCallback {
	return func(messages []*entities.Message) error {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		for _, msg := range messages {
			if msg.Role == entities.RoleTool {
				s.setState(conversationID, entities.StateExecutingTool)
			}
			if msg.Role == entities.RoleAssistant {
				s.mu.Lock()
				s.partialText = msg.Content
				s.mu.Unlock()
				events.PublishStreamDeltaEvent(conversationID, msg.ID, msg.Content, len(msg.ToolCalls) == 0)
			}
			if err := s.conversations.AppendMessage(ctx, conversationID, msg); err != nil {
				return err
			}
		}
		s.setState(conversationID, entities.StateProcessing)
		return nil
	}
}

// buildPrompt assembles the system prompt plus as much recent history
// as fits the context window, trimming only at safe split points.
func (s *sessionService) buildPrompt(conversation *entities.Conversation) []*entities.Message {
	var messagesToSend []*entities.Message
	if s.systemPrompt != "" {
		messagesToSend = append(messagesToSend, &entities.Message{
			Role:    entities.RoleSystem,
			Content: s.systemPrompt,
		})
	}

	history := conversation.Messages
	budget := defaultContextWindow
	total := 0
	for i := range history {
		total += estimateTokens(&history[i])
	}

	for total > budget && len(history) > 1 {
		trimmed := false
		// Drop the oldest messages, keeping tool calls paired with
		// their responses.
		for split := 1; split < len(history); split++ {
			if isSafeSplit(history, split) {
				for i := 0; i < split; i++ {
					total -= estimateTokens(&history[i])
				}
				history = history[split:]
				trimmed = true
				break
			}
		}
		if !trimmed {
			s.logger.Warn("No safe split point found; sending full history",
				zap.String("conversation_id", conversation.ID))
			break
		}
	}

	for i := range history {
		messagesToSend = append(messagesToSend, &history[i])
	}
	return messagesToSend
}

var (
	tokenEncoderOnce sync.Once
	tokenEncoder     *tiktoken.Tiktoken
)

func estimateTokens(msg *entities.Message) int {
	// The encoding never changes, so build it once and reuse it.
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel("gpt-4")
		if err != nil {
			return
		}
		tokenEncoder = enc
	})
	if tokenEncoder == nil {
		return 0
	}

	return len(tokenEncoder.Encode(msg.Content, nil, nil))
}

// isSafeSplit checks if splitting at 'split' avoids both orphaned responses and unfinished calls.
func isSafeSplit(messages []entities.Message, split int) bool {
	toolCallIDsBefore := make(map[string]struct{})
	for i := 0; i < split; i++ {
		msg := messages[i]
		if msg.Role == entities.RoleAssistant && len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				toolCallIDsBefore[tc.ID] = struct{}{}
			}
		}
	}

	// Orphaned response: tool message after the split referencing a
	// call before it.
	for i := split; i < len(messages); i++ {
		msg := messages[i]
		if msg.Role == entities.RoleTool {
			if _, ok := toolCallIDsBefore[msg.ToolCallID]; ok {
				return false
			}
		}
	}

	responseIDsBefore := make(map[string]struct{})
	for i := 0; i < split; i++ {
		msg := messages[i]
		if msg.Role == entities.RoleTool {
			responseIDsBefore[msg.ToolCallID] = struct{}{}
		}
	}

	// Unfinished call: call before the split without a response before it.
	for callID := range toolCallIDsBefore {
		if _, ok := responseIDsBefore[callID]; !ok {
			return false
		}
	}

	return true
}

// ensureToolCallResponses creates error responses for any tool calls
// that never received one, so the stored history stays balanced.
func (s *sessionService) ensureToolCallResponses(conversationID string, messages []*entities.Message) []*entities.Message {
	toolCallIDs := make(map[string]bool)
	for _, msg := range messages {
		if msg.Role == entities.RoleAssistant && len(msg.ToolCalls) > 0 {
			for _, toolCall := range msg.ToolCalls {
				toolCallIDs[toolCall.ID] = false
			}
		}
	}

	for _, msg := range messages {
		if msg.Role == entities.RoleTool && msg.ToolCallID != "" {
			if _, exists := toolCallIDs[msg.ToolCallID]; exists {
				toolCallIDs[msg.ToolCallID] = true
			}
		}
	}

	for toolCallID, hasResponse := range toolCallIDs {
		if !hasResponse {
			s.logger.Warn("Found orphaned tool call without response", zap.String("tool_call_id", toolCallID))
			errorMessage := &entities.Message{
				ID:         uuid.New().String(),
				Role:       entities.RoleTool,
				Content:    "Tool execution failed: No response generated",
				ToolCallID: toolCallID,
				Timestamp:  time.Now(),
			}
			if err := s.conversations.AppendMessage(context.Background(), conversationID, errorMessage); err != nil {
				s.logger.Warn("Failed to persist orphan tool response", zap.Error(err))
			}
			messages = append(messages, errorMessage)
		}
	}

	return messages
}

var _ SessionService = (*sessionService)(nil)
