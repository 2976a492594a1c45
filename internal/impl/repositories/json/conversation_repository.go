package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"github.com/google/uuid"
)

type JsonConversationRepository struct {
	filePath string
	mu       sync.RWMutex
	data     []*entities.Conversation
}

func NewJSONConversationRepository(dataDir string) (interfaces.ConversationRepository, error) {
	filePath := filepath.Join(dataDir, "conversations.json")
	repo := &JsonConversationRepository{
		filePath: filePath,
		data:     []*entities.Conversation{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *JsonConversationRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet, start with empty data
	}
	if err != nil {
		return errs.StorageErrorf("failed to read conversations.json: %v", err)
	}

	var conversations []*entities.Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return errs.StorageErrorf("failed to unmarshal conversations.json: %v", err)
	}

	// Validate UUIDs
	for _, conversation := range conversations {
		if conversation.ID == "" {
			return errs.StorageErrorf("conversation is missing an ID")
		}
		if _, err := uuid.Parse(conversation.ID); err != nil {
			return errs.StorageErrorf("conversation has an invalid UUID: %v", err)
		}
	}

	r.data = conversations
	return nil
}

func (r *JsonConversationRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errs.StorageErrorf("failed to marshal conversations: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errs.StorageErrorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errs.StorageErrorf("failed to write conversations.json: %v", err)
	}

	return nil
}

func clone(c *entities.Conversation) *entities.Conversation {
	messagesCopy := make([]entities.Message, len(c.Messages))
	copy(messagesCopy, c.Messages)
	return &entities.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  messagesCopy,
		Source:    c.Source,
		UserID:    c.UserID,
		Folder:    c.Folder,
		Tags:      slices.Clone(c.Tags),
		Usage:     c.Usage,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r *JsonConversationRepository) ListConversations(ctx context.Context) ([]*entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversationsCopy := make([]*entities.Conversation, len(r.data))
	for i, c := range r.data {
		conversationsCopy[i] = clone(c)
	}

	// Most recently updated first
	sort.Slice(conversationsCopy, func(i, j int) bool {
		return conversationsCopy[i].UpdatedAt.After(conversationsCopy[j].UpdatedAt)
	})

	return conversationsCopy, nil
}

func (r *JsonConversationRepository) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conversation := range r.data {
		if conversation.ID == id {
			return clone(conversation), nil
		}
	}
	return nil, errs.NotFoundErrorf("conversation not found: %s", id)
}

func (r *JsonConversationRepository) CreateConversation(ctx context.Context, conversation *entities.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	conversation.CreatedAt = time.Now()
	conversation.UpdatedAt = conversation.CreatedAt

	r.data = append(r.data, clone(conversation))
	return r.save()
}

func (r *JsonConversationRepository) UpdateConversation(ctx context.Context, conversation *entities.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.data {
		if c.ID == conversation.ID {
			// Last write wins on monotonic UpdatedAt; a stale writer
			// never clobbers a newer snapshot.
			if c.UpdatedAt.After(conversation.UpdatedAt) {
				return nil
			}
			conversation.UpdatedAt = time.Now()
			r.data[i] = clone(conversation)
			return r.save()
		}
	}
	return errs.NotFoundErrorf("conversation not found: %s", conversation.ID)
}

func (r *JsonConversationRepository) AppendMessage(ctx context.Context, id string, message *entities.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.data {
		if c.ID != id {
			continue
		}
		if c.ReadOnly() {
			return errs.ReadOnlyErrorf("conversation %s is read-only", id)
		}
		c.Messages = append(c.Messages, *message)
		c.UpdateUsage()
		c.UpdatedAt = time.Now()
		return r.save()
	}
	return errs.NotFoundErrorf("conversation not found: %s", id)
}

func (r *JsonConversationRepository) RenameConversation(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.data {
		if c.ID == id {
			c.Title = title
			c.UpdatedAt = time.Now()
			return r.save()
		}
	}
	return errs.NotFoundErrorf("conversation not found: %s", id)
}

func (r *JsonConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.data {
		if c.ID == id {
			r.data = slices.Delete(r.data, i, i+1)
			return r.save()
		}
	}
	// Deleting an absent conversation is a no-op
	return nil
}

var _ interfaces.ConversationRepository = (*JsonConversationRepository)(nil)
