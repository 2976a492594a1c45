package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ConversationSource string

const (
	SourceLocal    ConversationSource = "local"
	SourceExternal ConversationSource = "external"
)

type ConversationUsage struct {
	TotalPromptTokens     int     `json:"total_prompt_tokens" bson:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens" bson:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens" bson:"total_tokens"`
	TotalCost             float64 `json:"total_cost" bson:"total_cost"`
}

type Conversation struct {
	ID        string             `json:"id" bson:"_id"`
	Title     string             `json:"title" bson:"title"`
	Messages  []Message          `json:"messages" bson:"messages"`
	Source    ConversationSource `json:"source" bson:"source"`
	UserID    string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Folder    string             `json:"folder,omitempty" bson:"folder,omitempty"`
	Tags      []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Usage     *ConversationUsage `json:"usage,omitempty" bson:"usage,omitempty"`
	Active    bool               `json:"active" bson:"active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

func NewConversation(title string) *Conversation {
	return &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  make([]Message, 0),
		Source:    SourceLocal,
		Usage:     &ConversationUsage{},
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// ReadOnly reports whether new user-authored messages are rejected.
// Externally sourced conversations are imported snapshots.
func (c *Conversation) ReadOnly() bool {
	return c.Source == SourceExternal
}

// UpdateUsage recalculates the totals across all messages.
func (c *Conversation) UpdateUsage() {
	if c.Usage == nil {
		c.Usage = &ConversationUsage{}
	}

	var totalPromptTokens, totalCompletionTokens int
	var totalCost float64

	for _, msg := range c.Messages {
		if msg.Usage != nil {
			totalPromptTokens += msg.Usage.PromptTokens
			totalCompletionTokens += msg.Usage.CompletionTokens
			totalCost += msg.Usage.Cost
		}
	}

	c.Usage.TotalPromptTokens = totalPromptTokens
	c.Usage.TotalCompletionTokens = totalCompletionTokens
	c.Usage.TotalTokens = totalPromptTokens + totalCompletionTokens
	c.Usage.TotalCost = totalCost
}

const maxDerivedTitleLen = 48

// DeriveTitle returns a display title for an untitled conversation,
// taken from the first user message and truncated at a word break.
func (c *Conversation) DeriveTitle() string {
	if c.Title != "" {
		return c.Title
	}
	for _, msg := range c.Messages {
		if msg.Role != RoleUser {
			continue
		}
		title := strings.TrimSpace(strings.SplitN(msg.Content, "\n", 2)[0])
		if title == "" {
			continue
		}
		if len(title) > maxDerivedTitleLen {
			cut := strings.LastIndex(title[:maxDerivedTitleLen], " ")
			if cut <= 0 {
				// No word break: back up to a rune boundary so the
				// truncation never splits a multi-byte character.
				cut = maxDerivedTitleLen
				for cut > 0 && !utf8.RuneStart(title[cut]) {
					cut--
				}
			}
			title = title[:cut]
		}
		return title
	}
	return "New Conversation"
}
