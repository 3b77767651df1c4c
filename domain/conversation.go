// Package domain contains core concepts of the chat relay.
// This file defines Conversation and Message entities and their rules.
// Messages are immutable once finalized.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationID string

// NewConversationID allocates an opaque, globally unique identifier.
// Client-generated identifiers are accepted as-is by the store.
func NewConversationID() ConversationID {
	return ConversationID(uuid.NewString())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMeta carries optional annotations on a message.
type MessageMeta struct {
	Model         string   `json:"model,omitempty"`
	Tokens        int      `json:"tokens,omitempty"`
	Language      string   `json:"language,omitempty"`
	CensoredWords []string `json:"censored_words,omitempty"`
	Error         bool     `json:"error,omitempty"`
	Partial       bool     `json:"partial,omitempty"`
}

// Message is one chat turn. Content is mutable only while an assistant turn
// is still streaming; the store only ever receives finalized messages.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Meta      MessageMeta `json:"meta,omitempty"`
}

// Conversation is an ordered, append-only message log. Ordering is
// insertion order; trimming drops from the head and never reorders.
type Conversation struct {
	ID        ConversationID    `json:"id"`
	Title     string            `json:"title"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Messages  []Message         `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

const DefaultTitle = "New Conversation"

func NewConversation(id ConversationID, title string, metadata map[string]string) *Conversation {
	if title == "" {
		title = DefaultTitle
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		Title:     title,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a finalized message and bumps UpdatedAt.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now().UTC()
}

// TrimTo enforces the sliding window: the oldest excess messages are
// removed and returned, most recent ones survive in original order.
func (c *Conversation) TrimTo(max int) []Message {
	if max <= 0 || len(c.Messages) <= max {
		return nil
	}
	excess := len(c.Messages) - max
	dropped := make([]Message, excess)
	copy(dropped, c.Messages[:excess])
	c.Messages = append(c.Messages[:0], c.Messages[excess:]...)
	return dropped
}

// LastPreview returns the content of the newest message, for summaries.
func (c *Conversation) LastPreview(maxRunes int) string {
	if len(c.Messages) == 0 {
		return ""
	}
	content := []rune(c.Messages[len(c.Messages)-1].Content)
	if len(content) > maxRunes {
		return string(content[:maxRunes])
	}
	return string(content)
}

// Summary is the list projection of a conversation.
type Summary struct {
	ID           ConversationID `json:"id"`
	Title        string         `json:"title"`
	MessageCount int            `json:"message_count"`
	LastMessage  string         `json:"last_message"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
