package domain

import "time"

// Command is an inbound client intent, addressed to a conversation.
type Command interface {
	Conversation() ConversationID
}

// JoinCommand registers a participant in a conversation and triggers
// history replay. Identity is validated by the auth collaborator before the
// command reaches the core.
type JoinCommand struct {
	ParticipantID  string         `validate:"required"`
	DisplayName    string         `validate:"required"`
	ConversationID ConversationID `validate:"required"`
}

func (c JoinCommand) Conversation() ConversationID { return c.ConversationID }

// PostMessageCommand carries one user chat message. Streaming selects
// between fragment fan-out and a single message_received response.
type PostMessageCommand struct {
	ParticipantID  string         `validate:"required"`
	ConversationID ConversationID `validate:"required"`
	Content        string         `validate:"required"`
	Streaming      bool
	Files          []FileRef
	Options        map[string]any
	CreatedAt      time.Time
}

func (c PostMessageCommand) Conversation() ConversationID { return c.ConversationID }

// TypingCommand signals a typing-start (Active=true) or an explicit stop.
type TypingCommand struct {
	ParticipantID  string         `validate:"required"`
	ConversationID ConversationID `validate:"required"`
	Active         bool
}

func (c TypingCommand) Conversation() ConversationID { return c.ConversationID }

// CreateConversationCommand allocates a new empty conversation.
type CreateConversationCommand struct {
	ParticipantID string `validate:"required"`
	Title         string
	Metadata      map[string]string
}

func (c CreateConversationCommand) Conversation() ConversationID { return "" }

// LeaveCommand removes a participant, on explicit leave or disconnect.
// Disconnects can race, so an unknown participant is not an error.
type LeaveCommand struct {
	ParticipantID string `validate:"required"`
}

func (c LeaveCommand) Conversation() ConversationID { return "" }

// FileRef is an uploaded file handed to the file collaborator. Extraction
// and on-disk storage happen outside the core.
type FileRef struct {
	Name string `validate:"required"`
	Data []byte
}
