// Package event defines the outbound events fanned out to connected
// clients. Events are addressed by conversation; an empty conversation id
// means "every connected sink" (server-wide telemetry).
package event

import (
	"time"

	"github.com/google/uuid"

	"chat-relay/domain"
)

type DomainEvent interface {
	Conversation() domain.ConversationID
}

// ExcludesSender is implemented by events that must not echo back to the
// participant that caused them (typing indicators, join/leave notices).
type ExcludesSender interface {
	ExcludedParticipant() string
}

// Targeted events are unicast to a single participant instead of being
// broadcast to a conversation (history replay, occupancy snapshots, error
// reports).
type Targeted interface {
	Target() string
}

// MessageReceived carries one complete, finalized message. Used for user
// turns and for non-streaming assistant turns.
type MessageReceived struct {
	ConversationID domain.ConversationID
	Message        domain.Message
}

func (e MessageReceived) Conversation() domain.ConversationID { return e.ConversationID }

// StreamStarted opens an assistant turn. Emitted before the first fragment
// is requested from the provider.
type StreamStarted struct {
	ConversationID domain.ConversationID
	MessageID      uuid.UUID
	Role           domain.Role
	At             time.Time
}

func (e StreamStarted) Conversation() domain.ConversationID { return e.ConversationID }

// StreamChunk is one in-order fragment of an in-flight assistant turn.
type StreamChunk struct {
	ConversationID domain.ConversationID
	MessageID      uuid.UUID
	Fragment       string
}

func (e StreamChunk) Conversation() domain.ConversationID { return e.ConversationID }

// StreamCompleted closes an assistant turn, success or failure. Exactly one
// is emitted per turn so clients never hang.
type StreamCompleted struct {
	ConversationID domain.ConversationID
	Message        domain.Message
}

func (e StreamCompleted) Conversation() domain.ConversationID { return e.ConversationID }

type UserJoined struct {
	ConversationID domain.ConversationID
	Participant    domain.Participant
}

func (e UserJoined) Conversation() domain.ConversationID { return e.ConversationID }
func (e UserJoined) ExcludedParticipant() string         { return e.Participant.ID }

type UserLeft struct {
	ConversationID domain.ConversationID
	Participant    domain.Participant
}

func (e UserLeft) Conversation() domain.ConversationID { return e.ConversationID }

// UserTyping flips the typing indicator for one participant.
type UserTyping struct {
	ConversationID domain.ConversationID
	ParticipantID  string
	Typing         bool
}

func (e UserTyping) Conversation() domain.ConversationID { return e.ConversationID }
func (e UserTyping) ExcludedParticipant() string         { return e.ParticipantID }

// ActiveUsers is the occupancy snapshot unicast to a new joiner.
type ActiveUsers struct {
	ConversationID domain.ConversationID
	ParticipantID  string
	Participants   []domain.Participant
}

func (e ActiveUsers) Conversation() domain.ConversationID { return e.ConversationID }
func (e ActiveUsers) Target() string                      { return e.ParticipantID }

// ConversationHistory replays the stored log to a new joiner.
type ConversationHistory struct {
	ConversationID domain.ConversationID
	ParticipantID  string
	Messages       []domain.Message
}

func (e ConversationHistory) Conversation() domain.ConversationID { return e.ConversationID }
func (e ConversationHistory) Target() string                      { return e.ParticipantID }

// ServerStats is best-effort periodic telemetry, addressed to everyone.
type ServerStats struct {
	Connections   int
	Conversations int
	CPUPercent    float64
	RSSBytes      uint64
	At            time.Time
}

func (e ServerStats) Conversation() domain.ConversationID { return "" }

// ConversationCreated acknowledges a create_conversation command to its
// sender only, carrying the allocated id.
type ConversationCreated struct {
	ConversationID domain.ConversationID
	ParticipantID  string
}

func (e ConversationCreated) Conversation() domain.ConversationID { return e.ConversationID }
func (e ConversationCreated) Target() string                      { return e.ParticipantID }

// ErrorEvent reports a failure back to the originating connection only; it
// is unicast, never broadcast.
type ErrorEvent struct {
	ParticipantID string
	Reason        string
}

func (e ErrorEvent) Conversation() domain.ConversationID { return "" }
func (e ErrorEvent) Target() string                      { return e.ParticipantID }
