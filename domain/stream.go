package domain

import (
	"strings"

	"github.com/google/uuid"
)

// StreamSession is the ephemeral state of one in-flight assistant turn.
// It lives for the duration of a single provider call and is discarded
// after finalization or error. Not safe for concurrent use; a session is
// owned by exactly one relay loop.
type StreamSession struct {
	MessageID      uuid.UUID
	ConversationID ConversationID
	buffer         strings.Builder
	done           bool
}

func NewStreamSession(conversationID ConversationID) *StreamSession {
	return &StreamSession{
		MessageID:      uuid.New(),
		ConversationID: conversationID,
	}
}

// Accumulate appends one fragment to the session buffer.
func (s *StreamSession) Accumulate(fragment string) {
	if s.done {
		return
	}
	s.buffer.WriteString(fragment)
}

func (s *StreamSession) Content() string { return s.buffer.String() }

// Finish marks the session terminal. Further fragments are ignored.
func (s *StreamSession) Finish() { s.done = true }

func (s *StreamSession) Done() bool { return s.done }
