package domain

import "time"

// TypingEntry records that a participant is currently typing in a
// conversation. Entries expire when LastActivity grows stale.
type TypingEntry struct {
	ParticipantID  string
	ConversationID ConversationID
	LastActivity   time.Time
}
