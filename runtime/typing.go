package runtime

import (
	"sync"
	"time"

	"chat-relay/domain"
)

// TypingTracker owns the per-(participant, conversation) typing state.
// Entries move idle -> typing on a start event and back to idle either on
// an explicit stop or when the periodic sweep finds them stale.
type TypingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]*domain.TypingEntry
	timeout time.Duration
}

type typingKey struct {
	participantID  string
	conversationID domain.ConversationID
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		entries: make(map[typingKey]*domain.TypingEntry),
		timeout: timeout,
	}
}

// Start records typing activity. It returns true only on the idle->typing
// edge; repeats refresh the timestamp without re-notifying the room.
func (t *TypingTracker) Start(participantID string, conversationID domain.ConversationID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{participantID, conversationID}
	now := time.Now().UTC()
	if entry, ok := t.entries[key]; ok {
		entry.LastActivity = now
		return false
	}
	t.entries[key] = &domain.TypingEntry{
		ParticipantID:  participantID,
		ConversationID: conversationID,
		LastActivity:   now,
	}
	return true
}

// Stop clears the typing state explicitly. It returns true if an entry was
// actually removed, so the typing->idle notification fires exactly once
// even when a stop races the expiry sweep.
func (t *TypingTracker) Stop(participantID string, conversationID domain.ConversationID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{participantID, conversationID}
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// StopAll clears every conversation's typing state for one participant,
// returning the removed entries. Used on disconnect.
func (t *TypingTracker) StopAll(participantID string) []domain.TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []domain.TypingEntry
	for key, entry := range t.entries {
		if key.participantID == participantID {
			removed = append(removed, *entry)
			delete(t.entries, key)
		}
	}
	return removed
}

// Expire removes and returns every entry whose last activity is older than
// the timeout. The sweep worker notifies the rooms for each entry, so a
// vanished connection can never stay displayed as typing.
func (t *TypingTracker) Expire(now time.Time) []domain.TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []domain.TypingEntry
	for key, entry := range t.entries {
		if now.Sub(entry.LastActivity) > t.timeout {
			expired = append(expired, *entry)
			delete(t.entries, key)
		}
	}
	return expired
}
