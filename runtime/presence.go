package runtime

import (
	"sync"
	"time"

	"chat-relay/domain"
)

// Presence tracks connected participants and their conversation
// membership. It is the single owner of Participant records: created on
// join, removed on disconnect.
type Presence struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	order        []string
}

func NewPresence() *Presence {
	return &Presence{participants: make(map[string]*domain.Participant)}
}

// Join registers or re-registers a participant. Idempotent per participant
// id: a re-join updates the conversation and display name without
// duplicating the record or losing its original position.
func (p *Presence) Join(participantID, displayName string, conversationID domain.ConversationID) domain.Participant {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.participants[participantID]; ok {
		existing.DisplayName = displayName
		existing.ConversationID = conversationID
		return *existing
	}

	participant := &domain.Participant{
		ID:             participantID,
		DisplayName:    displayName,
		ConversationID: conversationID,
		JoinedAt:       time.Now().UTC(),
	}
	p.participants[participantID] = participant
	p.order = append(p.order, participantID)
	return *participant
}

// Leave removes the participant and returns the removed record for leave
// notifications. Disconnects can race, so absence is not an error.
func (p *Presence) Leave(participantID string) (domain.Participant, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	participant, ok := p.participants[participantID]
	if !ok {
		return domain.Participant{}, false
	}
	delete(p.participants, participantID)
	for i, id := range p.order {
		if id == participantID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return *participant, true
}

// Get returns the current record for one participant.
func (p *Presence) Get(participantID string) (domain.Participant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	participant, ok := p.participants[participantID]
	if !ok {
		return domain.Participant{}, false
	}
	return *participant, true
}

// ListActive snapshots all connected participants in insertion order.
func (p *Presence) ListActive() []domain.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()

	active := make([]domain.Participant, 0, len(p.order))
	for _, id := range p.order {
		if participant, ok := p.participants[id]; ok {
			active = append(active, *participant)
		}
	}
	return active
}

// ListConversation snapshots the participants of one conversation, in
// insertion order.
func (p *Presence) ListConversation(conversationID domain.ConversationID) []domain.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var members []domain.Participant
	for _, id := range p.order {
		if participant, ok := p.participants[id]; ok && participant.ConversationID == conversationID {
			members = append(members, *participant)
		}
	}
	return members
}

// CountConnections returns the total number of concurrent connections.
func (p *Presence) CountConnections() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.participants)
}
