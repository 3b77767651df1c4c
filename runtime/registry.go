package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

type set map[string]struct{}

// Registry is the room broadcaster: it maps conversations to the sinks of
// their currently subscribed connections. Pure addressing, no business
// logic; actual delivery runs through the fanout worker.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink
	members  map[domain.ConversationID]set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.EventSink),
		members:  make(map[domain.ConversationID]set),
	}
}

// Subscribe registers a participant's connection and assigns it to a
// conversation's broadcast group. A participant has a single sink even when
// it re-joins another conversation.
func (r *Registry) Subscribe(participantID string, conversationID domain.ConversationID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[participantID] = sink

	if _, ok := r.members[conversationID]; !ok {
		r.members[conversationID] = make(set)
	}
	r.members[conversationID][participantID] = struct{}{}
}

// Unsubscribe removes the participant from a conversation's broadcast
// group and drops its session. Empty member sets are removed so abandoned
// conversations do not leak.
func (r *Registry) Unsubscribe(participantID string, conversationID domain.ConversationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, participantID)

	if members, ok := r.members[conversationID]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.members, conversationID)
		}
	}
}

// Move reassigns a connected participant to another conversation without
// dropping its session.
func (r *Registry) Move(participantID string, from, to domain.ConversationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.members[from]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.members, from)
		}
	}
	if _, ok := r.members[to]; !ok {
		r.members[to] = make(set)
	}
	r.members[to][participantID] = struct{}{}
}

// SinksFor resolves the active sinks of a conversation, skipping the
// excluded participant (event sender) when one is given.
func (r *Registry) SinksFor(conversationID domain.ConversationID, excludedParticipant string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.members[conversationID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for participantID := range members {
		if participantID == excludedParticipant {
			continue
		}
		if sink, exists := r.sessions[participantID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// AllSinks snapshots every connected sink, for server-wide telemetry.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Sink returns the session sink of a single participant, for unicast.
func (r *Registry) Sink(participantID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[participantID]
	return sink, ok
}
