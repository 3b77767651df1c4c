// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and stream reassembly.
// Does not emit events or interact with transports directly.
package projection

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Timeline is a client-side view of one conversation: the finalized
// messages plus any assistant turn still streaming. It satisfies
// contract.EventSink so it can be subscribed like any connection.
type Timeline struct {
	Owner    string
	Messages []domain.Message

	inflight map[uuid.UUID]*strings.Builder
	seen     map[uuid.UUID]struct{}
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner:    owner,
		inflight: make(map[uuid.UUID]*strings.Builder),
		seen:     make(map[uuid.UUID]struct{}),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ConversationHistory:
		t.Messages = nil
		t.seen = make(map[uuid.UUID]struct{})
		for _, m := range evt.Messages {
			t.append(m)
		}
	case event.MessageReceived:
		t.append(evt.Message)
	case event.StreamStarted:
		t.inflight[evt.MessageID] = &strings.Builder{}
	case event.StreamChunk:
		if buf, ok := t.inflight[evt.MessageID]; ok {
			buf.WriteString(evt.Fragment)
		}
	case event.StreamCompleted:
		delete(t.inflight, evt.Message.ID)
		t.append(evt.Message)
	}
	return nil
}

// InFlight returns the text accumulated so far for a streaming turn,
// or "" once the turn has completed.
func (t *Timeline) InFlight(id uuid.UUID) string {
	if buf, ok := t.inflight[id]; ok {
		return buf.String()
	}
	return ""
}

func (t *Timeline) append(m domain.Message) {
	if _, dup := t.seen[m.ID]; dup {
		return
	}
	t.seen[m.ID] = struct{}{}
	t.Messages = append(t.Messages, m)
}
