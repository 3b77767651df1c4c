package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// TypingExpirer is the part of the typing tracker the sweep needs.
type TypingExpirer interface {
	Expire(now time.Time) []domain.TypingEntry
}

// TypingSweep periodically expires stale typing entries and notifies the
// affected conversations. Staleness is capped at the sweep interval plus
// the tracker timeout, so a vanished connection cannot stay "typing".
type TypingSweep struct {
	log      *slog.Logger
	tracker  TypingExpirer
	events   chan event.DomainEvent
	interval time.Duration
}

func NewTypingSweep(log *slog.Logger, tracker TypingExpirer,
	events chan event.DomainEvent, interval time.Duration) *TypingSweep {
	return &TypingSweep{log: log, tracker: tracker, events: events, interval: interval}
}

func (w *TypingSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, entry := range w.tracker.Expire(time.Now().UTC()) {
				w.log.Debug("Typing entry expired",
					"participant_id", entry.ParticipantID,
					"conversation_id", entry.ConversationID)
				select {
				case w.events <- event.UserTyping{
					ConversationID: entry.ConversationID,
					ParticipantID:  entry.ParticipantID,
					Typing:         false,
				}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
