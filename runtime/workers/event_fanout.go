package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// EventFanout delivers outbound events to their subscribed connections.
//
// It provides best-effort fan-out with no guarantees regarding durability
// or retries; ordering holds per event channel because a single fanout
// loop drains it. Targeted events are unicast, conversation events go to
// every subscriber minus the optional excluded sender, and events without
// a conversation reach every connected sink.
type EventFanout struct {
	log         *slog.Logger
	broadcaster contract.IBroadcaster
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, broadcaster contract.IBroadcaster,
	events chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		broadcaster: broadcaster,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout resolves the recipients of one event and delivers with a per-sink
// timeout, so one stuck connection cannot stall the room.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.recipients(evt) {
		w.deliver(ctx, sink, evt)
	}
}

func (w *EventFanout) recipients(evt event.DomainEvent) []contract.EventSink {
	if targeted, ok := evt.(event.Targeted); ok {
		if sink, exists := w.broadcaster.Sink(targeted.Target()); exists {
			return []contract.EventSink{sink}
		}
		return nil
	}

	conversationID := evt.Conversation()
	if conversationID == "" {
		return w.broadcaster.AllSinks()
	}

	excluded := ""
	if e, ok := evt.(event.ExcludesSender); ok {
		excluded = e.ExcludedParticipant()
	}
	return w.broadcaster.SinksFor(conversationID, excluded)
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Debug("Sink delivery failed", "error", err)
	}
}
