package runtime

import (
	"context"

	"chat-relay/domain/event"
)

// ConnectionSink is the buffered channel behind one client connection. The
// transport handler drains Events and writes to the wire; fan-out never
// blocks on a slow client, it drops for that connection only.
type ConnectionSink struct {
	Events chan event.DomainEvent
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. A full buffer counts as
// backpressure on this connection, not as a room-wide failure.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
