package workers_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) recorded() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func newFanoutFixture() (*workers.EventFanout, *runtime.Registry, chan event.DomainEvent) {
	registry := runtime.NewRegistry()
	events := make(chan event.DomainEvent, 16)
	fanout := workers.NewEventFanout(slog.Default(), registry, events, time.Second)
	return fanout, registry, events
}

func Test_Fanout_Broadcasts_To_The_Conversation(t *testing.T) {
	req := require.New(t)
	fanout, registry, _ := newFanoutFixture()

	alice, bob, eve := &recordingSink{}, &recordingSink{}, &recordingSink{}
	registry.Subscribe("alice", "room-1", alice)
	registry.Subscribe("bob", "room-1", bob)
	registry.Subscribe("eve", "room-2", eve)

	evt := event.MessageReceived{ConversationID: "room-1", Message: domain.Message{Content: "hi"}}
	fanout.Fanout(context.Background(), evt)

	req.Len(alice.recorded(), 1)
	req.Len(bob.recorded(), 1)
	req.Empty(eve.recorded(), "other conversations must not receive the event")
}

func Test_Fanout_Excludes_The_Sender(t *testing.T) {
	req := require.New(t)
	fanout, registry, _ := newFanoutFixture()

	alice, bob := &recordingSink{}, &recordingSink{}
	registry.Subscribe("alice", "room-1", alice)
	registry.Subscribe("bob", "room-1", bob)

	evt := event.UserTyping{ConversationID: "room-1", ParticipantID: "alice", Typing: true}
	fanout.Fanout(context.Background(), evt)

	req.Empty(alice.recorded(), "typing indicators never echo to their sender")
	req.Len(bob.recorded(), 1)
}

func Test_Fanout_Targeted_Event_Is_Unicast(t *testing.T) {
	req := require.New(t)
	fanout, registry, _ := newFanoutFixture()

	alice, bob := &recordingSink{}, &recordingSink{}
	registry.Subscribe("alice", "room-1", alice)
	registry.Subscribe("bob", "room-1", bob)

	evt := event.ConversationHistory{ConversationID: "room-1", ParticipantID: "bob"}
	fanout.Fanout(context.Background(), evt)

	req.Empty(alice.recorded())
	req.Len(bob.recorded(), 1)
}

func Test_Fanout_Server_Wide_Event_Reaches_Everyone(t *testing.T) {
	req := require.New(t)
	fanout, registry, _ := newFanoutFixture()

	alice, eve := &recordingSink{}, &recordingSink{}
	registry.Subscribe("alice", "room-1", alice)
	registry.Subscribe("eve", "room-2", eve)

	fanout.Fanout(context.Background(), event.ServerStats{Connections: 2, At: time.Now()})

	req.Len(alice.recorded(), 1)
	req.Len(eve.recorded(), 1)
}

func Test_Fanout_Run_Drains_The_Channel(t *testing.T) {
	req := require.New(t)
	fanout, registry, events := newFanoutFixture()

	alice := &recordingSink{}
	registry.Subscribe("alice", "room-1", alice)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = fanout.Run(ctx)
		close(done)
	}()

	events <- event.MessageReceived{ConversationID: "room-1", Message: domain.Message{Content: "one"}}
	events <- event.MessageReceived{ConversationID: "room-1", Message: domain.Message{Content: "two"}}

	req.Eventually(func() bool { return len(alice.recorded()) == 2 },
		time.Second, 5*time.Millisecond)

	// Delivery order follows channel order
	recorded := alice.recorded()
	req.Equal("one", recorded[0].(event.MessageReceived).Message.Content)
	req.Equal("two", recorded[1].(event.MessageReceived).Message.Content)

	cancel()
	<-done
}
