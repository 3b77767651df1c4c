package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
)

type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) snapshot() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func (s *captureSink) count(match func(event.DomainEvent) bool) int {
	n := 0
	for _, evt := range s.snapshot() {
		if match(evt) {
			n++
		}
	}
	return n
}

// gatedProvider blocks mid-stream until released, so tests can interleave
// other commands with an in-flight turn.
type gatedProvider struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedProvider) Generate(ctx context.Context, prompt string, opts contract.Options) (contract.Completion, error) {
	<-p.release
	return contract.Completion{Content: "gated answer"}, nil
}

func (p *gatedProvider) GenerateStream(ctx context.Context, prompt string, opts contract.Options, onFragment func(string)) (contract.Completion, error) {
	onFragment("first ")
	p.startOnce.Do(func() { close(p.started) })
	<-p.release
	onFragment("second")
	return contract.Completion{Content: "first second"}, nil
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	store        *repositories.ConversationRepository
	cancel       context.CancelFunc
}

func newOrchestratorFixture(t *testing.T, provider contract.Provider, queueDepth int) *orchestratorFixture {
	t.Helper()
	log := slog.Default()
	store := repositories.NewConversationRepository(100, nil, nil, log)
	events := make(chan event.DomainEvent, 256)
	relay := NewRelay(log, provider, store, events, time.Minute)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)

	orchestrator := NewOrchestrator(
		log,
		Settings{
			EventBufferSize:     256,
			TurnQueueDepth:      queueDepth,
			SinkTimeout:         time.Second,
			TypingSweepInterval: time.Minute,
			StatsInterval:       time.Minute,
			HistoryPromptDepth:  10,
		},
		NewPresence(),
		NewTypingTracker(10*time.Second),
		NewRegistry(),
		store, relay, nil, &moderator,
		workers.NewSupervisor(log, 10*time.Millisecond),
		events,
	)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, orchestrator.Start(ctx))
	t.Cleanup(func() {
		cancel()
		orchestrator.Stop()
	})
	return &orchestratorFixture{orchestrator: orchestrator, store: store, cancel: cancel}
}

func eventually(t *testing.T, condition func() bool, hint string) {
	t.Helper()
	require.Eventually(t, condition, 2*time.Second, 5*time.Millisecond, hint)
}

func Test_Orchestrator_Join_Replays_Occupancy_And_History(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)
	id := fixture.store.Create("existing", nil)
	_, err := fixture.store.Append(id, domain.RoleUser, "earlier message", domain.MessageMeta{})
	req.NoError(err)

	alice := &captureSink{}
	err = fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: id,
	}, alice)
	req.NoError(err)

	// The joiner gets the occupancy snapshot and the stored history
	eventually(t, func() bool {
		users := alice.count(func(e event.DomainEvent) bool { _, ok := e.(event.ActiveUsers); return ok })
		history := alice.count(func(e event.DomainEvent) bool { _, ok := e.(event.ConversationHistory); return ok })
		return users == 1 && history == 1
	}, "joiner should receive active_users and history")

	for _, evt := range alice.snapshot() {
		if history, ok := evt.(event.ConversationHistory); ok {
			req.Len(history.Messages, 1)
			req.Equal("earlier message", history.Messages[0].Content)
		}
	}
}

func Test_Orchestrator_Join_Notifies_Others_Not_The_Joiner(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)

	alice, bob := &captureSink{}, &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "bob", DisplayName: "Bob", ConversationID: "room-1"}, bob))

	joinOf := func(id string) func(event.DomainEvent) bool {
		return func(e event.DomainEvent) bool {
			joined, ok := e.(event.UserJoined)
			return ok && joined.Participant.ID == id
		}
	}

	// Alice sees bob arrive; bob never sees his own join notice. Bob may
	// still observe alice's earlier join if it was queued when he
	// subscribed: exclusion is by sender, not by subscription time.
	eventually(t, func() bool { return alice.count(joinOf("bob")) == 1 }, "alice should see bob join")
	req.Zero(bob.count(joinOf("bob")))
}

func Test_Orchestrator_PostMessage_Censors_And_Broadcasts_Before_The_Turn(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{
		completion: contract.Completion{Content: "assistant reply", Model: "test-model"},
	}, 4)

	alice, bob := &captureSink{}, &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "bob", DisplayName: "Bob", ConversationID: "room-1"}, bob))

	req.NoError(fixture.orchestrator.PostMessage(domain.PostMessageCommand{
		ParticipantID:  "alice",
		ConversationID: "room-1",
		Content:        "look, a badger!",
	}))

	isMessage := func(e event.DomainEvent) bool { _, ok := e.(event.MessageReceived); return ok }

	// Both user turn and assistant turn reach the whole room, sender included
	eventually(t, func() bool { return alice.count(isMessage) == 2 && bob.count(isMessage) == 2 }, "room should see both turns")

	var contents []string
	for _, evt := range bob.snapshot() {
		if received, ok := evt.(event.MessageReceived); ok {
			contents = append(contents, received.Message.Content)
		}
	}
	req.Equal([]string{"look, a ******!", "assistant reply"}, contents)

	// The censored words are surfaced in the stored user message
	history := fixture.store.History("room-1")
	req.Len(history, 2)
	req.Equal([]string{"badger"}, history[0].Meta.CensoredWords)
	req.Equal(domain.RoleAssistant, history[1].Role)
}

func Test_Orchestrator_PostMessage_Validation(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)

	err := fixture.orchestrator.PostMessage(domain.PostMessageCommand{
		ParticipantID:  "alice",
		ConversationID: "room-1",
		Content:        "",
	})
	req.ErrorIs(err, apperrors.ErrValidation)
}

func Test_Orchestrator_Turn_Queue_Overflow_Is_Busy(t *testing.T) {
	req := require.New(t)
	provider := newGatedProvider()
	fixture := newOrchestratorFixture(t, provider, 1)

	alice := &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))

	post := func(content string) error {
		return fixture.orchestrator.PostMessage(domain.PostMessageCommand{
			ParticipantID: "alice", ConversationID: "room-1", Content: content, Streaming: true,
		})
	}

	// First message occupies the turn loop
	req.NoError(post("one"))
	<-provider.started

	// Second sits in the queue; the third finds it full
	req.NoError(post("two"))
	err := post("three")
	req.ErrorIs(err, apperrors.ErrBusy)

	close(provider.release)
}

func Test_Orchestrator_Disconnect_During_Stream_Does_Not_Stop_The_Turn(t *testing.T) {
	req := require.New(t)
	provider := newGatedProvider()
	fixture := newOrchestratorFixture(t, provider, 4)

	alice, bob := &captureSink{}, &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "bob", DisplayName: "Bob", ConversationID: "room-1"}, bob))

	req.NoError(fixture.orchestrator.PostMessage(domain.PostMessageCommand{
		ParticipantID: "alice", ConversationID: "room-1", Content: "stream this", Streaming: true,
	}))
	<-provider.started

	// The author disconnects while the assistant turn is in flight
	fixture.orchestrator.Leave(domain.LeaveCommand{ParticipantID: "alice"})
	close(provider.release)

	// Bob still receives the complete stream, terminated exactly once
	eventually(t, func() bool {
		return bob.count(func(e event.DomainEvent) bool { _, ok := e.(event.StreamCompleted); return ok }) == 1
	}, "remaining subscriber should see the turn complete")

	chunks := bob.count(func(e event.DomainEvent) bool { _, ok := e.(event.StreamChunk); return ok })
	req.Equal(2, chunks)

	history := fixture.store.History("room-1")
	req.Equal("first second", history[len(history)-1].Content)
}

func Test_Orchestrator_Typing_Edge_And_Stop(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)

	alice, bob := &captureSink{}, &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "bob", DisplayName: "Bob", ConversationID: "room-1"}, bob))

	typing := domain.TypingCommand{ParticipantID: "alice", ConversationID: "room-1", Active: true}
	req.NoError(fixture.orchestrator.Typing(typing))
	req.NoError(fixture.orchestrator.Typing(typing))
	req.NoError(fixture.orchestrator.Typing(typing))

	isTyping := func(e event.DomainEvent) bool { _, ok := e.(event.UserTyping); return ok }

	// Repeats refresh silently: one notification, to others only
	eventually(t, func() bool { return bob.count(isTyping) == 1 }, "bob should see one typing start")
	req.Zero(alice.count(isTyping))

	typing.Active = false
	req.NoError(fixture.orchestrator.Typing(typing))

	eventually(t, func() bool { return bob.count(isTyping) == 2 }, "bob should see the typing stop")
	for _, evt := range bob.snapshot() {
		if userTyping, ok := evt.(event.UserTyping); ok && !userTyping.Typing {
			req.Equal("alice", userTyping.ParticipantID)
		}
	}
}

func Test_Orchestrator_Leave_Clears_Typing_And_Notifies(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)

	alice, bob := &captureSink{}, &captureSink{}
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, alice))
	req.NoError(fixture.orchestrator.Join(domain.JoinCommand{
		ParticipantID: "bob", DisplayName: "Bob", ConversationID: "room-1"}, bob))

	req.NoError(fixture.orchestrator.Typing(domain.TypingCommand{
		ParticipantID: "alice", ConversationID: "room-1", Active: true}))

	fixture.orchestrator.Leave(domain.LeaveCommand{ParticipantID: "alice"})

	eventually(t, func() bool {
		left := bob.count(func(e event.DomainEvent) bool { _, ok := e.(event.UserLeft); return ok })
		stops := bob.count(func(e event.DomainEvent) bool {
			userTyping, ok := e.(event.UserTyping)
			return ok && !userTyping.Typing
		})
		return left == 1 && stops == 1
	}, "bob should see the leave and the typing stop")
}

func Test_Orchestrator_Stop_Drains_Turn_Loops_Without_Parent_Cancel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	store := repositories.NewConversationRepository(100, nil, nil, log)
	events := make(chan event.DomainEvent, 256)
	relay := NewRelay(log, &scriptedProvider{
		completion: contract.Completion{Content: "done"},
	}, store, events, time.Minute)
	moderator, err := moderation.NewModerator(nil, '*', log)
	req.NoError(err)

	orchestrator := NewOrchestrator(
		log,
		Settings{
			EventBufferSize:     256,
			TurnQueueDepth:      4,
			SinkTimeout:         time.Second,
			TypingSweepInterval: time.Minute,
			StatsInterval:       time.Minute,
			HistoryPromptDepth:  10,
		},
		NewPresence(),
		NewTypingTracker(10*time.Second),
		NewRegistry(),
		store, relay, nil, &moderator,
		workers.NewSupervisor(log, 10*time.Millisecond),
		events,
	)
	// The parent context stays alive for the whole test
	req.NoError(orchestrator.Start(context.Background()))

	req.NoError(orchestrator.Join(domain.JoinCommand{
		ParticipantID: "alice", DisplayName: "Alice", ConversationID: "room-1"}, &captureSink{}))
	req.NoError(orchestrator.PostMessage(domain.PostMessageCommand{
		ParticipantID: "alice", ConversationID: "room-1", Content: "hello"}))

	// The turn loop for room-1 is now running
	eventually(t, func() bool { return len(store.History("room-1")) == 2 }, "assistant turn should land")

	stopped := make(chan struct{})
	go func() {
		orchestrator.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked with the parent context still alive")
	}
}

func Test_Orchestrator_CreateConversation(t *testing.T) {
	req := require.New(t)
	fixture := newOrchestratorFixture(t, &scriptedProvider{}, 4)

	id, err := fixture.orchestrator.CreateConversation(domain.CreateConversationCommand{
		ParticipantID: "alice",
		Title:         "fresh",
	})
	req.NoError(err)

	conv, err := fixture.store.Get(id)
	req.NoError(err)
	req.Equal("fresh", conv.Title)
	req.Empty(conv.Messages)
}
