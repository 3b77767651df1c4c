package workers_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

func Test_TypingSweep_Emits_Stop_For_Expired_Entries(t *testing.T) {
	req := require.New(t)
	tracker := runtime.NewTypingTracker(time.Millisecond)
	events := make(chan event.DomainEvent, 16)
	sweep := workers.NewTypingSweep(slog.Default(), tracker, events, 5*time.Millisecond)

	// Given a typing participant whose activity goes stale
	tracker.Start("alice", "room-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sweep.Run(ctx)
		close(done)
	}()

	// Then the sweep notifies typing=false exactly once
	select {
	case evt := <-events:
		typing, ok := evt.(event.UserTyping)
		req.True(ok)
		req.False(typing.Typing)
		req.Equal("alice", typing.ParticipantID)
		req.Equal(domain.ConversationID("room-1"), typing.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("expected a typing stop notification")
	}

	// Subsequent sweeps stay silent for the same entry
	select {
	case evt := <-events:
		t.Fatalf("unexpected second notification: %#v", evt)
	case <-time.After(30 * time.Millisecond):
	}

	cancel()
	<-done
}

func Test_TypingSweep_Ignores_Fresh_Entries(t *testing.T) {
	req := require.New(t)
	tracker := runtime.NewTypingTracker(time.Hour)
	events := make(chan event.DomainEvent, 16)
	sweep := workers.NewTypingSweep(slog.Default(), tracker, events, 5*time.Millisecond)

	tracker.Start("alice", "room-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = sweep.Run(ctx)

	req.Empty(events)
}
