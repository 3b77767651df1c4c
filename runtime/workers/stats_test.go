package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
)

func Test_StatsSweep_Reports_Counters(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 16)
	sweep := NewStatsSweep(slog.Default(), StatsSources{
		Connections:   func() int { return 3 },
		Conversations: func() int { return 2 },
	}, events, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sweep.Run(ctx)
		close(done)
	}()

	select {
	case evt := <-events:
		stats, ok := evt.(event.ServerStats)
		req.True(ok)
		req.Equal(3, stats.Connections)
		req.Equal(2, stats.Conversations)
		req.False(stats.At.IsZero())
		// Stats address every connected sink, not one conversation
		req.Empty(stats.Conversation())
	case <-time.After(time.Second):
		t.Fatal("expected a stats broadcast")
	}

	cancel()
	<-done
}
