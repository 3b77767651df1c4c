package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := NewArchive(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func Test_Archive_Index_And_Search(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)
	conversationID := domain.ConversationID("archived-conv")

	messages := []domain.Message{
		{ID: uuid.New(), Role: domain.RoleUser, Content: "tell me about badgers", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Role: domain.RoleAssistant, Content: "badgers are nocturnal mustelids", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Role: domain.RoleUser, Content: "completely unrelated topic", CreatedAt: time.Now().UTC()},
	}
	req.NoError(archive.Index(conversationID, messages))

	results, err := archive.Search(context.Background(), "badgers", conversationID, 10)
	req.NoError(err)
	req.Len(results, 2)
	for _, result := range results {
		req.Equal(conversationID, result.ConversationID)
		req.Contains(result.Content, "badgers")
		req.NotEmpty(result.MessageID)
	}
}

func Test_Archive_Search_Scoped_By_Conversation(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)

	req.NoError(archive.Index("conv-a", []domain.Message{
		{ID: uuid.New(), Role: domain.RoleUser, Content: "shared keyword here", CreatedAt: time.Now().UTC()},
	}))
	req.NoError(archive.Index("conv-b", []domain.Message{
		{ID: uuid.New(), Role: domain.RoleUser, Content: "shared keyword there", CreatedAt: time.Now().UTC()},
	}))

	results, err := archive.Search(context.Background(), "keyword", "conv-a", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal(domain.ConversationID("conv-a"), results[0].ConversationID)

	// An empty conversation id searches across every conversation
	all, err := archive.Search(context.Background(), "keyword", "", 10)
	req.NoError(err)
	req.Len(all, 2)
}

func Test_Trimmed_Messages_Land_In_The_Archive(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)
	repository := NewConversationRepository(3, nil, archive, slog.Default())
	id := domain.NewConversationID()

	// Given more messages than the window holds
	for i := 1; i <= 5; i++ {
		_, err := repository.Append(id, domain.RoleUser, fmt.Sprintf("archived subject %d", i), domain.MessageMeta{})
		req.NoError(err)
	}

	// Then the live log keeps the newest 3
	req.Len(repository.History(id), 3)

	// And the dropped head is searchable in the archive
	results, err := archive.Search(context.Background(), "archived", id, 10)
	req.NoError(err)
	req.Len(results, 2)
}
