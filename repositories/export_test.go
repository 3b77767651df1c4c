package repositories

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

func seedConversation(t *testing.T) (*ConversationRepository, domain.ConversationID) {
	t.Helper()
	repository := NewConversationRepository(100, nil, nil, slog.Default())
	id := repository.Create("Export me", nil)
	_, err := repository.Append(id, domain.RoleUser, "hello", domain.MessageMeta{})
	require.NoError(t, err)
	_, err = repository.Append(id, domain.RoleAssistant, "hi, how can I help?", domain.MessageMeta{Model: "test-model"})
	require.NoError(t, err)
	return repository, id
}

func Test_Export_JSON_Round_Trip(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	payload, err := repository.Export(id, FormatJSON)
	req.NoError(err)

	var conv domain.Conversation
	req.NoError(json.Unmarshal(payload, &conv))
	req.Equal(id, conv.ID)
	req.Equal("Export me", conv.Title)
	req.Len(conv.Messages, 2)
	req.Equal("test-model", conv.Messages[1].Meta.Model)
}

func Test_Export_Text_Contains_Every_Turn(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	payload, err := repository.Export(id, FormatText)
	req.NoError(err)

	text := string(payload)
	req.Contains(text, "Conversation: Export me")
	req.Contains(text, "user: hello")
	req.Contains(text, "assistant: hi, how can I help?")
}

func Test_Export_Markdown_Headings(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	payload, err := repository.Export(id, FormatMarkdown)
	req.NoError(err)
	req.True(strings.HasPrefix(string(payload), "# Export me"))
	req.Contains(string(payload), "**assistant**")
}

func Test_Export_CSV_Header_And_Rows(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	payload, err := repository.Export(id, FormatCSV)
	req.NoError(err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	req.NoError(err)
	req.Len(records, 3)
	req.Equal([]string{"id", "role", "content", "created_at", "model", "error"}, records[0])
	req.Equal("user", records[1][1])
	req.Equal("test-model", records[2][4])
}

func Test_Export_Format_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	_, err := repository.Export(id, "JSON")
	req.NoError(err)
}

func Test_Export_Unknown_Format(t *testing.T) {
	req := require.New(t)
	repository, id := seedConversation(t)

	_, err := repository.Export(id, "pdf")
	req.ErrorIs(err, apperrors.ErrUnsupportedFormat)
}

func Test_Export_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(100, nil, nil, slog.Default())

	_, err := repository.Export("missing", FormatJSON)
	req.ErrorIs(err, apperrors.ErrNotFound)
}
