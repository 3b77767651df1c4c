package repositories

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

const (
	FormatJSON     = "json"
	FormatText     = "txt"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Export serializes one conversation. Unknown conversations surface
// ErrNotFound; unknown formats surface ErrUnsupportedFormat.
func (r *ConversationRepository) Export(id domain.ConversationID, format string) ([]byte, error) {
	conv, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return json.MarshalIndent(conv, "", "  ")
	case FormatText:
		return exportText(conv), nil
	case FormatMarkdown:
		return exportMarkdown(conv), nil
	case FormatCSV:
		return exportCSV(conv)
	default:
		return nil, fmt.Errorf("format %q: %w", format, apperrors.ErrUnsupportedFormat)
	}
}

func exportText(conv *domain.Conversation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation: %s\n", conv.Title)
	fmt.Fprintf(&b, "Created: %s\n\n", conv.CreatedAt.Format(time.RFC3339))
	for _, m := range conv.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.Role, m.Content)
	}
	return []byte(b.String())
}

func exportMarkdown(conv *domain.Conversation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "_Created %s_\n\n", conv.CreatedAt.Format(time.RFC3339))
	for _, m := range conv.Messages {
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n---\n\n", m.Role, m.CreatedAt.Format(time.RFC3339), m.Content)
	}
	return []byte(b.String())
}

func exportCSV(conv *domain.Conversation) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "role", "content", "created_at", "model", "error"}); err != nil {
		return nil, err
	}
	for _, m := range conv.Messages {
		record := []string{
			m.ID.String(),
			string(m.Role),
			m.Content,
			m.CreatedAt.Format(time.RFC3339),
			m.Meta.Model,
			strconv.FormatBool(m.Meta.Error),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
