package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"chat-relay/domain"
)

// Archive indexes messages dropped by the sliding-window trim so that old
// history stays searchable after it leaves the live log. Indexing is
// best-effort from the store's point of view: trimming must never fail
// because the archive is unavailable.
type Archive struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewArchive(path string, log *slog.Logger) (*Archive, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Archive{writer: writer, log: log}, nil
}

// ArchivedMessage is the stored projection of a trimmed message.
type ArchivedMessage struct {
	MessageID      string
	ConversationID domain.ConversationID
	Role           domain.Role
	Content        string
	CreatedAt      time.Time
}

// Index writes one batch of trimmed messages. Re-indexing the same message
// id is an upsert.
func (a *Archive) Index(conversationID domain.ConversationID, messages []domain.Message) error {
	batch := bluge.NewBatch()
	for _, m := range messages {
		doc := bluge.NewDocument(m.ID.String())
		doc.AddField(bluge.NewKeywordField("conversation_id", string(conversationID)).StoreValue())
		doc.AddField(bluge.NewKeywordField("role", string(m.Role)).StoreValue())
		doc.AddField(bluge.NewTextField("content", m.Content).StoreValue())
		doc.AddField(bluge.NewDateTimeField("created_at", m.CreatedAt).StoreValue())
		batch.Update(doc.ID(), doc)
	}
	return a.writer.Batch(batch)
}

// Search runs a match query over archived content, optionally scoped to one
// conversation. Results come back in relevance order.
func (a *Archive) Search(ctx context.Context, query string, conversationID domain.ConversationID, limit int) ([]ArchivedMessage, error) {
	reader, err := a.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			a.log.Warn("Failed to close archive reader", "error", err)
		}
	}()

	boolQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content"))
	if conversationID != "" {
		boolQuery.AddMust(bluge.NewTermQuery(string(conversationID)).SetField("conversation_id"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolQuery))
	if err != nil {
		return nil, err
	}

	var results []ArchivedMessage
	for match, err := iterator.Next(); match != nil; match, err = iterator.Next() {
		if err != nil {
			return nil, err
		}
		var archived ArchivedMessage
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				archived.MessageID = string(value)
			case "conversation_id":
				archived.ConversationID = domain.ConversationID(value)
			case "role":
				archived.Role = domain.Role(value)
			case "content":
				archived.Content = string(value)
			case "created_at":
				if t, err := bluge.DecodeDateTime(value); err == nil {
					archived.CreatedAt = t
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		results = append(results, archived)
	}
	return results, nil
}

func (a *Archive) Close() error {
	return a.writer.Close()
}
