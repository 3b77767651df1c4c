//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

type IConversationRepository interface {
	Create(title string, metadata map[string]string) domain.ConversationID
	Append(id domain.ConversationID, role domain.Role, content string, meta domain.MessageMeta) (domain.Message, error)
	AppendWithID(id domain.ConversationID, messageID uuid.UUID, role domain.Role, content string, meta domain.MessageMeta) (domain.Message, error)
	History(id domain.ConversationID) []domain.Message
	Get(id domain.ConversationID) (*domain.Conversation, error)
	List() []domain.Summary
	Update(id domain.ConversationID, title *string, metadataPatch map[string]string) error
	Remove(id domain.ConversationID) error
	Search(query string) []SearchResult
	Export(id domain.ConversationID, format string) ([]byte, error)
	Count() int
}

// ConversationRepository is the primary in-memory conversation log, with a
// TTL-expiring badger mirror and a bluge archive for trimmed messages. Both
// secondaries are optional; a nil mirror/archive disables that concern.
type ConversationRepository struct {
	mu         sync.RWMutex
	convs      map[domain.ConversationID]*domain.Conversation
	maxHistory int
	previewLen int
	mirror     *Mirror
	archive    *Archive
	log        *slog.Logger
}

func NewConversationRepository(maxHistory int, mirror *Mirror, archive *Archive, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{
		convs:      make(map[domain.ConversationID]*domain.Conversation),
		maxHistory: maxHistory,
		previewLen: 100,
		mirror:     mirror,
		archive:    archive,
		log:        log,
	}
}

func (r *ConversationRepository) Create(title string, metadata map[string]string) domain.ConversationID {
	conv := domain.NewConversation(domain.NewConversationID(), title, metadata)

	r.mu.Lock()
	r.convs[conv.ID] = conv
	r.mu.Unlock()

	r.upsertMirror(conv)
	return conv.ID
}

// Append creates a fresh message and applies the sliding-window invariant.
// An unknown conversation id gets a placeholder conversation instead of an
// error: ids may be client-generated before the server acknowledges them.
func (r *ConversationRepository) Append(id domain.ConversationID, role domain.Role, content string, meta domain.MessageMeta) (domain.Message, error) {
	return r.AppendWithID(id, uuid.New(), role, content, meta)
}

// AppendWithID persists a message under a caller-allocated id. The relay
// announces its message id at stream_start, so the persisted record and the
// terminal event must carry that same id.
func (r *ConversationRepository) AppendWithID(id domain.ConversationID, messageID uuid.UUID, role domain.Role, content string, meta domain.MessageMeta) (domain.Message, error) {
	if meta.Language == "" {
		info := whatlanggo.Detect(content)
		meta.Language = info.Lang.Iso6391()
	}
	message := domain.Message{
		ID:        messageID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Meta:      meta,
	}

	r.mu.Lock()
	conv, ok := r.convs[id]
	if !ok {
		conv = domain.NewConversation(id, "", nil)
		r.convs[id] = conv
	}
	conv.Append(message)
	dropped := conv.TrimTo(r.maxHistory)
	snapshot := r.snapshotLocked(conv)
	r.mu.Unlock()

	if len(dropped) > 0 && r.archive != nil {
		if err := r.archive.Index(id, dropped); err != nil {
			r.log.Warn("Failed to archive trimmed messages",
				"conversation_id", id, "count", len(dropped), "error", err)
		}
	}
	r.upsertMirror(snapshot)
	return message, nil
}

// History returns the current log, falling back to the mirror when the
// primary entry is gone. Unknown ids yield an empty history, never an
// error; joins probe history defensively.
func (r *ConversationRepository) History(id domain.ConversationID) []domain.Message {
	r.mu.RLock()
	conv, ok := r.convs[id]
	var messages []domain.Message
	if ok {
		messages = make([]domain.Message, len(conv.Messages))
		copy(messages, conv.Messages)
	}
	r.mu.RUnlock()
	if ok {
		return messages
	}

	if r.mirror != nil {
		if mirrored, err := r.mirror.Get(id); err == nil {
			return mirrored.Messages
		}
	}
	return nil
}

// Get returns a snapshot of the full conversation record.
func (r *ConversationRepository) Get(id domain.ConversationID) (*domain.Conversation, error) {
	r.mu.RLock()
	conv, ok := r.convs[id]
	if !ok {
		r.mu.RUnlock()
		if r.mirror != nil {
			if mirrored, err := r.mirror.Get(id); err == nil {
				return mirrored, nil
			}
		}
		return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	snapshot := r.snapshotLocked(conv)
	r.mu.RUnlock()
	return snapshot, nil
}

func (r *ConversationRepository) List() []domain.Summary {
	r.mu.RLock()
	summaries := lo.MapToSlice(r.convs, func(_ domain.ConversationID, conv *domain.Conversation) domain.Summary {
		return domain.Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			LastMessage:  conv.LastPreview(r.previewLen),
			UpdatedAt:    conv.UpdatedAt,
		}
	})
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// Update replaces the title and shallow-merges the metadata patch.
func (r *ConversationRepository) Update(id domain.ConversationID, title *string, metadataPatch map[string]string) error {
	r.mu.Lock()
	conv, ok := r.convs[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	if title != nil {
		conv.Title = *title
	}
	for key, value := range metadataPatch {
		conv.Metadata[key] = value
	}
	conv.UpdatedAt = time.Now().UTC()
	snapshot := r.snapshotLocked(conv)
	r.mu.Unlock()

	r.upsertMirror(snapshot)
	return nil
}

func (r *ConversationRepository) Remove(id domain.ConversationID) error {
	r.mu.Lock()
	_, ok := r.convs[id]
	delete(r.convs, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	if r.mirror != nil {
		if err := r.mirror.Delete(id); err != nil {
			r.log.Warn("Failed to delete mirrored conversation", "conversation_id", id, "error", err)
		}
	}
	return nil
}

type SearchResult struct {
	Summary domain.Summary
	Score   int
}

// Search ranks conversations by case-insensitive substring occurrences:
// 10 points per title hit, 5 per message content hit, ties broken by most
// recent activity.
func (r *ConversationRepository) Search(query string) []SearchResult {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	r.mu.RLock()
	var results []SearchResult
	for _, conv := range r.convs {
		score := strings.Count(strings.ToLower(conv.Title), needle) * 10
		for _, m := range conv.Messages {
			score += strings.Count(strings.ToLower(m.Content), needle) * 5
		}
		if score == 0 {
			continue
		}
		results = append(results, SearchResult{
			Summary: domain.Summary{
				ID:           conv.ID,
				Title:        conv.Title,
				MessageCount: len(conv.Messages),
				LastMessage:  conv.LastPreview(r.previewLen),
				UpdatedAt:    conv.UpdatedAt,
			},
			Score: score,
		})
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Summary.UpdatedAt.After(results[j].Summary.UpdatedAt)
	})
	return results
}

func (r *ConversationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs)
}

// snapshotLocked deep-copies a conversation for use outside the lock.
func (r *ConversationRepository) snapshotLocked(conv *domain.Conversation) *domain.Conversation {
	snapshot := *conv
	snapshot.Messages = make([]domain.Message, len(conv.Messages))
	copy(snapshot.Messages, conv.Messages)
	snapshot.Metadata = lo.Assign(map[string]string{}, conv.Metadata)
	return &snapshot
}

func (r *ConversationRepository) upsertMirror(conv *domain.Conversation) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Upsert(conv); err != nil {
		r.log.Warn("Failed to mirror conversation", "conversation_id", conv.ID, "error", err)
	}
}
