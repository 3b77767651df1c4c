package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

// Mirror is the time-expiring secondary copy of the conversation store.
// Entries are written with a TTL so the mirror never serves arbitrarily
// stale history; the primary in-memory map remains the source of truth.
type Mirror struct {
	db  *badger.DB
	ttl time.Duration
	log *slog.Logger
}

func NewMirror(db *badger.DB, ttl time.Duration, log *slog.Logger) *Mirror {
	return &Mirror{db: db, ttl: ttl, log: log}
}

// mirrorKey formats the badger key as "conv:{conversation_id}".
func mirrorKey(id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("conv:%s", id))
}

// Upsert stores a full snapshot of the conversation, refreshing its TTL.
func (m *Mirror) Upsert(conv *domain.Conversation) error {
	bytes, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(mirrorKey(conv.ID), bytes).WithTTL(m.ttl)
		return txn.SetEntry(entry)
	})
}

// Get returns the mirrored snapshot, or ErrNotFound when the entry is
// absent or has expired.
func (m *Mirror) Get(id domain.ConversationID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mirrorKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &conv)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (m *Mirror) Delete(id domain.ConversationID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(mirrorKey(id))
	})
}
