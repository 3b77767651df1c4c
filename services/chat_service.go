// Package services exposes the relay engine to transport handlers as one
// coherent facade, keeping wire concerns out of the runtime packages.
package services

import (
	"context"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

type IChatService interface {
	Join(cmd domain.JoinCommand, sink contract.EventSink) error
	Leave(cmd domain.LeaveCommand)
	PostMessage(cmd domain.PostMessageCommand) error
	Typing(cmd domain.TypingCommand) error
	CreateConversation(cmd domain.CreateConversationCommand) (domain.ConversationID, error)
	History(id domain.ConversationID) []domain.Message
	List() []domain.Summary
	Update(id domain.ConversationID, title *string, metadataPatch map[string]string) error
	Remove(id domain.ConversationID) error
	Search(query string) []repositories.SearchResult
	SearchArchive(ctx context.Context, query string, id domain.ConversationID, limit int) ([]repositories.ArchivedMessage, error)
	Export(id domain.ConversationID, format string) ([]byte, error)
}

type ChatService struct {
	orchestrator *runtime.Orchestrator
	store        repositories.IConversationRepository
	archive      *repositories.Archive
}

func NewChatService(orchestrator *runtime.Orchestrator,
	store repositories.IConversationRepository,
	archive *repositories.Archive) *ChatService {
	return &ChatService{orchestrator: orchestrator, store: store, archive: archive}
}

func (s *ChatService) Join(cmd domain.JoinCommand, sink contract.EventSink) error {
	return s.orchestrator.Join(cmd, sink)
}

func (s *ChatService) Leave(cmd domain.LeaveCommand) {
	s.orchestrator.Leave(cmd)
}

func (s *ChatService) PostMessage(cmd domain.PostMessageCommand) error {
	return s.orchestrator.PostMessage(cmd)
}

func (s *ChatService) Typing(cmd domain.TypingCommand) error {
	return s.orchestrator.Typing(cmd)
}

func (s *ChatService) CreateConversation(cmd domain.CreateConversationCommand) (domain.ConversationID, error) {
	return s.orchestrator.CreateConversation(cmd)
}

func (s *ChatService) History(id domain.ConversationID) []domain.Message {
	return s.store.History(id)
}

func (s *ChatService) List() []domain.Summary {
	return s.store.List()
}

func (s *ChatService) Update(id domain.ConversationID, title *string, metadataPatch map[string]string) error {
	return s.store.Update(id, title, metadataPatch)
}

func (s *ChatService) Remove(id domain.ConversationID) error {
	return s.store.Remove(id)
}

func (s *ChatService) Search(query string) []repositories.SearchResult {
	return s.store.Search(query)
}

// SearchArchive queries messages that the sliding window already dropped.
func (s *ChatService) SearchArchive(ctx context.Context, query string, id domain.ConversationID, limit int) ([]repositories.ArchivedMessage, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.Search(ctx, query, id, limit)
}

func (s *ChatService) Export(id domain.ConversationID, format string) ([]byte, error) {
	return s.store.Export(id, format)
}
