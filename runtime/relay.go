package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
)

// ErrorReply is the user-facing content persisted when a provider call
// fails. The conversation stays usable: the turn still ends with exactly
// one terminal event.
const ErrorReply = "The assistant could not answer this message. Please try again."

// Relay bridges one provider stream into room-wide notifications and a
// single persisted assistant message. Fragments flow through a channel so
// the provider call is decoupled from the broadcast fan-out; closing the
// channel is how a turn ends, normally or early.
type Relay struct {
	log      *slog.Logger
	provider contract.Provider
	store    repositories.IConversationRepository
	events   chan<- event.DomainEvent
	timeout  time.Duration
}

func NewRelay(log *slog.Logger, provider contract.Provider,
	store repositories.IConversationRepository,
	events chan<- event.DomainEvent, timeout time.Duration) *Relay {
	return &Relay{log: log, provider: provider, store: store, events: events, timeout: timeout}
}

type streamOutcome struct {
	completion contract.Completion
	err        error
}

// StreamTurn runs one streaming assistant turn:
//
//  1. stream_start before the first fragment is requested;
//  2. every fragment forwarded as a stream_chunk, in arrival order;
//  3. exactly one stream_complete, carrying the final message on success,
//     the accumulated content tagged partial on cancellation, and an
//     error-flagged message on provider failure.
func (r *Relay) StreamTurn(ctx context.Context, conversationID domain.ConversationID, prompt string, opts contract.Options) domain.Message {
	session := domain.NewStreamSession(conversationID)
	r.emit(ctx, event.StreamStarted{
		ConversationID: conversationID,
		MessageID:      session.MessageID,
		Role:           domain.RoleAssistant,
		At:             time.Now().UTC(),
	})

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fragments := make(chan string, 64)
	outcome := make(chan streamOutcome, 1)
	go func() {
		completion, err := r.provider.GenerateStream(callCtx, prompt, opts, func(fragment string) {
			select {
			case fragments <- fragment:
			case <-callCtx.Done():
			}
		})
		close(fragments)
		outcome <- streamOutcome{completion: completion, err: err}
	}()

	for fragment := range fragments {
		session.Accumulate(fragment)
		r.emit(ctx, event.StreamChunk{
			ConversationID: conversationID,
			MessageID:      session.MessageID,
			Fragment:       fragment,
		})
	}
	result := <-outcome
	session.Finish()

	message := r.finalize(conversationID, session, result)
	r.emit(ctx, event.StreamCompleted{ConversationID: conversationID, Message: message})
	return message
}

// finalize persists exactly one assistant message for the turn, whatever
// happened to the provider call. It stores under the session's message id,
// so stream_start, every stream_chunk and stream_complete correlate.
func (r *Relay) finalize(conversationID domain.ConversationID, session *domain.StreamSession, result streamOutcome) domain.Message {
	switch {
	case result.err == nil:
		message, err := r.store.AppendWithID(conversationID, session.MessageID, domain.RoleAssistant, session.Content(), domain.MessageMeta{
			Model:  result.completion.Model,
			Tokens: result.completion.Tokens,
		})
		if err != nil {
			r.log.Error("Failed to persist assistant turn", "conversation_id", conversationID, "error", err)
		}
		return message

	case errors.Is(result.err, context.Canceled) && session.Content() != "":
		// Conversation-level cancel: keep what accumulated, tagged partial.
		message, err := r.store.AppendWithID(conversationID, session.MessageID, domain.RoleAssistant, session.Content(), domain.MessageMeta{
			Model:   result.completion.Model,
			Partial: true,
		})
		if err != nil {
			r.log.Error("Failed to persist partial assistant turn", "conversation_id", conversationID, "error", err)
		}
		return message

	default:
		r.log.Warn("Provider stream failed",
			"conversation_id", conversationID,
			"message_id", session.MessageID,
			"error", result.err)
		message, err := r.store.AppendWithID(conversationID, session.MessageID, domain.RoleAssistant, ErrorReply, domain.MessageMeta{
			Model: result.completion.Model,
			Error: true,
		})
		if err != nil {
			r.log.Error("Failed to persist error turn", "conversation_id", conversationID, "error", err)
		}
		return message
	}
}

// CompleteTurn runs one non-streaming assistant turn: a single
// message_received event carries the complete content, success or failure.
func (r *Relay) CompleteTurn(ctx context.Context, conversationID domain.ConversationID, prompt string, opts contract.Options) domain.Message {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	completion, err := r.provider.Generate(callCtx, prompt, opts)

	content := completion.Content
	meta := domain.MessageMeta{Model: completion.Model, Tokens: completion.Tokens}
	if err != nil {
		r.log.Warn("Provider call failed", "conversation_id", conversationID, "error", err)
		content = ErrorReply
		meta = domain.MessageMeta{Error: true}
	}

	message, appendErr := r.store.Append(conversationID, domain.RoleAssistant, content, meta)
	if appendErr != nil {
		r.log.Error("Failed to persist assistant turn", "conversation_id", conversationID, "error", appendErr)
	}
	r.emit(ctx, event.MessageReceived{ConversationID: conversationID, Message: message})
	return message
}

func (r *Relay) emit(ctx context.Context, evt event.DomainEvent) {
	select {
	case r.events <- evt:
	case <-ctx.Done():
	}
}
