package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one addressable delivery target, usually a client
// connection. Consume must honor ctx so a slow sink cannot stall fan-out.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IBroadcaster maps conversations to the sinks currently subscribed to
// them. Pure multiplexing, no business logic.
type IBroadcaster interface {
	Subscribe(participantID string, conversationID domain.ConversationID, sink EventSink)
	Unsubscribe(participantID string, conversationID domain.ConversationID)
	SinksFor(conversationID domain.ConversationID, excludedParticipant string) []EventSink
	AllSinks() []EventSink
	Sink(participantID string) (EventSink, bool)
}

// Options tunes one provider call. Nil fields fall back to provider
// defaults.
type Options struct {
	Temperature *float64
	MaxTokens   *int
	Model       string
}

// Completion is the outcome of one provider call. For streamed calls,
// Content equals the concatenation of all fragments.
type Completion struct {
	Content string
	Model   string
	Tokens  int
}

// Provider is the generative-text collaborator. GenerateStream invokes
// onFragment in order and returns once the stream terminates; both calls
// surface failures as a single error wrapping errors.ErrProviderFailure.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Options) (Completion, error)
	GenerateStream(ctx context.Context, prompt string, opts Options, onFragment func(string)) (Completion, error)
}

// FileProcessor is the file/content collaborator: best-effort textual
// context from uploaded files, individual failures degrade to inline notes.
type FileProcessor interface {
	ProcessFiles(refs []domain.FileRef) string
}
