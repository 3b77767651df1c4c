// Package runtime orchestrates the chat relay: presence, typing state,
// room broadcast and the streaming pipeline. It owns scheduling and event
// propagation, not domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
)

var validate = validator.New()

// Settings tunes the orchestrator's channels and sweeps.
type Settings struct {
	EventBufferSize     int
	TurnQueueDepth      int
	SinkTimeout         time.Duration
	TypingSweepInterval time.Duration
	StatsInterval       time.Duration
	HistoryPromptDepth  int
}

// Orchestrator dispatches inbound client commands to the relay components
// and enforces ordering: presence before history replay, user turn
// persisted and broadcast before the provider is invoked, typing never
// blocking chat traffic. Assistant turns are generated by one loop per
// conversation, so turns queue behind each other and never interleave.
type Orchestrator struct {
	log       *slog.Logger
	settings  Settings
	presence  *Presence
	typing    *TypingTracker
	registry  *Registry
	store     repositories.IConversationRepository
	relay     *Relay
	files     contract.FileProcessor
	moderator *moderation.Moderator

	supervisor contract.ISupervisor
	events     chan event.DomainEvent

	mu      sync.Mutex
	turns   map[domain.ConversationID]chan domain.PostMessageCommand
	runCtx  context.Context
	runDone chan struct{}
	started bool
}

func NewOrchestrator(log *slog.Logger, settings Settings,
	presence *Presence, typing *TypingTracker, registry *Registry,
	store repositories.IConversationRepository, relay *Relay,
	files contract.FileProcessor, moderator *moderation.Moderator,
	supervisor contract.ISupervisor, events chan event.DomainEvent) *Orchestrator {
	return &Orchestrator{
		log:        log,
		settings:   settings,
		presence:   presence,
		typing:     typing,
		registry:   registry,
		store:      store,
		relay:      relay,
		files:      files,
		moderator:  moderator,
		supervisor: supervisor,
		events:     events,
		turns:      make(map[domain.ConversationID]chan domain.PostMessageCommand),
	}
}

// Start registers the permanent workers (fanout, typing sweep, stats
// sweep) and runs the supervisor until ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.runCtx = ctx

	o.supervisor.Add(workers.NewEventFanout(o.log, o.registry, o.events, o.settings.SinkTimeout))
	o.supervisor.Add(workers.NewTypingSweep(o.log, o.typing, o.events, o.settings.TypingSweepInterval))
	o.supervisor.Add(workers.NewStatsSweep(o.log, workers.StatsSources{
		Connections:   o.presence.CountConnections,
		Conversations: o.store.Count,
	}, o.events, o.settings.StatsInterval))
	o.runDone = make(chan struct{})
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(o.runDone)
		o.supervisor.Run(ctx)
	}()
	return nil
}

// Stop cancels the supervised context and waits for workers to drain.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	done := o.runDone
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Join registers the participant, subscribes its sink to the conversation
// and replays occupancy and history to the joiner. Presence always comes
// before history replay.
func (o *Orchestrator) Join(cmd domain.JoinCommand, sink contract.EventSink) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}

	previous, rejoining := o.presence.Get(cmd.ParticipantID)
	participant := o.presence.Join(cmd.ParticipantID, cmd.DisplayName, cmd.ConversationID)

	if rejoining && previous.ConversationID != cmd.ConversationID {
		o.registry.Move(cmd.ParticipantID, previous.ConversationID, cmd.ConversationID)
		o.registry.Subscribe(cmd.ParticipantID, cmd.ConversationID, sink)
		o.publish(event.UserLeft{ConversationID: previous.ConversationID, Participant: previous})
	} else {
		o.registry.Subscribe(cmd.ParticipantID, cmd.ConversationID, sink)
	}

	o.publish(event.UserJoined{ConversationID: cmd.ConversationID, Participant: participant})
	o.publish(event.ActiveUsers{
		ConversationID: cmd.ConversationID,
		ParticipantID:  cmd.ParticipantID,
		Participants:   o.presence.ListConversation(cmd.ConversationID),
	})
	o.publish(event.ConversationHistory{
		ConversationID: cmd.ConversationID,
		ParticipantID:  cmd.ParticipantID,
		Messages:       o.store.History(cmd.ConversationID),
	})
	return nil
}

// Leave removes the participant on explicit leave or disconnect. A
// mid-stream disconnect does not cancel the provider call; remaining
// subscribers keep receiving chunks.
func (o *Orchestrator) Leave(cmd domain.LeaveCommand) {
	participant, ok := o.presence.Leave(cmd.ParticipantID)
	if !ok {
		return
	}
	o.registry.Unsubscribe(cmd.ParticipantID, participant.ConversationID)

	for _, entry := range o.typing.StopAll(cmd.ParticipantID) {
		o.publish(event.UserTyping{
			ConversationID: entry.ConversationID,
			ParticipantID:  entry.ParticipantID,
			Typing:         false,
		})
	}
	o.publish(event.UserLeft{ConversationID: participant.ConversationID, Participant: participant})
}

// PostMessage appends and broadcasts the user turn, then queues the
// assistant turn on the conversation's loop. The user turn is visible to
// the room before the provider is ever invoked.
func (o *Orchestrator) PostMessage(cmd domain.PostMessageCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}

	content := cmd.Content
	var censored []string
	if o.moderator != nil {
		content, censored = o.moderator.Censor(cmd.Content)
		cmd.Content = content
	}

	message, err := o.store.Append(cmd.ConversationID, domain.RoleUser, content, domain.MessageMeta{
		CensoredWords: censored,
	})
	if err != nil {
		return err
	}
	o.publish(event.MessageReceived{ConversationID: cmd.ConversationID, Message: message})

	// Single-flight per conversation: the turn loop serializes assistant
	// generation, later messages queue in order behind the active one.
	select {
	case o.turnQueue(cmd.ConversationID) <- cmd:
		return nil
	default:
		return fmt.Errorf("conversation %s: %w", cmd.ConversationID, apperrors.ErrBusy)
	}
}

// Typing flips the typing indicator. Start events only notify on the
// idle->typing edge; stop notifies once, whether explicit or swept.
func (o *Orchestrator) Typing(cmd domain.TypingCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}

	changed := false
	if cmd.Active {
		changed = o.typing.Start(cmd.ParticipantID, cmd.ConversationID)
	} else {
		changed = o.typing.Stop(cmd.ParticipantID, cmd.ConversationID)
	}
	if changed {
		o.publish(event.UserTyping{
			ConversationID: cmd.ConversationID,
			ParticipantID:  cmd.ParticipantID,
			Typing:         cmd.Active,
		})
	}
	return nil
}

// CreateConversation allocates a new empty conversation.
func (o *Orchestrator) CreateConversation(cmd domain.CreateConversationCommand) (domain.ConversationID, error) {
	if err := validateCommand(cmd); err != nil {
		return "", err
	}
	return o.store.Create(cmd.Title, cmd.Metadata), nil
}

// ReportError unicasts a failure to the originating connection only.
func (o *Orchestrator) ReportError(participantID string, reason string) {
	o.publish(event.ErrorEvent{ParticipantID: participantID, Reason: reason})
}

// turnQueue returns the conversation's assistant-turn queue, starting its
// loop on first use.
func (o *Orchestrator) turnQueue(conversationID domain.ConversationID) chan domain.PostMessageCommand {
	o.mu.Lock()
	defer o.mu.Unlock()

	if queue, ok := o.turns[conversationID]; ok {
		return queue
	}
	queue := make(chan domain.PostMessageCommand, o.settings.TurnQueueDepth)
	o.turns[conversationID] = queue

	ctx := o.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	o.supervisor.Start(ctx, &turnLoop{orchestrator: o, conversationID: conversationID, queue: queue})
	return queue
}

// turnLoop serializes assistant-turn generation for one conversation.
type turnLoop struct {
	orchestrator   *Orchestrator
	conversationID domain.ConversationID
	queue          chan domain.PostMessageCommand
}

func (l *turnLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-l.queue:
			if !ok {
				return nil
			}
			l.orchestrator.generateTurn(ctx, cmd)
		}
	}
}

// generateTurn composes the prompt and drives one assistant turn through
// the relay. Provider failures are already absorbed by the relay; this
// boundary only guards against the unexpected.
func (o *Orchestrator) generateTurn(ctx context.Context, cmd domain.PostMessageCommand) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Assistant turn panicked",
				"conversation_id", cmd.ConversationID, "panic", r)
			o.ReportError(cmd.ParticipantID, "internal error while generating the reply")
		}
	}()

	prompt := o.buildPrompt(cmd)
	opts := parseOptions(cmd.Options)

	if cmd.Streaming {
		o.relay.StreamTurn(ctx, cmd.ConversationID, prompt, opts)
	} else {
		o.relay.CompleteTurn(ctx, cmd.ConversationID, prompt, opts)
	}
}

// buildPrompt folds the recent history window and any uploaded-file
// context around the new user message. Waiting on file extraction happens
// here, before the provider call, never inside the relay.
func (o *Orchestrator) buildPrompt(cmd domain.PostMessageCommand) string {
	history := o.store.History(cmd.ConversationID)
	if depth := o.settings.HistoryPromptDepth; depth > 0 && len(history) > depth {
		history = history[len(history)-depth:]
	}

	var b strings.Builder
	if o.files != nil && len(cmd.Files) > 0 {
		if fileContext := o.files.ProcessFiles(cmd.Files); fileContext != "" {
			b.WriteString(fileContext)
			b.WriteString("\n")
		}
	}
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) publish(evt event.DomainEvent) {
	select {
	case o.events <- evt:
	default:
		o.log.Warn("Event channel full, dropping event",
			"conversation_id", evt.Conversation())
	}
}

func parseOptions(raw map[string]any) contract.Options {
	var opts contract.Options
	if raw == nil {
		return opts
	}
	if temperature, ok := raw["temperature"].(float64); ok {
		opts.Temperature = lo.ToPtr(temperature)
	}
	switch maxTokens := raw["maxTokens"].(type) {
	case int:
		opts.MaxTokens = lo.ToPtr(maxTokens)
	case float64:
		opts.MaxTokens = lo.ToPtr(int(maxTokens))
	}
	if model, ok := raw["model"].(string); ok {
		opts.Model = model
	}
	return opts
}

func validateCommand(cmd domain.Command) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}
