package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/files"
	"chat-relay/infrastructure/ws"
	"chat-relay/moderation"
	"chat-relay/provider"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the relay lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	replacement, err := characterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}

	// 2. Storage (BadgerDB cache mirror + bluge trim archive)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	archive, err := repositories.NewArchive(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("archive opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing archive index...")
		_ = archive.Close()
	}()

	mirror := repositories.NewMirror(db, config.CacheTTL, log)
	store := repositories.NewConversationRepository(config.MaxHistoryLength, mirror, archive, log)

	// 3. Collaborators
	moderator, err := moderation.NewModerator(splitWords(config.ModerationWords), replacement, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}
	fileProcessor := files.NewProcessor(log)
	tokens := auth.NewTokenService([]byte(config.AuthSecret), config.AuthTokenDuration)
	credentials := auth.NewCredentialStore()

	textProvider := provider.NewOpenAIProvider(
		config.ProviderURL, config.ProviderAPIKey, config.ProviderModel,
		config.ProviderTimeout, log,
	)

	// 4. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	events := make(chan event.DomainEvent, config.BufferSize)
	relay := runtime.NewRelay(log, textProvider, store, events, config.ProviderTimeout)

	orchestrator := runtime.NewOrchestrator(
		log,
		runtime.Settings{
			EventBufferSize:     config.BufferSize,
			TurnQueueDepth:      config.TurnQueueDepth,
			SinkTimeout:         config.SinkTimeout,
			TypingSweepInterval: config.TypingSweepInterval,
			StatsInterval:       config.StatsInterval,
			HistoryPromptDepth:  config.HistoryPromptDepth,
		},
		runtime.NewPresence(),
		runtime.NewTypingTracker(config.TypingTimeout),
		runtime.NewRegistry(),
		store, relay, fileProcessor, &moderator, sup, events,
	)

	service := services.NewChatService(orchestrator, store, archive)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Start the Engine
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 7. HTTP/Websocket Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: ws.NewServer(log, service, tokens, credentials, config.ConnectionBufferSize).Router(),
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func splitWords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			words = append(words, trimmed)
		}
	}
	return words
}
