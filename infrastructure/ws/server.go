// Package ws exposes the relay over HTTP: a websocket endpoint for the
// real-time event stream and plain JSON endpoints for conversation
// management. Identity is resolved here, at the boundary; the runtime
// packages only ever see participant ids.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

type Server struct {
	log                  *slog.Logger
	chatService          services.IChatService
	tokens               *auth.TokenService
	credentials          *auth.CredentialStore
	connectionBufferSize int
	upgrader             websocket.Upgrader
}

func NewServer(log *slog.Logger, chatService services.IChatService,
	tokens *auth.TokenService, credentials *auth.CredentialStore,
	connectionBufferSize int) *Server {
	return &Server{
		log:                  log,
		chatService:          chatService,
		tokens:               tokens,
		credentials:          credentials,
		connectionBufferSize: connectionBufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("GET /ws", s.handleConnect)
	mux.HandleFunc("GET /conversations", s.handleList)
	mux.HandleFunc("GET /conversations/search", s.handleSearch)
	mux.HandleFunc("GET /conversations/archive", s.handleArchiveSearch)
	mux.HandleFunc("GET /conversations/{id}/export", s.handleExport)
	mux.HandleFunc("PATCH /conversations/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleRemove)
	return mux
}

// handleSession issues a signed session token. With a credential store
// configured, the first session presenting a password claims the
// participant id; later sessions for that id must present the same one.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" {
		req.ParticipantID = uuid.NewString()
	}
	if req.DisplayName == "" {
		http.Error(w, "display_name is required", http.StatusBadRequest)
		return
	}
	if err := s.checkCredentials(req); err != nil {
		s.log.Warn("Session rejected", "participant_id", req.ParticipantID, "error", err)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.tokens.Issue(req.ParticipantID, req.DisplayName)
	if err != nil {
		s.log.Error("Token issuance failed", "error", err)
		http.Error(w, "token issuance failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token})
}

// handleConnect upgrades the connection, joins the participant and pumps
// events until the client goes away. It blocks for the lifetime of the
// connection; cleanup is ensured via deferred Leave so a dropped client
// never lingers in the registry.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conversationID := domain.ConversationID(r.URL.Query().Get("conversation_id"))
	if conversationID == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sink := runtime.NewConnectionSink(s.connectionBufferSize)
	joinCmd := domain.JoinCommand{
		ParticipantID:  claims.ParticipantID,
		DisplayName:    claims.DisplayName,
		ConversationID: conversationID,
	}
	if err := s.chatService.Join(joinCmd, sink); err != nil {
		s.log.Warn("Join rejected", "participant_id", claims.ParticipantID, "error", err)
		// The write pump has not started yet; this is the only writer.
		_ = conn.WriteJSON(outboundFrame{Type: "error", Reason: err.Error()})
		return
	}
	defer s.chatService.Leave(domain.LeaveCommand{ParticipantID: claims.ParticipantID})

	done := make(chan struct{})
	go s.writePump(conn, sink, done)

	s.readPump(conn, claims, sink)
	close(done)

	s.log.Info("Client disconnected",
		"participant_id", claims.ParticipantID,
		"conversation_id", conversationID)
}

// writePump drains the connection sink onto the wire. A write error means
// the client is gone; the read pump will notice on its next read.
func (s *Server) writePump(conn *websocket.Conn, sink *runtime.ConnectionSink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt := <-sink.Events:
			frame, ok := encodeEvent(evt)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				s.log.Warn("Websocket write failed", "error", err)
				return
			}
		}
	}
}

// readPump decodes inbound frames and dispatches them as commands until
// the connection errors out. Replies go through the connection sink: the
// write pump is the connection's only writer, direct WriteJSON calls here
// would race with it.
func (s *Server) readPump(conn *websocket.Conn, claims *auth.ParticipantClaims, sink *runtime.ConnectionSink) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Websocket read failed", "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.reply(sink, event.ErrorEvent{ParticipantID: claims.ParticipantID, Reason: "malformed frame"})
			continue
		}
		if err := s.dispatch(frame, claims, sink); err != nil {
			s.reply(sink, event.ErrorEvent{ParticipantID: claims.ParticipantID, Reason: err.Error()})
		}
	}
}

func (s *Server) dispatch(frame inboundFrame, claims *auth.ParticipantClaims, sink *runtime.ConnectionSink) error {
	switch frame.Type {
	case framePostMessage:
		return s.chatService.PostMessage(domain.PostMessageCommand{
			ParticipantID:  claims.ParticipantID,
			ConversationID: domain.ConversationID(frame.ConversationID),
			Content:        frame.Content,
			Streaming:      frame.Streaming,
			Files: lo.Map(frame.Files, func(f inboundFile, _ int) domain.FileRef {
				return domain.FileRef{Name: f.Name, Data: f.Data}
			}),
			Options:   frame.Options,
			CreatedAt: time.Now().UTC(),
		})
	case frameTyping:
		return s.chatService.Typing(domain.TypingCommand{
			ParticipantID:  claims.ParticipantID,
			ConversationID: domain.ConversationID(frame.ConversationID),
			Active:         frame.Active,
		})
	case frameJoin:
		// Switching conversations reuses the wire connection and its sink;
		// the registry moves the subscription to the new conversation.
		return s.chatService.Join(domain.JoinCommand{
			ParticipantID:  claims.ParticipantID,
			DisplayName:    claims.DisplayName,
			ConversationID: domain.ConversationID(frame.ConversationID),
		}, sink)
	case frameCreateConversation:
		id, err := s.chatService.CreateConversation(domain.CreateConversationCommand{
			ParticipantID: claims.ParticipantID,
			Title:         frame.Title,
			Metadata:      frame.Metadata,
		})
		if err != nil {
			return err
		}
		s.reply(sink, event.ConversationCreated{
			ConversationID: id,
			ParticipantID:  claims.ParticipantID,
		})
		return nil
	default:
		return fmt.Errorf("unknown frame type %q", frame.Type)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chatService.List())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := s.chatService.Search(query)
	hits := lo.Map(results, func(res repositories.SearchResult, _ int) searchHit {
		return searchHit{
			ConversationID: string(res.Summary.ID),
			Title:          res.Summary.Title,
			Score:          res.Score,
			Preview:        res.Summary.LastMessage,
			MessageCount:   res.Summary.MessageCount,
			UpdatedAt:      res.Summary.UpdatedAt.Format(time.RFC3339),
		}
	})
	writeJSON(w, http.StatusOK, searchResponse{Results: hits})
}

func (s *Server) handleArchiveSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	conversationID := domain.ConversationID(r.URL.Query().Get("conversation_id"))
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := s.chatService.SearchArchive(r.Context(), query, conversationID, limit)
	if err != nil {
		http.Error(w, err.Error(), apperrors.MapToHTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, archiveSearchResponse{Results: results})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(r.PathValue("id"))
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	payload, err := s.chatService.Export(id, format)
	if err != nil {
		http.Error(w, err.Error(), apperrors.MapToHTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", exportContentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", string(id)+"."+exportExtension(format)))
	_, _ = w.Write(payload)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(r.PathValue("id"))
	var patch conversationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.chatService.Update(id, patch.Title, patch.Metadata); err != nil {
		http.Error(w, err.Error(), apperrors.MapToHTTPStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(r.PathValue("id"))
	if err := s.chatService.Remove(id); err != nil {
		http.Error(w, err.Error(), apperrors.MapToHTTPStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reply pushes a direct response onto the connection's outbound sink, so
// it is serialized with broadcast traffic by the single write pump.
func (s *Server) reply(sink *runtime.ConnectionSink, evt event.DomainEvent) {
	_ = sink.Consume(context.Background(), evt)
}

// checkCredentials enforces the optional password on a participant id. An
// unclaimed id with no password stays open: guests get throwaway ids.
func (s *Server) checkCredentials(req sessionRequest) error {
	if s.credentials == nil {
		return nil
	}
	if s.credentials.Known(req.ParticipantID) {
		return s.credentials.Verify(req.ParticipantID, req.Password)
	}
	if req.Password != "" {
		return s.credentials.Register(req.ParticipantID, req.Password)
	}
	return nil
}

// authenticate accepts the token either as a bearer header or as a query
// parameter, since browser websocket clients cannot set headers.
func (s *Server) authenticate(r *http.Request) (*auth.ParticipantClaims, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return nil, fmt.Errorf("missing token")
	}
	return s.tokens.Verify(token)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func exportContentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "csv":
		return "text/csv"
	case "markdown":
		return "text/markdown"
	default:
		return "text/plain; charset=utf-8"
	}
}

func exportExtension(format string) string {
	switch format {
	case "markdown":
		return "md"
	default:
		return format
	}
}
