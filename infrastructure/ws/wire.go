package ws

import (
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
)

// inboundFrame is one client intent decoded from a websocket text frame.
// Type selects which of the optional fields are meaningful.
type inboundFrame struct {
	Type           string            `json:"type"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Content        string            `json:"content,omitempty"`
	Streaming      bool              `json:"streaming,omitempty"`
	Active         bool              `json:"active,omitempty"`
	Title          string            `json:"title,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Files          []inboundFile     `json:"files,omitempty"`
	Options        map[string]any    `json:"options,omitempty"`
}

type inboundFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

const (
	frameJoin               = "join"
	framePostMessage        = "post_message"
	frameTyping             = "typing"
	frameCreateConversation = "create_conversation"
)

// outboundFrame is the envelope written to every connected client. Payload
// shape depends on Type; absent fields are omitted on the wire.
type outboundFrame struct {
	Type           string            `json:"type"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Message        *wireMessage      `json:"message,omitempty"`
	MessageID      string            `json:"message_id,omitempty"`
	Fragment       string            `json:"fragment,omitempty"`
	ParticipantID  string            `json:"participant_id,omitempty"`
	DisplayName    string            `json:"display_name,omitempty"`
	Typing         bool              `json:"typing,omitempty"`
	Participants   []wireParticipant `json:"participants,omitempty"`
	Messages       []wireMessage     `json:"messages,omitempty"`
	Stats          *wireStats        `json:"stats,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	At             *time.Time        `json:"at,omitempty"`
}

type wireMessage struct {
	ID        string             `json:"id"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
	Meta      domain.MessageMeta `json:"meta,omitempty"`
}

type wireParticipant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

type wireStats struct {
	Connections   int     `json:"connections"`
	Conversations int     `json:"conversations"`
	CPUPercent    float64 `json:"cpu_percent"`
	RSSBytes      uint64  `json:"rss_bytes"`
}

func toWireMessage(m domain.Message) wireMessage {
	return wireMessage{
		ID:        m.ID.String(),
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Meta:      m.Meta,
	}
}

func toWireMessages(messages []domain.Message) []wireMessage {
	out := make([]wireMessage, len(messages))
	for i, m := range messages {
		out[i] = toWireMessage(m)
	}
	return out
}

func toWireParticipants(participants []domain.Participant) []wireParticipant {
	out := make([]wireParticipant, len(participants))
	for i, p := range participants {
		out[i] = wireParticipant{ID: p.ID, DisplayName: p.DisplayName, JoinedAt: p.JoinedAt}
	}
	return out
}

// encodeEvent maps a domain event onto its wire envelope. Unknown event
// types return ok=false and are skipped rather than breaking the stream.
func encodeEvent(e event.DomainEvent) (outboundFrame, bool) {
	switch evt := e.(type) {
	case event.MessageReceived:
		msg := toWireMessage(evt.Message)
		return outboundFrame{
			Type:           "message_received",
			ConversationID: string(evt.ConversationID),
			Message:        &msg,
		}, true
	case event.StreamStarted:
		at := evt.At
		return outboundFrame{
			Type:           "stream_start",
			ConversationID: string(evt.ConversationID),
			MessageID:      evt.MessageID.String(),
			At:             &at,
		}, true
	case event.StreamChunk:
		return outboundFrame{
			Type:           "stream_chunk",
			ConversationID: string(evt.ConversationID),
			MessageID:      evt.MessageID.String(),
			Fragment:       evt.Fragment,
		}, true
	case event.StreamCompleted:
		msg := toWireMessage(evt.Message)
		return outboundFrame{
			Type:           "stream_complete",
			ConversationID: string(evt.ConversationID),
			Message:        &msg,
		}, true
	case event.UserJoined:
		return outboundFrame{
			Type:           "user_joined",
			ConversationID: string(evt.ConversationID),
			ParticipantID:  evt.Participant.ID,
			DisplayName:    evt.Participant.DisplayName,
		}, true
	case event.UserLeft:
		return outboundFrame{
			Type:           "user_left",
			ConversationID: string(evt.ConversationID),
			ParticipantID:  evt.Participant.ID,
			DisplayName:    evt.Participant.DisplayName,
		}, true
	case event.UserTyping:
		return outboundFrame{
			Type:           "user_typing",
			ConversationID: string(evt.ConversationID),
			ParticipantID:  evt.ParticipantID,
			Typing:         evt.Typing,
		}, true
	case event.ActiveUsers:
		return outboundFrame{
			Type:           "active_users",
			ConversationID: string(evt.ConversationID),
			Participants:   toWireParticipants(evt.Participants),
		}, true
	case event.ConversationHistory:
		return outboundFrame{
			Type:           "history",
			ConversationID: string(evt.ConversationID),
			Messages:       toWireMessages(evt.Messages),
		}, true
	case event.ServerStats:
		at := evt.At
		return outboundFrame{
			Type: "server_stats",
			Stats: &wireStats{
				Connections:   evt.Connections,
				Conversations: evt.Conversations,
				CPUPercent:    evt.CPUPercent,
				RSSBytes:      evt.RSSBytes,
			},
			At: &at,
		}, true
	case event.ConversationCreated:
		return outboundFrame{
			Type:           "conversation_created",
			ConversationID: string(evt.ConversationID),
		}, true
	case event.ErrorEvent:
		return outboundFrame{Type: "error", Reason: evt.Reason}, true
	default:
		return outboundFrame{}, false
	}
}

// REST payloads.

type sessionRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Password      string `json:"password,omitempty"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

type conversationPatch struct {
	Title    *string           `json:"title,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Score          int    `json:"score"`
	Preview        string `json:"preview"`
	MessageCount   int    `json:"message_count"`
	UpdatedAt      string `json:"updated_at"`
}

type archiveSearchResponse struct {
	Results []repositories.ArchivedMessage `json:"results"`
}
