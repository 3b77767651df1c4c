// Package domain contains core concepts of the chat relay.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is one connected user. The ID is stable for the lifetime of
// the connection and a participant belongs to exactly one conversation at a
// time (re-joinable).
type Participant struct {
	ID             string
	DisplayName    string
	ConversationID ConversationID
	JoinedAt       time.Time
}
