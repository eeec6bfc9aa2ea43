package models

import (
	"time"
)

// ChatMessage represents a single turn in a conversation. The transcript itself lives in the browser; the
// server only sees the trailing part of it that the client replays with each request.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the person using the assistant.
	RoleUser Role = "user"
	// RoleAssistant represents a message produced by the provider, or the persona instruction when it is
	// sent with the assistant role.
	RoleAssistant Role = "assistant"
	// RoleSystem represents a dedicated instruction message for providers that distinguish it.
	RoleSystem Role = "system"
)

// DefaultHistoryLimit is the number of trailing history entries replayed to the provider.
const DefaultHistoryLimit = 10

// Valid reports whether r is a role a client may send in its history.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// TrailingHistory returns the last limit entries of history, preserving their order. A non-positive limit
// returns nil.
func TrailingHistory[T any](history []T, limit int) []T {
	if limit <= 0 {
		return nil
	}
	if len(history) > limit {
		return history[len(history)-limit:]
	}
	return history
}

// NewChatMessage creates a message stamped with the current time.
func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}
