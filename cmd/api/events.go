package main

import (
	"encoding/json"
	"time"

	"github.com/kehindes/groupspace/internal/data"
	"github.com/kehindes/groupspace/internal/hub"
)

// Inbound event types accepted on the websocket.
const (
	evAuthenticate = "authenticate"
	evJoinGroup    = "join_group"
	evLeaveGroup   = "leave_group"
	evSendMessage  = "send_message"
	evTyping       = "typing"
	evStopTyping   = "stop_typing"
)

// Outbound event types pushed to connected clients.
const (
	evAuthenticated  = "authenticated"
	evAuthError      = "auth_error"
	evError          = "error"
	evNewMessage     = "new_message"
	evMessageDeleted = "message_deleted"
	evUserJoined     = "user_joined"
	evUserLeft       = "user_left"
	evOnlineUsers    = "online_users"
	evNoteUpdated    = "note_updated"
)

// inboundEvent is the envelope clients send. Payload stays raw until the
// event type tells us what to decode it into.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId"`
}

type sendMessagePayload struct {
	GroupID string `json:"groupId"`
	Text    string `json:"text"`
}

type typingPayload struct {
	GroupID string `json:"groupId"`
}

type authenticatedPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type presencePayload struct {
	GroupID     string `json:"groupId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type onlineUsersPayload struct {
	GroupID string            `json:"groupId"`
	Users   []hub.RosterEntry `json:"users"`
}

type typingEventPayload struct {
	GroupID     string `json:"groupId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type messageDeletedPayload struct {
	MessageID string `json:"messageId"`
	GroupID   string `json:"groupId"`
}

type noteUpdatedPayload struct {
	GroupID      string        `json:"groupId"`
	LastEditedBy *data.UserRef `json:"lastEditedBy"`
	LastEditedAt *time.Time    `json:"lastEditedAt"`
}
