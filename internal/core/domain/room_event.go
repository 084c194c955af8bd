package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomEventType defines the type of real-time event fanned out to a room.
type RoomEventType string

const (
	RoomUserOnline        RoomEventType = "user_online"
	RoomUserOffline       RoomEventType = "user_offline"
	RoomNewMessage        RoomEventType = "new_message"
	RoomNewNotification   RoomEventType = "new_notification"
	RoomUserTyping        RoomEventType = "user_typing"
	RoomUserStopTyping    RoomEventType = "user_stop_typing"
	RoomChatStatusChanged RoomEventType = "chat_status_changed"
	RoomError             RoomEventType = "error"
)

// RoomEvent is the payload sent over WebSocket to a case's room. Live
// delivery is a low-latency hint only: the persisted event log defines
// canonical order, and receivers must deduplicate by event ID against
// any history they fetched.
type RoomEvent struct {
	Type    RoomEventType `json:"type"`
	CaseID  int64         `json:"caseId"` // Used for routing to case "rooms"
	Payload interface{}   `json:"payload,omitempty"`
}

// PresencePayload announces a join or leave to room peers.
type PresencePayload struct {
	ViewerID uuid.UUID  `json:"viewerId"`
	Role     ViewerRole `json:"role"`
}

// TypingPayload is the ephemeral typing signal. Never persisted.
type TypingPayload struct {
	ViewerID uuid.UUID  `json:"viewerId"`
	Role     ViewerRole `json:"role"`
}

// MessagePayload is the fully-hydrated message broadcast to the room.
type MessagePayload struct {
	EventID     int64        `json:"eventId"`
	CaseID      int64        `json:"caseId"`
	SenderID    uuid.UUID    `json:"senderId"`
	SenderName  string       `json:"senderName"`
	SenderRole  ViewerRole   `json:"senderRole"`
	Content     string       `json:"content"`
	IsInternal  bool         `json:"isInternal"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NotificationPayload is the truncated hint sent to peers for toast/badge
// UI. It is not a substitute for the message content.
type NotificationPayload struct {
	CaseID     int64     `json:"caseId"`
	EventID    int64     `json:"eventId"`
	SenderID   uuid.UUID `json:"senderId"`
	SenderName string    `json:"senderName"`
	Preview    string    `json:"preview"`
}

// ChatStatusPayload announces a flip of the case's live-chat flag.
type ChatStatusPayload struct {
	CaseID  int64     `json:"caseId"`
	Active  bool      `json:"active"`
	ActorID uuid.UUID `json:"actorId"`
}

// ErrorPayload is sent back to a single transport when a command it issued
// over the socket failed. Persistence failures are never swallowed.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
