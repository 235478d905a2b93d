package ws

import "event-chat-service/internal/models"

// Inbound command types.
const (
	CommandJoinEventChat  = "join_event_chat"
	CommandLeaveEventChat = "leave_event_chat"
)

// Outbound event types.
const (
	EventNewMessage = "new_message"
	EventUserJoined = "user_joined_chat"
	EventUserLeft   = "user_left_chat"
	EventJoined     = "joined_chat"
	EventError      = "error"
)

// Command is the inbound wire shape for client requests on the socket.
type Command struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
}

// NewMessageEvent is broadcast to a room when a message is persisted. The
// message fields are flattened into the payload alongside the event id.
type NewMessageEvent struct {
	Type string `json:"type"`
	models.Message
	EventID string `json:"event_id"`
}

// PresenceEvent notifies a room that a user joined or left its chat.
type PresenceEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	EventID  string `json:"event_id"`
}

// JoinedEvent confirms a successful join to the requester only.
type JoinedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Room    string `json:"room"`
}

// ErrorEvent reports a failed command to the requester only.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
