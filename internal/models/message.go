package models

import "time"

// MessageTypeText is the default message kind.
const MessageTypeText = "text"

// Message is an immutable chat message. Seq is assigned by the store and
// totally orders messages within a room; it is not part of the wire shape.
type Message struct {
	ID          string    `db:"id" json:"id"`
	Seq         int64     `db:"seq" json:"-"`
	ChatRoomID  string    `db:"chat_room_id" json:"chat_room_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Content     string    `db:"content" json:"content"`
	MessageType string    `db:"message_type" json:"message_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
