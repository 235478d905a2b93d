package models

import "time"

// ChatRoom binds exactly one chat channel to an event. Rooms are created
// lazily on first access and never deleted by this service.
type ChatRoom struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
