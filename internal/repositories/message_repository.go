package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"event-chat-service/internal/models"
)

// MessageRepository defines the durable, append-only message log per room.
type MessageRepository interface {
	Append(ctx context.Context, roomID string, userID string, content string, messageType string) (models.Message, error)
	ListRecent(ctx context.Context, roomID string, limit int, offset int) ([]models.Message, int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message ordered after everything previously appended to the
// room. The returned message carries the store-assigned seq and timestamp.
func (r *MessageRepo) Append(ctx context.Context, roomID string, userID string, content string, messageType string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, chat_room_id, user_id, content, message_type) VALUES ($1, $2, $3, $4, $5)
        RETURNING id, seq, chat_room_id, user_id, content, message_type, created_at`,
		uuid.NewString(), roomID, userID, content, messageType).
		Scan(&msg.ID, &msg.Seq, &msg.ChatRoomID, &msg.UserID, &msg.Content, &msg.MessageType, &msg.CreatedAt)
	return msg, err
}

// ListRecent pages through the room's log newest-to-oldest (offset counted
// from the newest message) and returns each page oldest-first, with the total
// message count for the room.
func (r *MessageRepo) ListRecent(ctx context.Context, roomID string, limit int, offset int) ([]models.Message, int, error) {
	query := `SELECT id, seq, chat_room_id, user_id, content, message_type, created_at
        FROM messages
        WHERE chat_room_id=$1
        ORDER BY seq DESC
        LIMIT $2 OFFSET $3`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, roomID, limit, offset); err != nil {
		return nil, 0, err
	}

	reverseChronological(msgs)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE chat_room_id=$1`, roomID); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// reverseChronological flips a newest-first page into append order in place,
// so each page reads oldest to newest while offsets still walk backward from
// the newest message.
func reverseChronological(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
