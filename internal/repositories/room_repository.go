package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"event-chat-service/internal/models"
)

var ErrRoomNotFound = errors.New("chat room not found")

// RoomRepository abstracts chat room persistence. Rooms are always resolved
// through their event; nothing addresses a room by its own id.
type RoomRepository interface {
	GetOrCreateRoom(ctx context.Context, eventID string) (models.ChatRoom, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const foreignKeyViolation = "23503"

// GetOrCreateRoom returns the room bound to the event, creating it on first
// access. The unique constraint on event_id keeps concurrent first accesses
// from producing two rooms; whichever insert loses the race reads back the
// winner's row.
func (r *RoomRepo) GetOrCreateRoom(ctx context.Context, eventID string) (models.ChatRoom, error) {
	var room models.ChatRoom
	query := `SELECT id, event_id, created_at FROM chat_rooms WHERE event_id=$1`
	err := r.db.GetContext(ctx, &room, query, eventID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO chat_rooms (id, event_id) VALUES ($1, $2)
        ON CONFLICT (event_id) DO NOTHING`, uuid.NewString(), eventID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return models.ChatRoom{}, ErrEventNotFound
		}
		return models.ChatRoom{}, err
	}

	err = r.db.GetContext(ctx, &room, query, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}
