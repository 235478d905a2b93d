package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"event-chat-service/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// EventRepository exposes the slice of event state this service needs: event
// identity and the attendee set behind the membership check.
type EventRepository interface {
	GetEvent(ctx context.Context, eventID string) (models.Event, error)
	IsAttendee(ctx context.Context, eventID string, userID string) (bool, error)
	AddAttendee(ctx context.Context, eventID string, userID string) error
	RemoveAttendee(ctx context.Context, eventID string, userID string) error
}

// EventRepo is a sqlx implementation of EventRepository.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo constructs an EventRepo.
func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

// GetEvent fetches an event by id.
func (r *EventRepo) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	var event models.Event
	err := r.db.GetContext(ctx, &event, `SELECT id, title, created_by, created_at FROM events WHERE id=$1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, ErrEventNotFound
	}
	return event, err
}

// IsAttendee reports whether the user belongs to the event's attendee set.
// A missing event is reported as ErrEventNotFound, not as non-membership.
func (r *EventRepo) IsAttendee(ctx context.Context, eventID string, userID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE id=$1)`, eventID); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrEventNotFound
	}

	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM event_attendees WHERE event_id=$1 AND user_id=$2)`, eventID, userID)
	return exists, err
}

// AddAttendee records event attendance. Idempotent.
func (r *EventRepo) AddAttendee(ctx context.Context, eventID string, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)
        ON CONFLICT (event_id, user_id) DO NOTHING`, eventID, userID)
	return err
}

// RemoveAttendee drops the user from the attendee set.
func (r *EventRepo) RemoveAttendee(ctx context.Context, eventID string, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id=$1 AND user_id=$2`, eventID, userID)
	return err
}
