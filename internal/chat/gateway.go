package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"event-chat-service/internal/models"
	"event-chat-service/internal/repositories"
)

// DefaultHistoryLimit is the page size used when the client does not ask for one.
const DefaultHistoryLimit = 50

// MembershipOracle answers whether a user belongs to an event's attendee set.
// It is consulted on every privileged action; results are never cached because
// the attendee set can change between actions.
type MembershipOracle interface {
	IsAttendee(ctx context.Context, eventID string, userID string) (bool, error)
}

// Broadcaster fans a persisted message out to the room's live subscribers.
// Delivery is best-effort; failures must never surface to the caller.
type Broadcaster interface {
	BroadcastNewMessage(eventID string, msg models.Message)
}

// History is the result of a paginated room history read.
type History struct {
	Messages []models.Message
	RoomID   string
	Total    int
}

// Gateway orchestrates membership checks, room resolution, message
// persistence and fan-out. Messages are durably stored before any broadcast.
type Gateway struct {
	oracle      MembershipOracle
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	users       repositories.UserRepository
	broadcaster Broadcaster

	storeTimeout time.Duration
	retryBackoff time.Duration
}

// NewGateway builds a Gateway with default store timeouts.
func NewGateway(oracle MembershipOracle, rooms repositories.RoomRepository, messages repositories.MessageRepository, users repositories.UserRepository, broadcaster Broadcaster) *Gateway {
	return &Gateway{
		oracle:       oracle,
		rooms:        rooms,
		messages:     messages,
		users:        users,
		broadcaster:  broadcaster,
		storeTimeout: 5 * time.Second,
		retryBackoff: 200 * time.Millisecond,
	}
}

// GetHistory returns a chronological page of the event's room history.
// Offsets count back from the newest message, so increasing offsets walk
// backward in time while each page itself reads oldest-first.
func (g *Gateway) GetHistory(ctx context.Context, userID string, eventID string, limit int, offset int) (History, error) {
	if limit < 0 || offset < 0 {
		return History{}, ErrInvalidArgument
	}

	if err := g.assertMember(ctx, eventID, userID); err != nil {
		return History{}, err
	}

	room, err := g.getOrCreateRoom(ctx, eventID)
	if err != nil {
		return History{}, err
	}

	msgs, total, err := g.listRecent(ctx, room.ID, limit, offset)
	if err != nil {
		return History{}, err
	}
	return History{Messages: msgs, RoomID: room.ID, Total: total}, nil
}

// PostMessage validates, persists and then broadcasts a message. The
// broadcast payload is the store-confirmed record, never a draft; if the
// append fails nothing is broadcast.
func (g *Gateway) PostMessage(ctx context.Context, userID string, eventID string, content string, messageType string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrInvalidContent
	}
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	if err := g.assertMember(ctx, eventID, userID); err != nil {
		return models.Message{}, err
	}

	room, err := g.getOrCreateRoom(ctx, eventID)
	if err != nil {
		return models.Message{}, err
	}

	// Append is never retried internally; a duplicate would be worse than
	// asking the client to resubmit.
	appendCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	msg, err := g.messages.Append(appendCtx, room.ID, userID, content, messageType)
	if err != nil {
		return models.Message{}, g.storeErr(err)
	}

	if g.broadcaster != nil {
		g.broadcaster.BroadcastNewMessage(eventID, msg)
	}
	return msg, nil
}

// AuthorizeJoin runs the membership gate for a live join and resolves the
// room and the joining user's profile for the presence notification.
func (g *Gateway) AuthorizeJoin(ctx context.Context, userID string, eventID string) (models.ChatRoom, models.User, error) {
	if err := g.assertMember(ctx, eventID, userID); err != nil {
		return models.ChatRoom{}, models.User{}, err
	}

	room, err := g.getOrCreateRoom(ctx, eventID)
	if err != nil {
		return models.ChatRoom{}, models.User{}, err
	}

	userCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	user, err := g.users.GetUser(userCtx, userID)
	if err != nil {
		return models.ChatRoom{}, models.User{}, g.storeErr(err)
	}
	return room, user, nil
}

func (g *Gateway) assertMember(ctx context.Context, eventID string, userID string) error {
	checkCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	member, err := g.oracle.IsAttendee(checkCtx, eventID, userID)
	if err != nil {
		return g.storeErr(err)
	}
	if !member {
		return ErrForbidden
	}
	return nil
}

func (g *Gateway) getOrCreateRoom(ctx context.Context, eventID string) (models.ChatRoom, error) {
	roomCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	room, err := g.rooms.GetOrCreateRoom(roomCtx, eventID)
	if err != nil {
		return models.ChatRoom{}, g.storeErr(err)
	}
	return room, nil
}

// listRecent retries a timed-out read once; reads are idempotent.
func (g *Gateway) listRecent(ctx context.Context, roomID string, limit int, offset int) ([]models.Message, int, error) {
	msgs, total, err := g.tryListRecent(ctx, roomID, limit, offset)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		time.Sleep(g.retryBackoff)
		msgs, total, err = g.tryListRecent(ctx, roomID, limit, offset)
	}
	if err != nil {
		return nil, 0, g.storeErr(err)
	}
	return msgs, total, nil
}

func (g *Gateway) tryListRecent(ctx context.Context, roomID string, limit int, offset int) ([]models.Message, int, error) {
	readCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	return g.messages.ListRecent(readCtx, roomID, limit, offset)
}

func (g *Gateway) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreTimeout
	}
	return err
}
