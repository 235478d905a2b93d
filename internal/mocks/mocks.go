package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"event-chat-service/internal/chat"
	"event-chat-service/internal/models"
	"event-chat-service/internal/repositories"
)

type EventRepositoryMock struct {
	mock.Mock
}

func (m *EventRepositoryMock) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	args := m.Called(ctx, eventID)
	var event models.Event
	if val := args.Get(0); val != nil {
		event = val.(models.Event)
	}
	return event, args.Error(1)
}

func (m *EventRepositoryMock) IsAttendee(ctx context.Context, eventID string, userID string) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *EventRepositoryMock) AddAttendee(ctx context.Context, eventID string, userID string) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

func (m *EventRepositoryMock) RemoveAttendee(ctx context.Context, eventID string, userID string) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetOrCreateRoom(ctx context.Context, eventID string) (models.ChatRoom, error) {
	args := m.Called(ctx, eventID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, roomID string, userID string, content string, messageType string) (models.Message, error) {
	args := m.Called(ctx, roomID, userID, content, messageType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRecent(ctx context.Context, roomID string, limit int, offset int) ([]models.Message, int, error) {
	args := m.Called(ctx, roomID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Int(1), args.Error(2)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastNewMessage(eventID string, msg models.Message) {
	m.Called(eventID, msg)
}

var _ repositories.EventRepository = (*EventRepositoryMock)(nil)
var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ chat.MembershipOracle = (*EventRepositoryMock)(nil)
var _ chat.Broadcaster = (*BroadcasterMock)(nil)
