package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-chat-service/internal/chat"
	"event-chat-service/internal/mocks"
	"event-chat-service/internal/models"
	"event-chat-service/internal/repositories"
)

type handlerFixture struct {
	events      *mocks.EventRepositoryMock
	rooms       *mocks.RoomRepositoryMock
	messages    *mocks.MessageRepositoryMock
	users       *mocks.UserRepositoryMock
	broadcaster *mocks.BroadcasterMock
	router      *gin.Engine
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		events:      new(mocks.EventRepositoryMock),
		rooms:       new(mocks.RoomRepositoryMock),
		messages:    new(mocks.MessageRepositoryMock),
		users:       new(mocks.UserRepositoryMock),
		broadcaster: new(mocks.BroadcasterMock),
	}

	gateway := chat.NewGateway(f.events, f.rooms, f.messages, f.users, f.broadcaster)
	handler := NewChatHandler(gateway, f.users, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/chat/events/:event_id/messages", handler.GetChatHistory)
	r.POST("/chat/events/:event_id/messages", handler.PostChatMessage)
	f.router = r
	return f
}

func (f *handlerFixture) allowMember(eventID string) {
	f.events.On("IsAttendee", mock.Anything, eventID, "u1").Return(true, nil).Once()
	f.rooms.On("GetOrCreateRoom", mock.Anything, eventID).Return(models.ChatRoom{ID: "r1", EventID: eventID}, nil).Once()
}

func TestGetChatHistorySuccess(t *testing.T) {
	f := newHandlerFixture()
	f.allowMember("e1")
	f.messages.On("ListRecent", mock.Anything, "r1", 50, 0).
		Return([]models.Message{{ID: "m1", ChatRoomID: "r1", UserID: "u1", Content: "hello", MessageType: "text"}}, 1, nil).Once()
	f.users.On("BulkUsers", mock.Anything, []string{"u1"}).
		Return([]models.User{{ID: "u1", Username: "alice"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/events/e1/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []struct {
			ID             string `json:"id"`
			Content        string `json:"content"`
			AuthorUsername string `json:"author_username"`
		} `json:"messages"`
		ChatRoomID string `json:"chat_room_id"`
		Total      int    `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "r1", resp.ChatRoomID)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hello", resp.Messages[0].Content)
	assert.Equal(t, "alice", resp.Messages[0].AuthorUsername)
	f.messages.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestGetChatHistoryForbidden(t *testing.T) {
	f := newHandlerFixture()
	f.events.On("IsAttendee", mock.Anything, "e1", "u1").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/events/e1/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.messages.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetChatHistoryEventNotFound(t *testing.T) {
	f := newHandlerFixture()
	f.events.On("IsAttendee", mock.Anything, "ghost", "u1").Return(false, repositories.ErrEventNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/events/ghost/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChatHistoryInvalidLimitParam(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/chat/events/e1/messages?limit=abc", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.events.AssertNotCalled(t, "IsAttendee", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetChatHistoryNegativeOffset(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/chat/events/e1/messages?offset=-3", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.events.AssertNotCalled(t, "IsAttendee", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostChatMessageSuccess(t *testing.T) {
	f := newHandlerFixture()
	f.allowMember("e1")
	stored := models.Message{ID: "m7", ChatRoomID: "r1", UserID: "u1", Content: "hello", MessageType: "text"}
	f.messages.On("Append", mock.Anything, "r1", "u1", "hello", "text").Return(stored, nil).Once()
	f.broadcaster.On("BroadcastNewMessage", "e1", stored).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/messages", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Message models.Message `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "m7", resp.Message.ID)
	assert.Equal(t, "text", resp.Message.MessageType)
	f.broadcaster.AssertExpectations(t)
}

func TestPostChatMessageWhitespaceOnly(t *testing.T) {
	f := newHandlerFixture()

	body := bytes.NewBufferString(`{"content":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/messages", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.broadcaster.AssertNotCalled(t, "BroadcastNewMessage", mock.Anything, mock.Anything)
}

func TestPostChatMessageMissingContent(t *testing.T) {
	f := newHandlerFixture()

	body := bytes.NewBufferString(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/messages", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostChatMessageForbidden(t *testing.T) {
	f := newHandlerFixture()
	f.events.On("IsAttendee", mock.Anything, "e1", "u1").Return(false, nil).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/messages", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostChatMessageStoreFailure(t *testing.T) {
	f := newHandlerFixture()
	f.allowMember("e1")
	f.messages.On("Append", mock.Anything, "r1", "u1", "hello", "text").
		Return(models.Message{}, assert.AnError).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/messages", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	f.broadcaster.AssertNotCalled(t, "BroadcastNewMessage", mock.Anything, mock.Anything)
}
