package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-chat-service/internal/mocks"
	"event-chat-service/internal/models"
	"event-chat-service/internal/repositories"
)

func newAttendanceRouter(events *mocks.EventRepositoryMock) *gin.Engine {
	handler := NewAttendanceHandler(events, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/chat/events/:event_id/attendance", handler.Attend)
	r.DELETE("/chat/events/:event_id/attendance", handler.Unattend)
	return r
}

func TestAttendSuccess(t *testing.T) {
	events := new(mocks.EventRepositoryMock)
	events.On("GetEvent", mock.Anything, "e1").Return(models.Event{ID: "e1", Title: "launch party"}, nil).Once()
	events.On("AddAttendee", mock.Anything, "e1", "u1").Return(nil).Once()
	router := newAttendanceRouter(events)

	req := httptest.NewRequest(http.MethodPost, "/chat/events/e1/attendance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"attending"`)
	events.AssertExpectations(t)
}

func TestAttendEventNotFound(t *testing.T) {
	events := new(mocks.EventRepositoryMock)
	events.On("GetEvent", mock.Anything, "ghost").Return(models.Event{}, repositories.ErrEventNotFound).Once()
	router := newAttendanceRouter(events)

	req := httptest.NewRequest(http.MethodPost, "/chat/events/ghost/attendance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	events.AssertNotCalled(t, "AddAttendee", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnattendSuccess(t *testing.T) {
	events := new(mocks.EventRepositoryMock)
	events.On("GetEvent", mock.Anything, "e1").Return(models.Event{ID: "e1"}, nil).Once()
	events.On("RemoveAttendee", mock.Anything, "e1", "u1").Return(nil).Once()
	router := newAttendanceRouter(events)

	req := httptest.NewRequest(http.MethodDelete, "/chat/events/e1/attendance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not_attending"`)
	events.AssertExpectations(t)
}

func TestUnattendStoreFailure(t *testing.T) {
	events := new(mocks.EventRepositoryMock)
	events.On("GetEvent", mock.Anything, "e1").Return(models.Event{ID: "e1"}, nil).Once()
	events.On("RemoveAttendee", mock.Anything, "e1", "u1").Return(assert.AnError).Once()
	router := newAttendanceRouter(events)

	req := httptest.NewRequest(http.MethodDelete, "/chat/events/e1/attendance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
