package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"event-chat-service/internal/chat"
	"event-chat-service/internal/models"
	"event-chat-service/internal/repositories"
	"event-chat-service/internal/telemetry"
)

// ChatHandler manages the event chat HTTP endpoints.
type ChatHandler struct {
	gateway *chat.Gateway
	users   repositories.UserRepository
	audit   *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(gateway *chat.Gateway, users repositories.UserRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{gateway: gateway, users: users, audit: audit}
}

// GetChatHistory returns a page of an event's chat history.
// GET /chat/events/:event_id/messages?limit=&offset=
func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	eventID := c.Param("event_id")
	userID := c.GetString("userID")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(chat.DefaultHistoryLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	history, err := h.gateway.GetHistory(c.Request.Context(), userID, eventID, limit, offset)
	if err != nil {
		h.respondChatError(c, err, "failed to load messages")
		return
	}

	authorIDs := make([]string, 0, len(history.Messages))
	seen := map[string]struct{}{}
	for _, m := range history.Messages {
		if _, ok := seen[m.UserID]; !ok {
			seen[m.UserID] = struct{}{}
			authorIDs = append(authorIDs, m.UserID)
		}
	}

	usernameByID := map[string]string{}
	if len(authorIDs) > 0 {
		users, err := h.users.BulkUsers(c.Request.Context(), authorIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load authors"})
			return
		}
		for _, u := range users {
			usernameByID[u.ID] = u.Username
		}
	}

	type messageResponse struct {
		models.Message
		AuthorUsername string `json:"author_username,omitempty"`
	}

	resp := make([]messageResponse, 0, len(history.Messages))
	for _, m := range history.Messages {
		resp = append(resp, messageResponse{Message: m, AuthorUsername: usernameByID[m.UserID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":     resp,
		"chat_room_id": history.RoomID,
		"total":        history.Total,
	})
}

// PostChatMessage persists a message to the event's room and broadcasts it
// to live subscribers.
// POST /chat/events/:event_id/messages
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	eventID := c.Param("event_id")
	userID := c.GetString("userID")

	var req struct {
		Content     string `json:"content" binding:"required"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
		return
	}

	msg, err := h.gateway.PostMessage(c.Request.Context(), userID, eventID, req.Content, req.MessageType)
	if err != nil {
		h.respondChatError(c, err, "failed to store message")
		return
	}

	h.emitAudit(c, "INFO", "event chat message sent")
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) respondChatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		h.emitAudit(c, "ERROR", "event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	case errors.Is(err, chat.ErrForbidden):
		h.emitAudit(c, "ERROR", "not an attendee")
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied: you must be attending this event"})
	case errors.Is(err, chat.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is empty"})
	case errors.Is(err, chat.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit and offset must be non-negative"})
	case errors.Is(err, chat.ErrStoreTimeout):
		h.emitAudit(c, "ERROR", "store timeout")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry"})
	default:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
