package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"event-chat-service/internal/repositories"
	"event-chat-service/internal/telemetry"
)

// AttendanceHandler maintains the event attendee set that backs the chat
// membership gate. Revocation takes effect on the member's next chat action.
type AttendanceHandler struct {
	events repositories.EventRepository
	audit  *telemetry.AuditEmitter
}

// NewAttendanceHandler builds an AttendanceHandler.
func NewAttendanceHandler(events repositories.EventRepository, audit *telemetry.AuditEmitter) *AttendanceHandler {
	return &AttendanceHandler{events: events, audit: audit}
}

// Attend adds the caller to the event's attendee set. Idempotent.
// POST /chat/events/:event_id/attendance
func (h *AttendanceHandler) Attend(c *gin.Context) {
	eventID := c.Param("event_id")
	userID := c.GetString("userID")

	event, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		h.respondAttendanceError(c, err)
		return
	}

	if err := h.events.AddAttendee(c.Request.Context(), event.ID, userID); err != nil {
		h.respondAttendanceError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "event attendance added")
	c.JSON(http.StatusOK, gin.H{"status": "attending", "event_id": event.ID})
}

// Unattend removes the caller from the event's attendee set.
// DELETE /chat/events/:event_id/attendance
func (h *AttendanceHandler) Unattend(c *gin.Context) {
	eventID := c.Param("event_id")
	userID := c.GetString("userID")

	event, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		h.respondAttendanceError(c, err)
		return
	}

	if err := h.events.RemoveAttendee(c.Request.Context(), event.ID, userID); err != nil {
		h.respondAttendanceError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "event attendance removed")
	c.JSON(http.StatusOK, gin.H{"status": "not_attending", "event_id": event.ID})
}

func (h *AttendanceHandler) respondAttendanceError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	h.emitAudit(c, "ERROR", "attendance update failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update attendance"})
}

func (h *AttendanceHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
