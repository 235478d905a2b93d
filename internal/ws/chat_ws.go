package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"event-chat-service/internal/auth"
	"event-chat-service/internal/chat"
	"event-chat-service/internal/observability"
	"event-chat-service/internal/repositories"
)

const commandTimeout = 10 * time.Second

// ChatSocketHandler owns the websocket endpoint: it authenticates the
// handshake, then runs a per-connection read loop dispatching join/leave
// commands. The single loop goroutine serializes all commands from one
// connection.
type ChatSocketHandler struct {
	hub      *Hub
	gateway  *chat.Gateway
	verifier *auth.TokenVerifier
}

// NewChatSocketHandler constructs a ChatSocketHandler.
func NewChatSocketHandler(hub *Hub, gateway *chat.Gateway, verifier *auth.TokenVerifier) *ChatSocketHandler {
	return &ChatSocketHandler{hub: hub, gateway: gateway, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts the command loop.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("event-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive("event_chat")
	observability.IncWSEvent("event_chat", "ws_connect")
	h.publishLifecycleEvent(ctx, "ws_connect", info, "")

	go h.readLoop(newSafeConn(conn), userID, info)
}

func (h *ChatSocketHandler) readLoop(conn *safeConn, userID string, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Disconnect(conn)
		observability.DecWSActive("event_chat")
		observability.IncWSEvent("event_chat", "ws_disconnect")
		h.publishLifecycleEvent(context.Background(), "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("event_chat", "ws_error")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.writeEvent(conn, ErrorEvent{Type: EventError, Message: "invalid command payload"})
			continue
		}
		h.dispatch(conn, userID, info, cmd)
	}
}

func (h *ChatSocketHandler) dispatch(conn Conn, userID string, info ConnInfo, cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case CommandJoinEventChat:
		if cmd.EventID == "" {
			h.writeEvent(conn, ErrorEvent{Type: EventError, Message: "event id is required"})
			return
		}
		room, user, err := h.gateway.AuthorizeJoin(ctx, userID, cmd.EventID)
		if err != nil {
			h.writeEvent(conn, ErrorEvent{Type: EventError, Message: joinErrorMessage(err)})
			return
		}
		h.hub.Join(conn, room, user, info)
		h.writeEvent(conn, JoinedEvent{
			Type:    EventJoined,
			Message: fmt.Sprintf("joined chat for event %s", cmd.EventID),
			Room:    room.ID,
		})
		observability.IncWSEvent("event_chat", "room_join")

	case CommandLeaveEventChat:
		if h.hub.Leave(conn) {
			observability.IncWSEvent("event_chat", "room_leave")
		}

	default:
		h.writeEvent(conn, ErrorEvent{Type: EventError, Message: "unknown command"})
	}
}

func (h *ChatSocketHandler) writeEvent(conn Conn, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(textMessage, payload); err != nil {
		conn.Close()
	}
}

func (h *ChatSocketHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}

func (h *ChatSocketHandler) publishLifecycleEvent(ctx context.Context, name string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.event_chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "event_chat",
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return "event not found"
	case errors.Is(err, chat.ErrForbidden):
		return "access denied: you must be attending this event"
	case errors.Is(err, chat.ErrStoreTimeout):
		return "temporarily unavailable, try again"
	default:
		return "failed to join chat"
	}
}
