package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"event-chat-service/internal/models"
	"event-chat-service/internal/observability"
)

// Conn is the subset of *websocket.Conn the hub needs. Narrowing the type
// keeps the subscriber-set logic testable without a network.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket.TextMessage

type subscriber struct {
	userID   string
	username string
	info     ConnInfo
}

// room holds one event chat's live subscriber set. Each room carries its own
// lock so joins and broadcasts in unrelated rooms do not contend.
type room struct {
	eventID     string
	mu          sync.RWMutex
	subscribers map[Conn]*subscriber
}

// Hub is the live connection manager: it tracks which connection is
// subscribed to which room and fans room events out to subscribers. A
// connection is in at most one room at a time.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room // keyed by chat room id
	conns map[Conn]string  // connection -> current room id
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		conns: make(map[Conn]string),
	}
}

// Join registers the connection under the room and notifies the room's other
// subscribers. A connection already in a different room leaves it first, with
// the usual departure notification.
func (h *Hub) Join(conn Conn, chatRoom models.ChatRoom, user models.User, info ConnInfo) {
	h.Leave(conn)

	h.mu.Lock()
	r, ok := h.rooms[chatRoom.ID]
	if !ok {
		r = &room{eventID: chatRoom.EventID, subscribers: make(map[Conn]*subscriber)}
		h.rooms[chatRoom.ID] = r
	}
	h.conns[conn] = chatRoom.ID

	// The subscriber insert happens under h.mu as well: once h.mu is
	// released a concurrent Leave may observe the room empty and drop it
	// from h.rooms, stranding this connection on a vanished room.
	r.mu.Lock()
	r.subscribers[conn] = &subscriber{userID: user.ID, username: user.Username, info: info}
	others := r.snapshotExcept(conn)
	r.mu.Unlock()
	h.mu.Unlock()

	h.send(chatRoom.ID, others, PresenceEvent{
		Type:     EventUserJoined,
		Username: user.Username,
		UserID:   user.ID,
		EventID:  chatRoom.EventID,
	})
}

// Leave deregisters the connection from its current room, if any, and
// notifies the remaining subscribers. Calling Leave while not in a room is a
// no-op, not an error.
func (h *Hub) Leave(conn Conn) bool {
	h.mu.Lock()
	roomID, ok := h.conns[conn]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.conns, conn)
	r := h.rooms[roomID]

	r.mu.Lock()
	sub := r.subscribers[conn]
	delete(r.subscribers, conn)
	remaining := r.snapshotExcept(conn)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if sub != nil {
		h.send(roomID, remaining, PresenceEvent{
			Type:     EventUserLeft,
			Username: sub.username,
			UserID:   sub.userID,
			EventID:  r.eventID,
		})
	}
	return true
}

// Disconnect handles a transport-level close: identical cleanup to Leave,
// after which the hub holds no state for the connection.
func (h *Hub) Disconnect(conn Conn) {
	h.Leave(conn)
}

// BroadcastNewMessage fans a persisted message out to the room's subscribers.
// Delivery is best-effort: a failed write closes and removes that subscriber
// and never propagates to the caller.
func (h *Hub) BroadcastNewMessage(eventID string, msg models.Message) {
	h.mu.RLock()
	r, ok := h.rooms[msg.ChatRoomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.RLock()
	targets := r.snapshotExcept(nil)
	r.mu.RUnlock()

	h.send(msg.ChatRoomID, targets, NewMessageEvent{
		Type:    EventNewMessage,
		Message: msg,
		EventID: eventID,
	})
	observability.IncMessageBroadcast()
}

// SubscriberCount reports how many connections are in the room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

type target struct {
	conn Conn
	sub  *subscriber
}

// snapshotExcept must be called with the room lock held.
func (r *room) snapshotExcept(skip Conn) []target {
	targets := make([]target, 0, len(r.subscribers))
	for conn, sub := range r.subscribers {
		if conn == skip {
			continue
		}
		targets = append(targets, target{conn: conn, sub: sub})
	}
	return targets
}

func (h *Hub) send(roomID string, targets []target, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, t := range targets {
		if err := t.conn.WriteMessage(textMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			t.conn.Close()
			h.Leave(t.conn)
			h.publishWSError(roomID, t.sub.info, err)
		}
	}
}

func (h *Hub) publishWSError(roomID string, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "event_chat",
			"room_id":     roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.event_chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("event_chat", "ws_error")
}
