package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-chat-service/internal/models"
)

type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return assert.AnError
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, frame := range c.frames {
		var event map[string]any
		require.NoError(t, json.Unmarshal(frame, &event))
		out = append(out, event)
	}
	return out
}

var testRoom = models.ChatRoom{ID: "room-1", EventID: "event-1"}

func TestJoinNotifiesExistingSubscribers(t *testing.T) {
	hub := NewHub()
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.Join(alice, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	hub.Join(bob, testRoom, models.User{ID: "u2", Username: "bob"}, ConnInfo{})

	events := alice.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserJoined, events[0]["type"])
	assert.Equal(t, "bob", events[0]["username"])
	assert.Equal(t, "u2", events[0]["user_id"])
	assert.Equal(t, "event-1", events[0]["event_id"])

	assert.Empty(t, bob.events(t))
	assert.Equal(t, 2, hub.SubscriberCount(testRoom.ID))
}

func TestDisconnectNotifiesRemaining(t *testing.T) {
	hub := NewHub()
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.Join(alice, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	hub.Join(bob, testRoom, models.User{ID: "u2", Username: "bob"}, ConnInfo{})

	hub.Disconnect(alice)

	events := bob.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserLeft, events[0]["type"])
	assert.Equal(t, "alice", events[0]["username"])
	assert.Equal(t, 1, hub.SubscriberCount(testRoom.ID))
}

func TestLeaveWhenNotInRoomIsNoop(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}

	assert.False(t, hub.Leave(conn))

	hub.Join(conn, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	assert.True(t, hub.Leave(conn))
	assert.False(t, hub.Leave(conn))
	assert.Equal(t, 0, hub.SubscriberCount(testRoom.ID))
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	hub := NewHub()
	otherRoom := models.ChatRoom{ID: "room-2", EventID: "event-2"}
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.Join(bob, testRoom, models.User{ID: "u2", Username: "bob"}, ConnInfo{})
	hub.Join(alice, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	hub.Join(alice, otherRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})

	assert.Equal(t, 1, hub.SubscriberCount(testRoom.ID))
	assert.Equal(t, 1, hub.SubscriberCount(otherRoom.ID))

	var sawLeft bool
	for _, event := range bob.events(t) {
		if event["type"] == EventUserLeft && event["username"] == "alice" {
			sawLeft = true
		}
	}
	assert.True(t, sawLeft, "expected bob to see alice leave the first room")
}

func TestBroadcastNewMessageReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	otherRoom := models.ChatRoom{ID: "room-2", EventID: "event-2"}
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.Join(alice, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	hub.Join(bob, testRoom, models.User{ID: "u2", Username: "bob"}, ConnInfo{})
	hub.Join(carol, otherRoom, models.User{ID: "u3", Username: "carol"}, ConnInfo{})

	msg := models.Message{ID: "m1", ChatRoomID: testRoom.ID, UserID: "u1", Content: "hello", MessageType: "text"}
	hub.BroadcastNewMessage(testRoom.EventID, msg)

	for _, conn := range []*fakeConn{alice, bob} {
		events := conn.events(t)
		last := events[len(events)-1]
		assert.Equal(t, EventNewMessage, last["type"])
		assert.Equal(t, "hello", last["content"])
		assert.Equal(t, "m1", last["id"])
		assert.Equal(t, testRoom.ID, last["chat_room_id"])
		assert.Equal(t, testRoom.EventID, last["event_id"])
	}

	for _, event := range carol.events(t) {
		assert.NotEqual(t, EventNewMessage, event["type"])
	}
}

func TestBroadcastUnknownRoomIsNoop(t *testing.T) {
	hub := NewHub()
	hub.BroadcastNewMessage("event-1", models.Message{ChatRoomID: "ghost"})
}

func TestConcurrentJoinLeaveSameRoom(t *testing.T) {
	hub := NewHub()
	user := models.User{ID: "u1", Username: "alice"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			for j := 0; j < 500; j++ {
				hub.Join(conn, testRoom, user, ConnInfo{})
				hub.Leave(conn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount(testRoom.ID))
}

func TestConcurrentJoinBroadcastDisconnect(t *testing.T) {
	hub := NewHub()
	msg := models.Message{ID: "m1", ChatRoomID: testRoom.ID, UserID: "u1", Content: "hello"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			user := models.User{ID: "u1", Username: "alice"}
			for j := 0; j < 200; j++ {
				hub.Join(conn, testRoom, user, ConnInfo{})
				hub.BroadcastNewMessage(testRoom.EventID, msg)
				hub.Disconnect(conn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount(testRoom.ID))
}

func TestFailedWriteRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	alice := &fakeConn{}
	broken := &fakeConn{failWrites: true}

	hub.Join(alice, testRoom, models.User{ID: "u1", Username: "alice"}, ConnInfo{})
	hub.Join(broken, testRoom, models.User{ID: "u2", Username: "bob"}, ConnInfo{})

	msg := models.Message{ID: "m1", ChatRoomID: testRoom.ID, UserID: "u1", Content: "hello"}
	hub.BroadcastNewMessage(testRoom.EventID, msg)

	assert.Equal(t, 1, hub.SubscriberCount(testRoom.ID))
	assert.True(t, broken.closed)
}
