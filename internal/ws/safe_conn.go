package ws

import "sync"

// wsConn is the subset of *websocket.Conn the socket endpoint uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// safeConn serializes writes to the underlying connection. The read loop and
// broadcast goroutines both write to the same socket, and gorilla/websocket
// allows at most one concurrent writer per connection.
type safeConn struct {
	writeMu sync.Mutex
	wsConn
}

func newSafeConn(conn wsConn) *safeConn {
	return &safeConn{wsConn: conn}
}

func (c *safeConn) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.wsConn.WriteMessage(messageType, data)
}
