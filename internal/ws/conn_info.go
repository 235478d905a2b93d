package ws

import "time"

// ConnInfo carries per-connection identity and trace metadata captured at
// handshake time, used for observability events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
