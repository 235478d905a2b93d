package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID tags a socket for the lifecycle events published over AMQP, so
// connect, disconnect and error records for one connection correlate.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
