package ws

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ConnInfo describes one live session socket, used to tag logs and audit
// events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Role        string
	IP          string
	RequestID   string
	DeviceID    string
	ConnectedAt time.Time
}

// newConnID returns a random hex identifier for a session socket.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
