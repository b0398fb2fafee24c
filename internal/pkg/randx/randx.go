/*
Package randx generates the opaque identifiers handed out by the relay.
*/
package randx

import (
	"github.com/google/uuid"
)

// UserID generates a UUID v4 string identifying a roster user.
func UserID() string {
	return uuid.New().String()
}

// ConnectionID generates a UUID v4 string identifying one live socket.
func ConnectionID() string {
	return uuid.New().String()
}

// EventID generates a UUID v4 string keying one journaled presence event.
func EventID() string {
	return uuid.New().String()
}
