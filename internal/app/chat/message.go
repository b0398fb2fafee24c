package chat

import (
	"time"

	"chatrelay/internal/app/user"
)

// FrameType is the "type" discriminator carried by every frame.
type FrameType string

const (
	// TypeLogin is sent by a client to take a display name, and echoed back as the acknowledgment.
	TypeLogin FrameType = "login"

	// TypeExit is sent by a client to leave the roster without closing the socket.
	TypeExit FrameType = "exit"

	// TypeSend carries a chat message in both directions.
	TypeSend FrameType = "send"

	// TypeUsers carries a roster snapshot from the server.
	TypeUsers FrameType = "users"

	// TypeError reports a rejected frame to its sender only.
	TypeError FrameType = "error"
)

// TimeLayout formats the "time" field of chat frames.
const TimeLayout = time.RFC3339

// InboundFrame is the union of all client frames. Pointer fields distinguish a
// missing field from an empty one.
type InboundFrame struct {
	Type    FrameType `json:"type"`
	Name    *string   `json:"name,omitempty"`
	Message *string   `json:"message,omitempty"`
}

// UsersFrame pushes the roster to clients.
type UsersFrame struct {
	Type  FrameType   `json:"type"`
	Users []user.User `json:"users"`
}

// LoginFrame acknowledges a login to the connection that sent it.
type LoginFrame struct {
	Type    FrameType   `json:"type"`
	Success bool        `json:"success"`
	Users   []user.User `json:"users"`
}

// ChatFrame is a chat message stamped with its sender and the relay's clock.
// User is null when the sender has not logged in.
type ChatFrame struct {
	Type    FrameType  `json:"type"`
	Message string     `json:"message"`
	User    *user.User `json:"user"`
	Time    string     `json:"time"`
}

// ErrorFrame describes why a frame was rejected.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
}

func newUsersFrame(roster []user.User) UsersFrame {
	return UsersFrame{Type: TypeUsers, Users: nonNil(roster)}
}

func newLoginFrame(roster []user.User) LoginFrame {
	return LoginFrame{Type: TypeLogin, Success: true, Users: nonNil(roster)}
}

func newChatFrame(message string, sender *user.User, at time.Time) ChatFrame {
	return ChatFrame{
		Type:    TypeSend,
		Message: message,
		User:    sender,
		Time:    at.UTC().Format(TimeLayout),
	}
}

// nonNil keeps empty rosters encoded as [] instead of null.
func nonNil(roster []user.User) []user.User {
	if roster == nil {
		return []user.User{}
	}
	return roster
}
