/*
Package user defines the identity of a roster participant as it is exchanged with
clients over HTTP and WebSocket frames.
*/
package user

// User is a registered chat participant.
type User struct {
	// ID is the opaque identifier assigned at creation. It never changes.
	ID string `json:"id"`

	// Name is the display name, unique among registered users.
	Name string `json:"name"`
}
