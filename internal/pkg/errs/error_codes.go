/*
Package errs provides custom error types and application-level error code constants.

These error codes identify the relay's request, registration and frame-protocol errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Roster Errors
const (
	// ErrNameRequired indicates that a registration request carried no display name.
	ErrNameRequired = 2001

	// ErrNameTaken indicates that the requested display name belongs to a registered user.
	ErrNameTaken = 2002
)

// 3xxx: Socket Frame Errors
const (
	// ErrMalformedFrame indicates a frame that is not JSON or lacks a required field.
	ErrMalformedFrame = 3001

	// ErrUnknownFrameType indicates a frame whose type discriminator is not recognized.
	ErrUnknownFrameType = 3002

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
