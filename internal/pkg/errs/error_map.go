package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// Messages of the roster errors are part of the public HTTP contract; do not reword them.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters!", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format!", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Invalid request body!", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data!", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Roster Errors
	ErrNameRequired: {Code: ErrNameRequired, Message: "Name is required!", Status: http.StatusBadRequest},
	ErrNameTaken:    {Code: ErrNameTaken, Message: "This name is already taken!", Status: http.StatusConflict},

	// 3xxx: Socket Frame Errors
	ErrMalformedFrame:        {Code: ErrMalformedFrame, Message: "Malformed frame: %s"},
	ErrUnknownFrameType:      {Code: ErrUnknownFrameType, Message: "Unknown frame type %q"},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
