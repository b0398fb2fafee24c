package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		details []any
		want    CustomError
	}{
		{
			name: "name required",
			code: ErrNameRequired,
			want: CustomError{Code: ErrNameRequired, Message: "Name is required!", Status: http.StatusBadRequest},
		},
		{
			name: "name taken",
			code: ErrNameTaken,
			want: CustomError{Code: ErrNameTaken, Message: "This name is already taken!", Status: http.StatusConflict},
		},
		{
			name:    "formatted frame error",
			code:    ErrUnknownFrameType,
			details: []any{"dance"},
			want:    CustomError{Code: ErrUnknownFrameType, Message: `Unknown frame type "dance"`, Status: http.StatusBadRequest},
		},
		{
			name: "unknown code falls back",
			code: 42,
			want: CustomError{Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewError(tt.code, tt.details...)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	_ = NewError(ErrMessageContentTooLong, 10)
	assert.Equal(t, "Message is too long (max %d bytes)", errorMap[ErrMessageContentTooLong].Message)
}

func TestCustomErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", NewError(ErrNameTaken))

	assert.True(t, errors.Is(wrapped, NewError(ErrNameTaken)))
	assert.False(t, errors.Is(wrapped, NewError(ErrNameRequired)))
	assert.False(t, errors.Is(errors.New("plain"), NewError(ErrNameTaken)))
}
