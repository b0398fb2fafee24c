package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/pkg/errs"
)

type nameInput struct {
	Name string `json:"name"`
}

func newRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/new-user", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
		wantName    string
	}{
		{name: "valid", body: `{"name":"alice"}`, contentType: "application/json", wantName: "alice"},
		{name: "charset suffix", body: `{"name":"bob"}`, contentType: "application/json; charset=utf-8", wantName: "bob"},
		{name: "unknown fields ignored", body: `{"name":"carol","age":3}`, contentType: "application/json", wantName: "carol"},
		{name: "empty body", body: "", contentType: "application/json"},
		{name: "wrong content type", body: `{"name":"x"}`, contentType: "text/plain", wantCode: errs.ErrUnsupportedMediaType},
		{name: "syntax error", body: `{"name":`, contentType: "application/json", wantCode: errs.ErrInvalidJSONFormat},
		{name: "trailing value", body: `{"name":"x"} {}`, contentType: "application/json", wantCode: errs.ErrExtraContentInBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in nameInput
			err := BindJSON(httptest.NewRecorder(), newRequest(tt.body, tt.contentType), &in)

			if tt.wantCode != 0 {
				require.NotNil(t, err)
				assert.Equal(t, tt.wantCode, err.Code)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.wantName, in.Name)
		})
	}
}
