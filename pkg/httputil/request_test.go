package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@example.com","password":"secret123"}`, false},
		{"unknown field", `{"email":"a@example.com","role":"SUPER_ADMIN"}`, true},
		{"malformed", `{"email":`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dest loginBody
			err := ParseJSON(r, &dest)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@example.com", dest.Email)
		})
	}
}

func TestParseJSON_TooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`"}`))
	r.Body = http.MaxBytesReader(w, r.Body, 16)

	var dest loginBody
	err := ParseJSON(r, &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`nope`))

	var dest loginBody
	ok := ParseJSONOrError(w, r, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "u1"})

	id, err := ParsePathString(r, "id")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = ParsePathString(r, "missing")
	assert.True(t, apperrors.IsValidation(err))

	w := httptest.NewRecorder()
	_, ok := ParsePathStringOrError(w, r, "missing")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
