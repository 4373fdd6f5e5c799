package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fraternet/notify-service/internal/triggers"
)

func TestToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal"},
		{"bad change", fmt.Errorf("op: %w", triggers.ErrBadChange), http.StatusBadRequest, "invalid_argument"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"panic", triggers.ErrPanic, http.StatusInternalServerError, "internal"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ToHTTP(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestWriteError_AddsRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/changes", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, triggers.ErrBadChange)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "rid-1", resp.Error.RequestID)
	require.Equal(t, "invalid_argument", resp.Error.Code)
}
