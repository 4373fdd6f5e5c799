package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	apierrors "github.com/fraternet/notify-service/internal/transport/http/errors"
	"github.com/fraternet/notify-service/internal/triggers"
)

type recHandler struct {
	got []triggers.Change
	err error
}

func (h *recHandler) handle(_ context.Context, ch triggers.Change) error {
	h.got = append(h.got, ch)
	return h.err
}

func newTestRouter(h *recHandler, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewRouter(h.handle, opts)
}

func post(t *testing.T, srv http.Handler, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var env apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code
}

const envelopeBody = `{"kind":"created","collection":"users","documentId":"u1","after":{"firstName":"Ann"}}`

func TestPostChange_Accepted(t *testing.T) {
	h := &recHandler{}
	srv := newTestRouter(h, Options{Push: true})

	rr := post(t, srv, "/v1/changes", envelopeBody, map[string]string{"ce-id": "evt-9"})

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	require.Len(t, h.got, 1)
	require.Equal(t, "http", h.got[0].Source)
	require.Equal(t, "evt-9", h.got[0].ID)
	require.Equal(t, triggers.KindCreated, h.got[0].Kind)
	require.Equal(t, "u1", h.got[0].DocumentID)
}

func TestPostChange_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
		calls  int
	}{
		{"broken json", `{`, nil, http.StatusBadRequest, "invalid_argument", 0},
		{"unknown kind", `{"kind":"x","collection":"users","documentId":"u1"}`, nil, http.StatusBadRequest, "invalid_argument", 0},
		{"bad snapshot", envelopeBody, fmt.Errorf("router: %w", triggers.ErrBadChange), http.StatusBadRequest, "invalid_argument", 1},
		{"panic", envelopeBody, triggers.ErrPanic, http.StatusInternalServerError, "internal", 1},
		{"timeout", envelopeBody, context.DeadlineExceeded, http.StatusInternalServerError, "internal", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recHandler{err: tt.err}
			rr := post(t, newTestRouter(h, Options{Push: true}), "/v1/changes", tt.body, nil)

			require.Equal(t, tt.status, rr.Code)
			require.Equal(t, tt.code, errCode(t, rr))
			require.Len(t, h.got, tt.calls)
		})
	}
}

func TestPostChange_BodyTooLarge(t *testing.T) {
	h := &recHandler{}
	body := `{"kind":"created","collection":"users","documentId":"u1","after":{"x":"` +
		strings.Repeat("a", 2<<20) + `"}}`

	rr := post(t, newTestRouter(h, Options{Push: true}), "/v1/changes", body, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, h.got)
}

func TestPostFirestore(t *testing.T) {
	h := &recHandler{}
	srv := newTestRouter(h, Options{Push: true})

	body := `{"value": {"name": "projects/p/databases/(default)/documents/posts/p1",
		"fields": {"authorId": {"stringValue": "Y"}}}}`

	rr := post(t, srv, "/v1/firestore/posts", body, map[string]string{"ce-id": "fs-1"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, h.got, 1)
	require.Equal(t, "posts", h.got[0].Collection)
	require.Equal(t, "p1", h.got[0].DocumentID)
	require.Equal(t, "fs-1", h.got[0].ID)

	rr = post(t, srv, "/v1/firestore/users", body, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Len(t, h.got, 1)
}

func TestV1_RequiresBearerWhenSecretSet(t *testing.T) {
	h := &recHandler{}
	srv := newTestRouter(h, Options{Push: true, Secret: "s3cret", Issuer: "bridge"})

	rr := post(t, srv, "/v1/changes", envelopeBody, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthenticated", errCode(t, rr))
	require.Empty(t, h.got)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "bridge",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	rr = post(t, srv, "/v1/changes", envelopeBody, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, h.got, 1)
}

func TestV1_NotMountedWithoutHTTPSource(t *testing.T) {
	h := &recHandler{}
	srv := newTestRouter(h, Options{})

	rr := post(t, srv, "/v1/changes", envelopeBody, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = post(t, srv, "/v1/firestore/posts", `{}`, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Empty(t, h.got)

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestProbes(t *testing.T) {
	var ready atomic.Bool
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_test_total", Help: "test"}))

	srv := newTestRouter(&recHandler{}, Options{Ready: &ready, Secret: "s3cret", Gatherer: reg})

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	require.Equal(t, http.StatusOK, get("/livez").Code)
	require.Equal(t, http.StatusServiceUnavailable, get("/healthz").Code)

	ready.Store(true)
	require.Equal(t, http.StatusOK, get("/healthz").Code)

	rr := get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "probe_test_total")
}
