package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"authapi/backend/internal/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestID(t *testing.T) {
	var seen string
	h := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "text", "info")
	require.NoError(t, err)

	h := withRequestID(withLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}), log))

	req := httptest.NewRequest(http.MethodPost, "/auth-api/v1/login", nil)
	req.Header.Set(requestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/auth-api/v1/login")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "size=5")
	assert.Contains(t, out, "request_id=req-1")
}

func TestWithRecovery(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "text", "info")
	require.NoError(t, err)

	h := withRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), log)

	tests := []struct {
		path       string
		wantStatus string
	}{
		{"/", statusError},
		{apiPrefix + "/signup", statusFailed},
		{apiPrefix + "/login", statusAuthFailed},
		{apiPrefix + "/renew-credentials", statusError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"status":"`+tt.wantStatus+`","message":"internal server error"}`, rec.Body.String())
		})
	}
	assert.Contains(t, buf.String(), "panic=boom")
}

func TestWithRecovery_AfterHeadersWritten(t *testing.T) {
	h := withRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, statusSuccess, "")
		panic("late")
	}), logging.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, apiPrefix+"/signup", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"SUCCESS"}`, rec.Body.String())
}

func TestWithCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard", func(t *testing.T) {
		h := withCORS(next, []string{"*"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin echoed", func(t *testing.T) {
		h := withCORS(next, []string{"https://app.example"})
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "https://APP.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://APP.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		h := withCORS(next, []string{"https://app.example"})
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := withCORS(next, []string{"*"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/auth-api/v1/signup", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestUserIDDecoding(t *testing.T) {
	for in, want := range map[string]int64{`7`: 7, `"8"`: 8, `" 9 "`: 9, `-1`: -1} {
		var u userID
		require.NoError(t, u.UnmarshalJSON([]byte(in)), in)
		assert.Equal(t, userID(want), u)
	}
	for _, in := range []string{`"x"`, `1.5`, `true`, `""`} {
		var u userID
		assert.Error(t, u.UnmarshalJSON([]byte(in)), in)
	}
}
