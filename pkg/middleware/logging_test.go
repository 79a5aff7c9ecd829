package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/pkg/logger"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("book-review", "debug", buf)
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := RequestLogging(newBufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))
	line := lastLine(t, &buf)
	assert.Equal(t, seen, line["correlation_id"])
	assert.Equal(t, "INFO", line["level"])
}

func TestRequestLogging_KeepsInboundCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(newBufferLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	req.Header.Set(CorrelationIDHeader, "corr-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-42", rec.Header().Get(CorrelationIDHeader))
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		h := RequestLogging(newBufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil))

		line := lastLine(t, &buf)
		assert.Equal(t, tt.level, line["level"])
		assert.Equal(t, float64(tt.status), line["status"])
	}
}

func TestRequestLogging_SkipsProbePaths(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(newBufferLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Zero(t, buf.Len())
}

func TestRequestLogger_AndAuthEnrichContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	h := RequestLogging(slog.New(slog.DiscardHandler))(
		RequestLogger(base)(
			Auth(fakeValidator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.FromContext(r.Context()).InfoContext(r.Context(), "creating review")
			})),
		),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	req.Header.Set(CorrelationIDHeader, "corr-7")
	req.Header.Set("Authorization", "Bearer reader-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := lastLine(t, &buf)
	assert.Equal(t, "creating review", line["msg"])
	assert.Equal(t, "corr-7", line["correlation_id"])
	assert.Equal(t, "u-reader", line["user_id"])
}

func TestRecovery_Returns500Envelope(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(newBufferLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil book")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "nil book")
}
