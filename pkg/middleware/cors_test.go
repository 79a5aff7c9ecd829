package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(cfg CORSConfig, method, origin string, preflight bool) *httptest.ResponseRecorder {
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/v1/books", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_Wildcard(t *testing.T) {
	rec := corsRequest(CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://any.example", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ListedOriginEchoed(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://books.example"}, AllowCredentials: true}
	rec := corsRequest(cfg, http.MethodGet, "https://books.example", false)

	assert.Equal(t, "https://books.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnlistedOriginGetsNoAllowOrigin(t *testing.T) {
	rec := corsRequest(CORSConfig{AllowedOrigins: []string{"https://books.example"}}, http.MethodGet, "https://evil.example", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	rec := corsRequest(CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodOptions, "https://any.example", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, CorrelationIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	rec := corsRequest(CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodOptions, "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}
