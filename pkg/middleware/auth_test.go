package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/pkg/httputil"
)

func fakeValidator(token string) (*Claims, error) {
	switch token {
	case "reader-token":
		return &Claims{UserID: "u-reader", Email: "r@example.com", Role: "user"}, nil
	case "admin-token":
		return &Claims{UserID: "u-admin", Email: "a@example.com", Role: "admin"}, nil
	default:
		return nil, errors.New("bad token")
	}
}

func identityHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
			"user_id": UserIDFromContext(r.Context()),
			"role":    RoleFromContext(r.Context()),
		}})
	})
}

func doAuth(mw func(http.Handler) http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	mw(identityHandler()).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestAuth_ValidToken(t *testing.T) {
	rec := doAuth(Auth(fakeValidator), "Bearer reader-token")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "u-reader", resp.Data["user_id"])
	assert.Equal(t, "user", resp.Data["role"])
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"no token", "Bearer"},
		{"invalid token", "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuth(Auth(fakeValidator), tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
		})
	}
}

func TestAuth_SchemeIsCaseInsensitive(t *testing.T) {
	rec := doAuth(Auth(fakeValidator), "bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	chain := func(h http.Handler) http.Handler { return Auth(fakeValidator)(RequireRole("admin")(h)) }

	rec := doAuth(chain, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doAuth(chain, "Bearer reader-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NOT_AUTHORIZED", decodeError(t, rec).Code)
}
