package http

import (
	"net/http"
	"strings"

	"github.com/Opkumar/Book-Review-System/pkg/httputil"
	"github.com/Opkumar/Book-Review-System/pkg/validator"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ContentTypeJSON rejects POST and PUT requests whose body is not declared
// as application/json. Bodyless requests such as PUT /reviews/{id}/helpful
// pass.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.ContentLength != 0 && (r.Method == http.MethodPost || r.Method == http.MethodPut)
		if hasBody && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeBody reads a size-limited JSON body into dst and validates it. On
// failure it writes the 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
