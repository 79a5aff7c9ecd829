package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/service"
	"github.com/Opkumar/Book-Review-System/pkg/httputil"
	"github.com/Opkumar/Book-Review-System/pkg/middleware"
)

// ReadingListHandler handles HTTP requests for the caller's reading list.
type ReadingListHandler struct {
	service *service.ReadingListService
	logger  *slog.Logger
}

// NewReadingListHandler creates a new reading list HTTP handler.
func NewReadingListHandler(svc *service.ReadingListService, logger *slog.Logger) *ReadingListHandler {
	return &ReadingListHandler{service: svc, logger: logger}
}

// ReadingListStatusResponse reports whether a book is on the list.
type ReadingListStatusResponse struct {
	BookID string `json:"bookId"`
	Saved  bool   `json:"saved"`
}

// List handles GET /api/v1/reading-list
func (h *ReadingListHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: books})
}

// Status handles GET /api/v1/reading-list/{bookId}
func (h *ReadingListHandler) Status(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseID(w, "book", chi.URLParam(r, "bookId"))
	if !ok {
		return
	}

	saved, err := h.service.Contains(r.Context(), middleware.UserIDFromContext(r.Context()), bookID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ReadingListStatusResponse{BookID: bookID, Saved: saved}})
}

// Add handles POST /api/v1/reading-list/{bookId}
func (h *ReadingListHandler) Add(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseID(w, "book", chi.URLParam(r, "bookId"))
	if !ok {
		return
	}

	entry, err := h.service.Add(r.Context(), middleware.UserIDFromContext(r.Context()), bookID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: entry})
}

// Remove handles DELETE /api/v1/reading-list/{bookId}
func (h *ReadingListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseID(w, "book", chi.URLParam(r, "bookId"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), middleware.UserIDFromContext(r.Context()), bookID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ReadingListStatusResponse{BookID: bookID, Saved: false}})
}
