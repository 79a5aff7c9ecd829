package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/service"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
	"github.com/Opkumar/Book-Review-System/pkg/httputil"
	"github.com/Opkumar/Book-Review-System/pkg/pagination"
)

// BookHandler handles HTTP requests for catalog endpoints.
type BookHandler struct {
	service *service.BookService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(svc *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateBookRequest is the JSON request body for creating a book.
type CreateBookRequest struct {
	Title         string `json:"title" validate:"notblank,max=300"`
	Author        string `json:"author" validate:"notblank,max=200"`
	Description   string `json:"description" validate:"notblank"`
	Genre         string `json:"genre" validate:"notblank,max=100"`
	PublishedDate string `json:"publishedDate" validate:"required"`
	ISBN          string `json:"isbn" validate:"required,isbn"`
	Publisher     string `json:"publisher" validate:"notblank,max=200"`
	Language      string `json:"language" validate:"max=50"`
	PageCount     int    `json:"pageCount" validate:"required,min=1"`
	CoverImage    string `json:"coverImage" validate:"omitempty,url"`
	Featured      bool   `json:"featured"`
}

// UpdateBookRequest is the JSON request body for updating a book. Omitted
// fields are left unchanged.
type UpdateBookRequest struct {
	Title         *string `json:"title" validate:"omitempty,max=300"`
	Author        *string `json:"author" validate:"omitempty,max=200"`
	Description   *string `json:"description"`
	Genre         *string `json:"genre" validate:"omitempty,max=100"`
	PublishedDate *string `json:"publishedDate"`
	ISBN          *string `json:"isbn" validate:"omitempty,isbn"`
	Publisher     *string `json:"publisher" validate:"omitempty,notblank,max=200"`
	Language      *string `json:"language" validate:"omitempty,max=50"`
	PageCount     *int    `json:"pageCount" validate:"omitempty,min=1"`
	CoverImage    *string `json:"coverImage" validate:"omitempty,url"`
	Featured      *bool   `json:"featured"`
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("publishedDate must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t, nil
}

// --- Handlers ---

// ListBooks handles GET /api/v1/books?search=&genre=&sort=&page=&per_page=
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := pagination.FromRequest(r, service.DefaultBooksPerPage)

	result, err := h.service.ListBooks(r.Context(), domain.BookFilter{
		Search:  q.Get("search"),
		Genre:   q.Get("genre"),
		Sort:    q.Get("sort"),
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(result.Books, result.TotalCount, result.Page, result.PerPage))
}

// FeaturedBooks handles GET /api/v1/books/featured
func (h *BookHandler) FeaturedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.FeaturedBooks(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: books})
}

// GetBook handles GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "book", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	detail, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if detail.RelatedBooks == nil {
		detail.RelatedBooks = []domain.Book{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// RatingSummary handles GET /api/v1/books/{id}/rating-summary
func (h *BookHandler) RatingSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "book", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	summary, err := h.service.RatingSummary(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// CreateBook handles POST /api/v1/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	published, err := parseDate(req.PublishedDate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	book, err := h.service.CreateBook(r.Context(), &service.CreateBookInput{
		Title:         req.Title,
		Author:        req.Author,
		Description:   req.Description,
		Genre:         req.Genre,
		PublishedDate: published,
		ISBN:          req.ISBN,
		Publisher:     req.Publisher,
		Language:      req.Language,
		PageCount:     req.PageCount,
		CoverImage:    req.CoverImage,
		Featured:      req.Featured,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: book})
}

// UpdateBook handles PUT /api/v1/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "book", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateBookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input := &service.UpdateBookInput{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Genre:       req.Genre,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Language:    req.Language,
		PageCount:   req.PageCount,
		CoverImage:  req.CoverImage,
		Featured:    req.Featured,
	}
	if req.PublishedDate != nil {
		published, err := parseDate(*req.PublishedDate)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		input.PublishedDate = &published
	}

	book, err := h.service.UpdateBook(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: book})
}

// DeleteBook handles DELETE /api/v1/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "book", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "book removed"},
	})
}

// RecomputeRating handles POST /api/v1/books/{id}/recompute
func (h *BookHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "book", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	stats, err := h.service.RecomputeRating(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}
