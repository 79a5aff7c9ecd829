package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/service"
	"github.com/Opkumar/Book-Review-System/pkg/httputil"
	"github.com/Opkumar/Book-Review-System/pkg/middleware"
	"github.com/Opkumar/Book-Review-System/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// ListReviewsQuery holds the optional review list filters.
type ListReviewsQuery struct {
	BookID string `json:"bookId" validate:"omitempty,uuid"`
	UserID string `json:"userId" validate:"omitempty,uuid"`
}

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	BookID  string `json:"bookId" validate:"required,uuid"`
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"notblank,max=5000"`
}

// UpdateReviewRequest is the JSON request body for updating a review. Omitted
// fields are left unchanged. The rating range is checked by the service,
// which treats 0 as unchanged.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content" validate:"omitempty,max=5000"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/reviews?bookId=&userId=
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	q := ListReviewsQuery{
		BookID: r.URL.Query().Get("bookId"),
		UserID: r.URL.Query().Get("userId"),
	}
	if err := validator.Validate(q); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), domain.ReviewFilter{BookID: q.BookID, UserID: q.UserID})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), &service.CreateReviewInput{
		BookID:  req.BookID,
		UserID:  middleware.UserIDFromContext(r.Context()),
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "review", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	review, err := h.service.UpdateReview(r.Context(), id, middleware.UserIDFromContext(r.Context()), &service.UpdateReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "review", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.service.DeleteReview(ctx, id, middleware.UserIDFromContext(ctx)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "review removed"},
	})
}

// MarkHelpful handles PUT /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "review", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.MarkHelpful(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}
