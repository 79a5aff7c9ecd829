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

// UserHandler handles HTTP requests for account, auth and profile endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the JSON request body for updating a profile.
type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Bio    *string `json:"bio" validate:"omitempty,max=1000"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

// --- Response types ---

// AuthResponse wraps the user with an access token.
type AuthResponse struct {
	User  *domain.User      `json:"user"`
	Token *domain.AuthToken `json:"token"`
}

// --- Handlers ---

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: AuthResponse{User: user, Token: token}})
}

// Login handles POST /api/v1/auth
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AuthResponse{User: user, Token: token}})
}

// Me handles GET /api/v1/auth
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// GetProfile handles GET /api/v1/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if profile.ReadingList == nil {
		profile.ReadingList = []domain.Book{}
	}
	if profile.Reviews == nil {
		profile.Reviews = []domain.Review{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// UpdateProfile handles PUT /api/v1/users/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, middleware.UserIDFromContext(r.Context()), service.UpdateProfileInput{
		Name:   req.Name,
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}
