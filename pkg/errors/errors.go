package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
	ErrConflict        = errors.New("conflict")
	ErrDuplicateReview = errors.New("duplicate review")
	ErrAlreadyMarked   = errors.New("already marked helpful")
	ErrRecomputeFailed = errors.New("rating recompute failed")
	ErrRateLimited     = errors.New("rate limited")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 400 error for a unique field collision (ISBN, email).
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusBadRequest,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error for a missing or invalid credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// NotAuthorized creates a 401 error for an authenticated caller that is not
// entitled to the action (not the owner, not an admin).
func NotAuthorized(message string) *AppError {
	return &AppError{
		Code:    "NOT_AUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrForbidden,
	}
}

// DuplicateReview creates a 400 error for a second review of the same book by
// the same user.
func DuplicateReview(bookID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_REVIEW",
		Message: fmt.Sprintf("you have already reviewed book %s", bookID),
		Status:  http.StatusBadRequest,
		Err:     ErrDuplicateReview,
	}
}

// AlreadyMarked creates a 400 error for a repeated helpful vote.
func AlreadyMarked(reviewID string) *AppError {
	return &AppError{
		Code:    "ALREADY_MARKED",
		Message: fmt.Sprintf("you have already marked review %s as helpful", reviewID),
		Status:  http.StatusBadRequest,
		Err:     ErrAlreadyMarked,
	}
}

// RecomputeFailed creates a 500 error for a committed review mutation whose
// rating recompute did not complete. The review change stands.
func RecomputeFailed(bookID string, err error) *AppError {
	return &AppError{
		Code:    "RATING_RECOMPUTE_FAILED",
		Message: fmt.Sprintf("review saved but rating of book %s could not be refreshed", bookID),
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrRecomputeFailed, err),
	}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrDuplicateReview), errors.Is(err, ErrAlreadyMarked):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
