package domain

import (
	"slices"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating and text for one book. A user has at most one
// review per book.
type Review struct {
	ID           string        `json:"id"`
	BookID       string        `json:"bookId"`
	UserID       string        `json:"userId"`
	Rating       int           `json:"rating"`
	Title        string        `json:"title,omitempty"`
	Content      string        `json:"content"`
	HelpfulCount int           `json:"helpfulCount"`
	HelpfulUsers []string      `json:"helpfulUsers"`
	User         *ReviewAuthor `json:"user,omitempty"`
	Book         *BookSummary  `json:"book,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// HasMarkedHelpful reports whether userID already marked the review helpful.
func (r *Review) HasMarkedHelpful(userID string) bool {
	return slices.Contains(r.HelpfulUsers, userID)
}

// ReviewAuthor is the public part of the user who wrote a review.
type ReviewAuthor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReviewFilter narrows a review listing. Empty fields do not filter.
type ReviewFilter struct {
	BookID string
	UserID string
}

// IsValidRating reports whether rating is within 1..5.
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
