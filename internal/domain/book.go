package domain

import (
	"slices"
	"time"
)

// DefaultLanguage is applied when a book is created without a language.
const DefaultLanguage = "English"

// Book list sort keys.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortRating  = "rating"
	SortReviews = "reviews"
)

// GenreAll disables the genre filter when listing books.
const GenreAll = "all"

// Book is a catalog entry. AverageRating and ReviewCount are derived from the
// book's reviews and are only ever written by the rating aggregator.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	Genre         string    `json:"genre"`
	PublishedDate time.Time `json:"publishedDate"`
	ISBN          string    `json:"isbn"`
	Publisher     string    `json:"publisher"`
	Language      string    `json:"language"`
	PageCount     int       `json:"pageCount"`
	CoverImage    string    `json:"coverImage,omitempty"`
	AverageRating float64   `json:"averageRating"`
	ReviewCount   int       `json:"reviewCount"`
	Featured      bool      `json:"featured"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Summary returns the short form attached to reviews and reading lists.
func (b *Book) Summary() *BookSummary {
	return &BookSummary{
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		CoverImage: b.CoverImage,
	}
}

// BookSummary is the subset of a book embedded in other resources.
type BookSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	CoverImage string `json:"coverImage,omitempty"`
}

// BookDetail is a book together with books of the same genre.
type BookDetail struct {
	*Book
	RelatedBooks []Book `json:"relatedBooks"`
}

// BookFilter defines the criteria for listing books.
type BookFilter struct {
	Search  string
	Genre   string
	Sort    string
	Page    int
	PerPage int
}

// ValidSorts returns the accepted book sort keys.
func ValidSorts() []string {
	return []string{SortNewest, SortOldest, SortRating, SortReviews}
}

// IsValidSort reports whether sort is an accepted book sort key.
func IsValidSort(sort string) bool {
	return slices.Contains(ValidSorts(), sort)
}
