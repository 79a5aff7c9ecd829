package repository

import (
	"context"

	"github.com/Opkumar/Book-Review-System/internal/domain"
)

// BookRepository defines the interface for book persistence operations.
type BookRepository interface {
	// Create inserts a new book. A duplicate ISBN yields an AlreadyExists error.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Book, error)

	// GetByISBN retrieves a book by its ISBN.
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)

	// List returns books matching the filter along with the total count.
	List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error)

	// ListFeatured returns featured books, most recently published first.
	ListFeatured(ctx context.Context, limit int) ([]domain.Book, error)

	// ListRelated returns other books of the same genre, highest rated first.
	ListRelated(ctx context.Context, book *domain.Book, limit int) ([]domain.Book, error)

	// Update writes the catalog fields of book. Rating fields are ignored.
	Update(ctx context.Context, book *domain.Book) error

	// DeleteCascade removes the book's reviews, reading list entries and then
	// the book itself.
	DeleteCascade(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a review. A second review of the same book by the same
	// user yields a DuplicateReview error.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review with its author and book summaries.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByBookAndUser retrieves the review userID wrote for bookID.
	GetByBookAndUser(ctx context.Context, bookID, userID string) (*domain.Review, error)

	// List returns matching reviews, newest first, with summaries attached.
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)

	// Update writes rating, title and content of review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review.
	Delete(ctx context.Context, id string) error

	// AddHelpfulUser atomically appends userID to the review's helpful users
	// and returns the updated review. A repeat yields an AlreadyMarked error.
	AddHelpfulUser(ctx context.Context, reviewID, userID string) (*domain.Review, error)

	// ListRatingsByBook returns the ratings of all reviews of bookID.
	ListRatingsByBook(ctx context.Context, bookID string) ([]int, error)
}

// RatingStore owns the derived rating fields of books.
type RatingStore interface {
	// RecomputeRatingStats reads every rating of bookID while holding the
	// book's write lock, derives the stats with compute and stores them on the
	// book. It returns a NotFound error when the book does not exist.
	RecomputeRatingStats(ctx context.Context, bookID string, compute func([]int) domain.RatingStats) (*domain.RatingStats, error)
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a user. A duplicate email yields an AlreadyExists error.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update writes name, bio and avatar of user.
	Update(ctx context.Context, user *domain.User) error
}

// ReadingListRepository defines the interface for reading list persistence.
type ReadingListRepository interface {
	// Add saves bookID to the user's list and returns the stored entry.
	// Adding twice is a no-op that returns the original entry.
	Add(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error)

	// Remove deletes bookID from the user's list.
	Remove(ctx context.Context, userID, bookID string) error

	// ListBooks returns the books in the user's list, most recently added first.
	ListBooks(ctx context.Context, userID string) ([]domain.Book, error)

	// Exists reports whether bookID is in the user's list.
	Exists(ctx context.Context, userID, bookID string) (bool, error)
}
