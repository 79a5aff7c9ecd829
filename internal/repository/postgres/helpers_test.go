package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleBook() *domain.Book {
	return &domain.Book{
		ID:            "6f1c0c1e-0000-4000-8000-000000000001",
		Title:         "The Left Hand of Darkness",
		Author:        "Ursula K. Le Guin",
		Description:   "Genly Ai visits Gethen.",
		Genre:         "science-fiction",
		PublishedDate: time.Date(1969, 3, 1, 0, 0, 0, 0, time.UTC),
		ISBN:          "978-0441478125",
		Publisher:     "Ace",
		Language:      "English",
		PageCount:     304,
		CoverImage:    "lhod.jpg",
		AverageRating: 4.5,
		ReviewCount:   2,
		Featured:      true,
		CreatedAt:     fixedTime,
		UpdatedAt:     fixedTime,
	}
}

func bookRows(books ...*domain.Book) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "title", "author", "description", "genre", "published_date", "isbn", "publisher",
		"language", "page_count", "cover_image", "average_rating", "review_count", "featured",
		"created_at", "updated_at",
	})
	for _, b := range books {
		rows.AddRow(
			b.ID, b.Title, b.Author, b.Description, b.Genre, b.PublishedDate, b.ISBN, b.Publisher,
			b.Language, b.PageCount, b.CoverImage, b.AverageRating, b.ReviewCount, b.Featured,
			b.CreatedAt, b.UpdatedAt,
		)
	}
	return rows
}

func reviewRows(reviews ...*domain.Review) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "book_id", "user_id", "rating", "title", "content", "helpful_users",
		"created_at", "updated_at", "name", "avatar", "title", "author", "cover_image",
	})
	for _, r := range reviews {
		rows.AddRow(
			r.ID, r.BookID, r.UserID, r.Rating, r.Title, r.Content, r.HelpfulUsers,
			r.CreatedAt, r.UpdatedAt, "Ada", "ada.png", "Dune", "Frank Herbert", "dune.jpg",
		)
	}
	return rows
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:           "rev-1",
		BookID:       "book-1",
		UserID:       "user-1",
		Rating:       4,
		Title:        "Sandy",
		Content:      "Spice must flow.",
		HelpfulUsers: []string{"user-2"},
		CreatedAt:    fixedTime,
		UpdatedAt:    fixedTime,
	}
}
