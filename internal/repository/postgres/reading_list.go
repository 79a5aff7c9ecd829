package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/pkg/database"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

// ReadingListRepository implements repository.ReadingListRepository using
// PostgreSQL.
type ReadingListRepository struct {
	pool database.DBTX
}

// NewReadingListRepository creates a new PostgreSQL-backed reading list
// repository.
func NewReadingListRepository(pool database.DBTX) *ReadingListRepository {
	return &ReadingListRepository{pool: pool}
}

// Add saves a book to the user's reading list. Adding it again keeps the
// original added_at.
func (r *ReadingListRepository) Add(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	entry := &domain.ReadingListEntry{UserID: userID, BookID: bookID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reading_list (user_id, book_id, added_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, book_id) DO UPDATE SET added_at = reading_list.added_at
		 RETURNING added_at`,
		userID, bookID, time.Now().UTC(),
	).Scan(&entry.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("add to reading list: %w", err)
	}
	return entry, nil
}

// Remove deletes a book from the user's reading list.
func (r *ReadingListRepository) Remove(ctx context.Context, userID, bookID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reading_list WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove from reading list: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("reading list entry", bookID)
	}
	return nil
}

// ListBooks returns the books on the user's reading list, most recently
// added first.
func (r *ReadingListRepository) ListBooks(ctx context.Context, userID string) ([]domain.Book, error) {
	query := `
		SELECT b.id, b.title, b.author, b.description, b.genre, b.published_date, b.isbn, b.publisher,
		       b.language, b.page_count, b.cover_image, b.average_rating, b.review_count, b.featured,
		       b.created_at, b.updated_at
		FROM reading_list rl
		JOIN books b ON b.id = rl.book_id
		WHERE rl.user_id = $1
		ORDER BY rl.added_at DESC, b.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading list: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading list row: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading list rows: %w", err)
	}
	return books, nil
}

// Exists reports whether a book is on the user's reading list.
func (r *ReadingListRepository) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reading_list WHERE user_id = $1 AND book_id = $2)`,
		userID, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reading list: %w", err)
	}
	return exists, nil
}
