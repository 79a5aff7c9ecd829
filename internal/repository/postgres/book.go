package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/pkg/database"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

const bookColumns = `id, title, author, description, genre, published_date, isbn, publisher,
	language, page_count, cover_image, average_rating, review_count, featured, created_at, updated_at`

// BookRepository implements repository.BookRepository and
// repository.RatingStore using PostgreSQL.
type BookRepository struct {
	pool database.DBTX
}

// NewBookRepository creates a new PostgreSQL-backed book repository.
func NewBookRepository(pool database.DBTX) *BookRepository {
	return &BookRepository{pool: pool}
}

// Create inserts a new book into the database.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.Title, b.Author, b.Description, b.Genre, b.PublishedDate, b.ISBN, b.Publisher,
		b.Language, b.PageCount, b.CoverImage, b.AverageRating, b.ReviewCount, b.Featured,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "books_isbn_key") {
			return apperrors.AlreadyExists("book", "isbn", b.ISBN)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// GetByID retrieves a book by its ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", id)
		}
		return nil, fmt.Errorf("get book by id: %w", err)
	}
	return b, nil
}

// GetByISBN retrieves a book by its ISBN.
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, isbn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", isbn)
		}
		return nil, fmt.Errorf("get book by isbn: %w", err)
	}
	return b, nil
}

// List returns a page of books matching filter and the total match count.
func (r *BookRepository) List(ctx context.Context, filter domain.BookFilter) (books []domain.Book, total int, err error) {
	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if filter.Genre != "" && filter.Genre != domain.GenreAll {
		args = append(args, filter.Genre)
		conds = append(conds, fmt.Sprintf("genre = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM books` + where
	ctx, end := database.TraceQuery(ctx, "ListBooks", countQuery)
	defer func() { end(err) }()

	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 12
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * perPage
	}
	args = append(args, perPage, offset)

	query := fmt.Sprintf(`SELECT %s FROM books%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		bookColumns, where, bookOrderBy(filter.Sort), len(args)-1, len(args))

	books, err = r.queryBooks(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return books, total, nil
}

// ListFeatured returns featured books, most recently published first.
func (r *BookRepository) ListFeatured(ctx context.Context, limit int) ([]domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE featured ORDER BY published_date DESC, id LIMIT $1`

	books, err := r.queryBooks(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured books: %w", err)
	}
	return books, nil
}

// ListRelated returns other books in the same genre, highest rated first.
func (r *BookRepository) ListRelated(ctx context.Context, book *domain.Book, limit int) ([]domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		WHERE genre = $1 AND id <> $2
		ORDER BY average_rating DESC, id
		LIMIT $3`

	books, err := r.queryBooks(ctx, query, book.Genre, book.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related books: %w", err)
	}
	return books, nil
}

// Update writes the catalog fields of a book. The rating columns are left
// untouched.
func (r *BookRepository) Update(ctx context.Context, b *domain.Book) error {
	b.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE books
		SET title = $1, author = $2, description = $3, genre = $4, published_date = $5,
		    isbn = $6, publisher = $7, language = $8, page_count = $9, cover_image = $10,
		    featured = $11, updated_at = $12
		WHERE id = $13`

	ct, err := r.pool.Exec(ctx, query,
		b.Title, b.Author, b.Description, b.Genre, b.PublishedDate,
		b.ISBN, b.Publisher, b.Language, b.PageCount, b.CoverImage,
		b.Featured, b.UpdatedAt, b.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "books_isbn_key") {
			return apperrors.AlreadyExists("book", "isbn", b.ISBN)
		}
		return fmt.Errorf("update book: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("book", b.ID)
	}
	return nil
}

// DeleteCascade removes a book's reviews and reading list entries, then the
// book, in one transaction.
func (r *BookRepository) DeleteCascade(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE book_id = $1`, id); err != nil {
			return fmt.Errorf("delete book reviews: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM reading_list WHERE book_id = $1`, id); err != nil {
			return fmt.Errorf("delete book reading list entries: %w", err)
		}
		ct, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("book", id)
		}
		return nil
	})
}

// RecomputeRatingStats locks the book row, derives the stats from every
// committed rating and writes them back in the same transaction. Concurrent
// recomputes of one book therefore run one after another.
func (r *BookRepository) RecomputeRatingStats(ctx context.Context, bookID string, compute func([]int) domain.RatingStats) (stats *domain.RatingStats, err error) {
	ctx, end := database.TraceQuery(ctx, "RecomputeRatingStats", "SELECT ... FOR UPDATE; SELECT rating; UPDATE books")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("book", bookID)
			}
			return fmt.Errorf("lock book: %w", err)
		}

		ratings, err := queryRatings(ctx, tx, bookID)
		if err != nil {
			return err
		}

		s := compute(ratings)
		if _, err := tx.Exec(ctx,
			`UPDATE books SET average_rating = $1, review_count = $2 WHERE id = $3`,
			s.AverageRating, s.ReviewCount, bookID,
		); err != nil {
			return fmt.Errorf("write rating stats: %w", err)
		}
		stats = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book rows: %w", err)
	}
	return books, nil
}

func bookOrderBy(sort string) string {
	switch sort {
	case domain.SortOldest:
		return "published_date ASC, id"
	case domain.SortRating:
		return "average_rating DESC, id"
	case domain.SortReviews:
		return "review_count DESC, id"
	default:
		return "published_date DESC, id"
	}
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &b.Genre, &b.PublishedDate, &b.ISBN, &b.Publisher,
		&b.Language, &b.PageCount, &b.CoverImage, &b.AverageRating, &b.ReviewCount, &b.Featured,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// escapeLike escapes the ILIKE wildcards in a user supplied search term.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
