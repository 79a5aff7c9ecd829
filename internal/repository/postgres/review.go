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

const reviewSelect = `
	SELECT r.id, r.book_id, r.user_id, r.rating, r.title, r.content, r.helpful_users,
	       r.created_at, r.updated_at,
	       u.name, u.avatar, b.title, b.author, b.cover_image
	FROM reviews r
	JOIN users u ON u.id = r.user_id
	JOIN books b ON b.id = r.book_id`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `
		INSERT INTO reviews (id, book_id, user_id, rating, title, content, helpful_users, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	helpful := rv.HelpfulUsers
	if helpful == nil {
		helpful = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		rv.ID, rv.BookID, rv.UserID, rv.Rating, rv.Title, rv.Content, helpful,
		rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "reviews_book_user_key") {
			return apperrors.DuplicateReview(rv.BookID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review with its author and book summaries.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return rv, nil
}

// GetByBookAndUser retrieves the review userID wrote for bookID.
func (r *ReviewRepository) GetByBookAndUser(ctx context.Context, bookID, userID string) (*domain.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, reviewSelect+` WHERE r.book_id = $1 AND r.user_id = $2`, bookID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", bookID+"/"+userID)
		}
		return nil, fmt.Errorf("get review by book and user: %w", err)
	}
	return rv, nil
}

// List returns reviews matching filter, newest first.
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) (reviews []domain.Review, err error) {
	var (
		conds []string
		args  []any
	)
	if filter.BookID != "" {
		args = append(args, filter.BookID)
		conds = append(conds, fmt.Sprintf("r.book_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("r.user_id = $%d", len(args)))
	}

	query := reviewSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id"

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews = []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// Update writes the rating, title and content of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	rv.UpdatedAt = time.Now().UTC()

	ct, err := r.pool.Exec(ctx,
		`UPDATE reviews SET rating = $1, title = $2, content = $3, updated_at = $4 WHERE id = $5`,
		rv.Rating, rv.Title, rv.Content, rv.UpdatedAt, rv.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}
	return nil
}

// Delete removes a review by ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// AddHelpfulUser appends userID to the review's helpful users in a single
// conditional UPDATE, so two concurrent marks by the same user cannot both
// succeed.
func (r *ReviewRepository) AddHelpfulUser(ctx context.Context, reviewID, userID string) (*domain.Review, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE reviews
		SET helpful_users = array_append(helpful_users, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(helpful_users))`,
		reviewID, userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("mark review helpful: %w", err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, reviewID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check review exists: %w", err)
		}
		if !exists {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, apperrors.AlreadyMarked(reviewID)
	}

	return r.GetByID(ctx, reviewID)
}

// ListRatingsByBook returns the rating of every review of a book.
func (r *ReviewRepository) ListRatingsByBook(ctx context.Context, bookID string) ([]int, error) {
	return queryRatings(ctx, r.pool, bookID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRatings(ctx context.Context, q querier, bookID string) ([]int, error) {
	rows, err := q.Query(ctx, `SELECT rating FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	ratings := []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv     domain.Review
		author domain.ReviewAuthor
		book   domain.BookSummary
	)
	err := row.Scan(
		&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Content, &rv.HelpfulUsers,
		&rv.CreatedAt, &rv.UpdatedAt,
		&author.Name, &author.Avatar, &book.Title, &book.Author, &book.CoverImage,
	)
	if err != nil {
		return nil, err
	}
	if rv.HelpfulUsers == nil {
		rv.HelpfulUsers = []string{}
	}
	rv.HelpfulCount = len(rv.HelpfulUsers)
	author.ID = rv.UserID
	book.ID = rv.BookID
	rv.User = &author
	rv.Book = &book
	return &rv, nil
}
