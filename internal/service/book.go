package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
	"github.com/Opkumar/Book-Review-System/pkg/pagination"
)

// Catalog listing sizes.
const (
	DefaultBooksPerPage = 12
	FeaturedLimit       = 4
	RelatedLimit        = 4
)

// CreateBookInput holds the parameters for creating a book.
type CreateBookInput struct {
	Title         string
	Author        string
	Description   string
	Genre         string
	PublishedDate time.Time
	ISBN          string
	Publisher     string
	Language      string
	PageCount     int
	CoverImage    string
	Featured      bool
}

// UpdateBookInput holds the parameters for a partial book update.
type UpdateBookInput struct {
	Title         *string
	Author        *string
	Description   *string
	Genre         *string
	PublishedDate *time.Time
	ISBN          *string
	Publisher     *string
	Language      *string
	PageCount     *int
	CoverImage    *string
	Featured      *bool
}

// BookListResult is one page of the catalog.
type BookListResult struct {
	Books      []domain.Book `json:"books"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PerPage    int           `json:"perPage"`
	TotalPages int           `json:"totalPages"`
}

// BookService implements the catalog.
type BookService struct {
	books      repository.BookRepository
	reviews    repository.ReviewRepository
	aggregator *Aggregator
	cache      BookCache
	producer   EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewBookService creates a new book service.
func NewBookService(
	books repository.BookRepository,
	reviews repository.ReviewRepository,
	aggregator *Aggregator,
	cache BookCache,
	producer EventPublisher,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		books:      books,
		reviews:    reviews,
		aggregator: aggregator,
		cache:      cache,
		producer:   producer,
		logger:     logger,
		now:        time.Now,
	}
}

// ListBooks returns one page of books matching filter. An empty sort means
// newest first and the genre "all" disables the genre filter.
func (s *BookService) ListBooks(ctx context.Context, filter domain.BookFilter) (*BookListResult, error) {
	if filter.Sort == "" {
		filter.Sort = domain.SortNewest
	}
	if !domain.IsValidSort(filter.Sort) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("sort must be one of: %s", strings.Join(domain.ValidSorts(), ", ")))
	}
	if filter.Genre == domain.GenreAll {
		filter.Genre = ""
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = DefaultBooksPerPage
	}
	if filter.PerPage > pagination.MaxPerPage {
		filter.PerPage = pagination.MaxPerPage
	}

	books, total, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	return &BookListResult{
		Books:      books,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: pagination.TotalPages(total, filter.PerPage),
	}, nil
}

// FeaturedBooks returns the most recently published featured books.
func (s *BookService) FeaturedBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := s.books.ListFeatured(ctx, FeaturedLimit)
	if err != nil {
		return nil, fmt.Errorf("list featured books: %w", err)
	}
	return books, nil
}

// GetBook returns a book with its related books, reading through the cache.
// The cache version is taken before the store read so that a detail loaded
// before a concurrent recompute is not cached after it.
func (s *BookService) GetBook(ctx context.Context, id string) (*domain.BookDetail, error) {
	if detail, ok := s.cache.Get(ctx, id); ok {
		return detail, nil
	}
	version, cacheable := s.cache.Version(ctx, id)

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	related, err := s.books.ListRelated(ctx, book, RelatedLimit)
	if err != nil {
		return nil, fmt.Errorf("list related books: %w", err)
	}

	detail := &domain.BookDetail{Book: book, RelatedBooks: related}
	if cacheable {
		s.cache.Set(ctx, detail, version)
	}
	return detail, nil
}

// CreateBook adds a book to the catalog. The ISBN must be unique.
func (s *BookService) CreateBook(ctx context.Context, input *CreateBookInput) (*domain.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if strings.TrimSpace(input.Author) == "" {
		return nil, apperrors.InvalidInput("author is required")
	}
	if strings.TrimSpace(input.ISBN) == "" {
		return nil, apperrors.InvalidInput("isbn is required")
	}
	if strings.TrimSpace(input.Publisher) == "" {
		return nil, apperrors.InvalidInput("publisher is required")
	}
	if input.PageCount <= 0 {
		return nil, apperrors.InvalidInput("pageCount must be positive")
	}

	if err := s.ensureISBNFree(ctx, input.ISBN, ""); err != nil {
		return nil, err
	}

	language := input.Language
	if language == "" {
		language = domain.DefaultLanguage
	}

	now := s.now().UTC()
	book := &domain.Book{
		ID:            uuid.New().String(),
		Title:         input.Title,
		Author:        input.Author,
		Description:   input.Description,
		Genre:         input.Genre,
		PublishedDate: input.PublishedDate,
		ISBN:          input.ISBN,
		Publisher:     input.Publisher,
		Language:      language,
		PageCount:     input.PageCount,
		CoverImage:    input.CoverImage,
		Featured:      input.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	if err := s.producer.PublishBookCreated(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.created event",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book created",
		slog.String("book_id", book.ID),
		slog.String("isbn", book.ISBN),
	)

	return book, nil
}

// UpdateBook applies a partial update to the catalog fields of a book. The
// derived rating fields cannot be changed this way.
func (s *BookService) UpdateBook(ctx context.Context, id string, input *UpdateBookInput) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.InvalidInput("title must not be empty")
		}
		book.Title = *input.Title
	}
	if input.Author != nil {
		if strings.TrimSpace(*input.Author) == "" {
			return nil, apperrors.InvalidInput("author must not be empty")
		}
		book.Author = *input.Author
	}
	if input.ISBN != nil && *input.ISBN != book.ISBN {
		if err := s.ensureISBNFree(ctx, *input.ISBN, book.ID); err != nil {
			return nil, err
		}
		book.ISBN = *input.ISBN
	}
	if input.PageCount != nil {
		if *input.PageCount <= 0 {
			return nil, apperrors.InvalidInput("pageCount must be positive")
		}
		book.PageCount = *input.PageCount
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.Genre != nil {
		book.Genre = *input.Genre
	}
	if input.PublishedDate != nil {
		book.PublishedDate = *input.PublishedDate
	}
	if input.Publisher != nil {
		if strings.TrimSpace(*input.Publisher) == "" {
			return nil, apperrors.InvalidInput("publisher must not be empty")
		}
		book.Publisher = *input.Publisher
	}
	if input.Language != nil {
		book.Language = *input.Language
	}
	if input.CoverImage != nil {
		book.CoverImage = *input.CoverImage
	}
	if input.Featured != nil {
		book.Featured = *input.Featured
	}
	book.UpdatedAt = s.now().UTC()

	if err := s.books.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.cache.Invalidate(ctx, book.ID)

	if err := s.producer.PublishBookUpdated(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.updated event",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book updated", slog.String("book_id", book.ID))

	return book, nil
}

// DeleteBook removes a book together with its reviews and reading list
// entries.
func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.DeleteCascade(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	s.cache.Invalidate(ctx, id)

	if err := s.producer.PublishBookDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.deleted event",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book deleted", slog.String("book_id", id))

	return nil
}

// RecomputeRating re-runs the rating aggregation of a book. It repairs stats
// left stale by a failed recompute.
func (s *BookService) RecomputeRating(ctx context.Context, id string) (*domain.RatingStats, error) {
	stats, err := s.aggregator.Recompute(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "book rating recomputed on request",
		slog.String("book_id", id),
		slog.Float64("average_rating", stats.AverageRating),
		slog.Int("review_count", stats.ReviewCount),
	)
	return stats, nil
}

// RatingSummary computes a book's rating stats and per-star distribution
// from its current reviews.
func (s *BookService) RatingSummary(ctx context.Context, id string) (*domain.RatingSummary, error) {
	if _, err := s.books.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	ratings, err := s.reviews.ListRatingsByBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return domain.NewRatingSummary(id, ratings), nil
}

func (s *BookService) ensureISBNFree(ctx context.Context, isbn, exceptID string) error {
	existing, err := s.books.GetByISBN(ctx, isbn)
	switch {
	case err == nil && existing.ID != exceptID:
		return apperrors.AlreadyExists("book", "isbn", isbn)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("check isbn: %w", err)
	}
	return nil
}
