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
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	BookID  string
	UserID  string
	Rating  int
	Title   string
	Content string
}

// UpdateReviewInput holds the parameters for a partial review update. A nil
// field is left unchanged, and so are a zero rating and empty content.
type UpdateReviewInput struct {
	Rating  *int
	Title   *string
	Content *string
}

// ReviewService implements the review lifecycle. Every committed mutation
// that can change a book's ratings is followed by a recompute.
type ReviewService struct {
	reviews    repository.ReviewRepository
	books      repository.BookRepository
	users      repository.UserRepository
	aggregator *Aggregator
	producer   EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	aggregator *Aggregator,
	producer EventPublisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		books:      books,
		users:      users,
		aggregator: aggregator,
		producer:   producer,
		logger:     logger,
		now:        time.Now,
	}
}

// ListReviews returns the reviews matching filter, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	reviews, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// GetReview retrieves a review by ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// CreateReview stores a user's review of a book and refreshes the book's
// rating. A user may review a book once.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperrors.InvalidInput("content is required")
	}

	if _, err := s.books.GetByID(ctx, input.BookID); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	switch _, err := s.reviews.GetByBookAndUser(ctx, input.BookID, input.UserID); {
	case err == nil:
		return nil, apperrors.DuplicateReview(input.BookID)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	now := s.now().UTC()
	review := &domain.Review{
		ID:           uuid.New().String(),
		BookID:       input.BookID,
		UserID:       input.UserID,
		Rating:       input.Rating,
		Title:        input.Title,
		Content:      input.Content,
		HelpfulUsers: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A concurrent create by the same user surfaces here as DuplicateReview.
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.recompute(ctx, review.BookID); err != nil {
		return nil, err
	}

	created, err := s.reviews.GetByID(ctx, review.ID)
	if err != nil {
		return nil, fmt.Errorf("get created review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", created.ID),
		slog.String("book_id", created.BookID),
		slog.String("user_id", created.UserID),
		slog.Int("rating", created.Rating),
	)

	return created, nil
}

// UpdateReview applies a partial update to a review. Only the author may
// update it. The book's rating is refreshed when the rating changed.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, requesterID string, input *UpdateReviewInput) (*domain.Review, error) {
	if input.Rating != nil && *input.Rating != 0 && !domain.IsValidRating(*input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.UserID != requesterID {
		return nil, apperrors.NotAuthorized("only the author can update this review")
	}

	ratingChanged := false
	if input.Rating != nil && *input.Rating != 0 && *input.Rating != review.Rating {
		review.Rating = *input.Rating
		ratingChanged = true
	}
	if input.Title != nil {
		review.Title = *input.Title
	}
	if input.Content != nil && strings.TrimSpace(*input.Content) != "" {
		review.Content = *input.Content
	}
	review.UpdatedAt = s.now().UTC()

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if ratingChanged {
		if err := s.recompute(ctx, review.BookID); err != nil {
			return nil, err
		}
	}

	if err := s.producer.PublishReviewUpdated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Bool("rating_changed", ratingChanged),
	)

	return review, nil
}

// DeleteReview removes a review. The author and administrators may delete
// it. The requester's role is read from the user store, so a demoted admin
// loses the override before their token expires.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, requesterID string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if review.UserID != requesterID {
		admin, err := s.isAdmin(ctx, requesterID)
		if err != nil {
			return err
		}
		if !admin {
			return apperrors.NotAuthorized("only the author or an admin can delete this review")
		}
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.recompute(ctx, review.BookID); err != nil {
		return err
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.String("deleted_by", requesterID),
	)

	return nil
}

// MarkHelpful records that userID found the review helpful. Each user counts
// once. Ratings are unaffected.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID, userID string) (*domain.Review, error) {
	review, err := s.reviews.AddHelpfulUser(ctx, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("mark review helpful: %w", err)
	}

	if err := s.producer.PublishReviewHelpfulMarked(ctx, review, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.helpful_marked event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review marked helpful",
		slog.String("review_id", review.ID),
		slog.Int("helpful_count", review.HelpfulCount),
	)

	return review, nil
}

func (s *ReviewService) isAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get requester: %w", err)
	}
	return user.Role == domain.RoleAdmin, nil
}

// recompute refreshes the rating of bookID after a committed review change.
// On failure the change stands, a recompute request is queued and the caller
// gets RATING_RECOMPUTE_FAILED.
func (s *ReviewService) recompute(ctx context.Context, bookID string) error {
	_, err := s.aggregator.Recompute(ctx, bookID)
	if err == nil {
		return nil
	}

	s.logger.ErrorContext(ctx, "rating recompute failed after review change",
		slog.String("book_id", bookID),
		slog.String("error", err.Error()),
	)
	if perr := s.producer.PublishRecomputeRequested(ctx, bookID, err.Error()); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.recompute_requested event",
			slog.String("book_id", bookID),
			slog.String("error", perr.Error()),
		)
	}
	return apperrors.RecomputeFailed(bookID, err)
}
