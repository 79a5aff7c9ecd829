// Package service holds the business logic of the book review service: the
// rating aggregator, the review lifecycle, the catalog, reading lists and
// user accounts.
package service

import (
	"context"

	"github.com/Opkumar/Book-Review-System/internal/domain"
)

// BookCache caches book details. Implementations treat every failure as a
// miss.
//
// Readers call Version before loading a detail from the store and pass it to
// Set. Set must drop the detail if bookID was invalidated in between.
// Version reports ok=false when the cache cannot be used.
type BookCache interface {
	Get(ctx context.Context, bookID string) (*domain.BookDetail, bool)
	Version(ctx context.Context, bookID string) (version int64, ok bool)
	Set(ctx context.Context, detail *domain.BookDetail, version int64)
	Invalidate(ctx context.Context, bookIDs ...string)
}

// NoopBookCache is used when Redis is disabled.
type NoopBookCache struct{}

func (NoopBookCache) Get(context.Context, string) (*domain.BookDetail, bool) { return nil, false }
func (NoopBookCache) Version(context.Context, string) (int64, bool)          { return 0, false }
func (NoopBookCache) Set(context.Context, *domain.BookDetail, int64)         {}
func (NoopBookCache) Invalidate(context.Context, ...string)                  {}

// EventPublisher publishes domain events. Publishing failures never fail the
// operation that produced the event.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, r *domain.Review) error
	PublishReviewUpdated(ctx context.Context, r *domain.Review) error
	PublishReviewDeleted(ctx context.Context, r *domain.Review) error
	PublishReviewHelpfulMarked(ctx context.Context, r *domain.Review, userID string) error
	PublishBookCreated(ctx context.Context, b *domain.Book) error
	PublishBookUpdated(ctx context.Context, b *domain.Book) error
	PublishBookDeleted(ctx context.Context, bookID string) error
	PublishRatingUpdated(ctx context.Context, bookID string, stats domain.RatingStats) error
	PublishRecomputeRequested(ctx context.Context, bookID, reason string) error
}
