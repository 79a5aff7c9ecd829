package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
)

var (
	recomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_recomputes_total",
			Help: "Rating recomputations by result (success, failure)",
		},
		[]string{"result"},
	)

	recomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_recompute_duration_seconds",
			Help:    "Duration of rating recomputations",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Aggregator keeps a book's average rating and review count equal to the
// mean and count of its reviews. It is the only writer of those fields.
type Aggregator struct {
	store    repository.RatingStore
	cache    BookCache
	producer EventPublisher
	logger   *slog.Logger
}

// NewAggregator creates a rating aggregator.
func NewAggregator(store repository.RatingStore, cache BookCache, producer EventPublisher, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:    store,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// Recompute reads every review of bookID and stores the resulting stats on
// the book. Concurrent calls for the same book are serialized by the store,
// so the last one to finish has seen every committed review. A missing book
// yields a NotFound error and nothing is written.
func (a *Aggregator) Recompute(ctx context.Context, bookID string) (*domain.RatingStats, error) {
	start := time.Now()
	stats, err := a.store.RecomputeRatingStats(ctx, bookID, domain.ComputeRatingStats)
	recomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		recomputeTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("recompute rating of book %s: %w", bookID, err)
	}
	recomputeTotal.WithLabelValues("success").Inc()

	a.cache.Invalidate(ctx, bookID)

	if err := a.producer.PublishRatingUpdated(ctx, bookID, *stats); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish book.rating_updated event",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}

	a.logger.DebugContext(ctx, "rating recomputed",
		slog.String("book_id", bookID),
		slog.Float64("average_rating", stats.AverageRating),
		slog.Int("review_count", stats.ReviewCount),
	)

	return stats, nil
}
