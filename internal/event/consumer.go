package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
	pkgkafka "github.com/Opkumar/Book-Review-System/pkg/kafka"
	"github.com/Opkumar/Book-Review-System/pkg/logger"
)

// Recomputer refreshes the derived rating of a book.
type Recomputer interface {
	Recompute(ctx context.Context, bookID string) (*domain.RatingStats, error)
}

// RecomputeHandler handles book.recompute_requested events by re-running the
// rating aggregation. Requests for books that were deleted meanwhile are
// dropped.
func RecomputeHandler(agg Recomputer, log *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, evt *pkgkafka.Event) error {
		var data RecomputeRequestedData
		if err := evt.UnmarshalData(&data); err != nil {
			log.ErrorContext(ctx, "dropping malformed recompute request",
				slog.String("event_id", evt.EventID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if data.BookID == "" {
			data.BookID = evt.AggregateID
		}
		if evt.CorrelationID != "" {
			ctx = logger.WithCorrelationID(ctx, evt.CorrelationID)
		}

		stats, err := agg.Recompute(ctx, data.BookID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.InfoContext(ctx, "skipping recompute for deleted book", slog.String("book_id", data.BookID))
				return nil
			}
			return fmt.Errorf("recompute book %s: %w", data.BookID, err)
		}

		log.InfoContext(ctx, "rating recomputed from request",
			slog.String("book_id", data.BookID),
			slog.String("reason", data.Reason),
			slog.Float64("average_rating", stats.AverageRating),
			slog.Int("review_count", stats.ReviewCount),
		)
		return nil
	}
}
