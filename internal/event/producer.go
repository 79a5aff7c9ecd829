package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	pkgkafka "github.com/Opkumar/Book-Review-System/pkg/kafka"
	"github.com/Opkumar/Book-Review-System/pkg/logger"
)

// Kafka topics for book and review events.
var (
	TopicReviewCreated       = pkgkafka.Topic("review", "created")
	TopicReviewUpdated       = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted       = pkgkafka.Topic("review", "deleted")
	TopicReviewHelpfulMarked = pkgkafka.Topic("review", "helpful_marked")
	TopicBookCreated         = pkgkafka.Topic("book", "created")
	TopicBookUpdated         = pkgkafka.Topic("book", "updated")
	TopicBookDeleted         = pkgkafka.Topic("book", "deleted")
	TopicRatingUpdated       = pkgkafka.Topic("book", "rating_updated")
	TopicRecomputeRequested  = pkgkafka.Topic("book", "recompute_requested")
)

// Aggregate types.
const (
	AggregateTypeBook   = "book"
	AggregateTypeReview = "review"
)

// Source identifies events emitted by this service.
const Source = "book-review"

// ReviewData is the payload of review events.
type ReviewData struct {
	ReviewID string `json:"reviewId"`
	BookID   string `json:"bookId"`
	UserID   string `json:"userId"`
	Rating   int    `json:"rating"`
}

// HelpfulMarkedData is the payload of review.helpful_marked.
type HelpfulMarkedData struct {
	ReviewID     string `json:"reviewId"`
	BookID       string `json:"bookId"`
	MarkedBy     string `json:"markedBy"`
	HelpfulCount int    `json:"helpfulCount"`
}

// BookData is the payload of book catalog events.
type BookData struct {
	BookID string `json:"bookId"`
	Title  string `json:"title,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// RatingUpdatedData is the payload of book.rating_updated.
type RatingUpdatedData struct {
	BookID        string  `json:"bookId"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// RecomputeRequestedData is the payload of book.recompute_requested.
type RecomputeRequestedData struct {
	BookID string `json:"bookId"`
	Reason string `json:"reason"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes book and review events. A Producer without a Kafka
// publisher drops every event, which is how the service runs with Kafka
// disabled.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	p := &Producer{logger: logger}
	if kafka != nil {
		p.kafka = kafka
	}
	return p
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p.kafka == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if actor := logger.UserIDFromContext(ctx); actor != "" {
		evt.WithMetadata("actor", actor)
	}
	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{ReviewID: r.ID, BookID: r.BookID, UserID: r.UserID, Rating: r.Rating}
}

// PublishReviewCreated publishes review.created keyed by the book ID, so all
// events of one book are ordered on one partition.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.BookID, AggregateTypeReview, reviewData(r))
}

// PublishReviewUpdated publishes review.updated.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.BookID, AggregateTypeReview, reviewData(r))
}

// PublishReviewDeleted publishes review.deleted.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, r.BookID, AggregateTypeReview, reviewData(r))
}

// PublishReviewHelpfulMarked publishes review.helpful_marked.
func (p *Producer) PublishReviewHelpfulMarked(ctx context.Context, r *domain.Review, userID string) error {
	return p.publish(ctx, TopicReviewHelpfulMarked, r.BookID, AggregateTypeReview, HelpfulMarkedData{
		ReviewID: r.ID, BookID: r.BookID, MarkedBy: userID, HelpfulCount: r.HelpfulCount,
	})
}

// PublishBookCreated publishes book.created.
func (p *Producer) PublishBookCreated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookCreated, b.ID, AggregateTypeBook, BookData{BookID: b.ID, Title: b.Title, ISBN: b.ISBN, Genre: b.Genre})
}

// PublishBookUpdated publishes book.updated.
func (p *Producer) PublishBookUpdated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookUpdated, b.ID, AggregateTypeBook, BookData{BookID: b.ID, Title: b.Title, ISBN: b.ISBN, Genre: b.Genre})
}

// PublishBookDeleted publishes book.deleted.
func (p *Producer) PublishBookDeleted(ctx context.Context, bookID string) error {
	return p.publish(ctx, TopicBookDeleted, bookID, AggregateTypeBook, BookData{BookID: bookID})
}

// PublishRatingUpdated publishes book.rating_updated.
func (p *Producer) PublishRatingUpdated(ctx context.Context, bookID string, stats domain.RatingStats) error {
	return p.publish(ctx, TopicRatingUpdated, bookID, AggregateTypeBook, RatingUpdatedData{
		BookID: bookID, AverageRating: stats.AverageRating, ReviewCount: stats.ReviewCount,
	})
}

// PublishRecomputeRequested asks the recompute consumer to refresh the
// rating of bookID.
func (p *Producer) PublishRecomputeRequested(ctx context.Context, bookID, reason string) error {
	return p.publish(ctx, TopicRecomputeRequested, bookID, AggregateTypeBook, RecomputeRequestedData{
		BookID: bookID, Reason: reason,
	})
}
