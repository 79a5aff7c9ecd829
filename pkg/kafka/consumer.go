package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const (
	maxHandlerRetries = 3
	retryBaseBackoff  = 100 * time.Millisecond
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterer receives messages whose handler kept failing.
type deadLetterer interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// Consumer reads one topic in a consumer group and hands each event to a
// Handler. A message is committed once the handler succeeds, once it has been
// forwarded to the DLQ, or when it cannot be decoded at all.
type Consumer struct {
	reader    messageReader
	topic     string
	group     string
	handler   Handler
	dlq       deadLetterer
	backoff   time.Duration
	logger    *slog.Logger
	closeOnce sync.Once
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithDLQ forwards messages that exhaust their retries to dlq.
func WithDLQ(dlq *DLQProducer) ConsumerOption {
	return func(c *Consumer) {
		if dlq != nil {
			c.dlq = dlq
		}
	}
}

// NewConsumer creates a consumer for cfg.Topic in cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg.Topic, cfg.GroupID, handler, logger, opts...)
}

func newConsumer(r messageReader, topic, group string, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		topic:   topic,
		group:   group,
		handler: handler,
		backoff: retryBaseBackoff,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes messages until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topic", c.topic),
		slog.String("group", c.group),
	)
	defer c.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		if c.process(ctx, msg) {
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("failed to commit message",
					slog.String("topic", msg.Topic),
					slog.Int64("offset", msg.Offset),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// process handles one message and reports whether its offset may be
// committed. It returns false only when ctx was canceled mid-retry, so the
// message is redelivered after a restart.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	start := time.Now()
	defer func() {
		consumerProcessingDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())
	}()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("discarding undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		consumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		return true
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &msg.Headers})
	log := c.logger.With(
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			consumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
			return true
		}
		log.Warn("handler failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt == maxHandlerRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	consumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
	if c.dlq == nil {
		log.Error("handler failed after all retries, skipping message", slog.String("error", lastErr.Error()))
		return true
	}
	if err := c.dlq.Publish(ctx, msg, lastErr, c.group); err != nil {
		log.Error("failed to forward message to DLQ, skipping", slog.String("error", err.Error()))
		return true
	}
	consumerDLQPublished.WithLabelValues(msg.Topic, c.group).Inc()
	return true
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
