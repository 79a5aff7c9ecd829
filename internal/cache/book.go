// Package cache keeps rendered book details in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/pkg/circuitbreaker"
)

const (
	keyPrefix        = "bookreview:book:"
	versionKeyPrefix = "bookreview:book-version:"

	// versionTTL bounds how long an untouched version counter is kept. It
	// must outlive any in-flight read by a wide margin.
	versionTTL = 24 * time.Hour
)

// errStaleEntry reports a Set whose version was superseded by an
// invalidation.
var errStaleEntry = errors.New("book cache entry is stale")

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "book_cache_lookups_total",
		Help: "Book cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// BookCache stores book details in Redis. Every Redis call goes through a
// circuit breaker, and any cache failure degrades to a miss so that reads
// fall through to the database.
//
// Each book has a version counter that Invalidate bumps. A reader captures
// the version before loading from the database and Set only writes while
// the version is unchanged, so a detail loaded before an invalidation never
// lands in the cache after it.
type BookCache struct {
	client  *redis.Client
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewBookCache creates a cache whose entries expire after ttl.
func NewBookCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *BookCache {
	cfg := circuitbreaker.DefaultConfig("redis-book-cache")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, redis.Nil) ||
			errors.Is(err, errStaleEntry) || errors.Is(err, redis.TxFailedErr)
	}
	return &BookCache{
		client:  client,
		breaker: circuitbreaker.New(cfg, logger),
		ttl:     ttl,
		logger:  logger,
	}
}

func key(bookID string) string {
	return keyPrefix + bookID
}

func versionKey(bookID string) string {
	return versionKeyPrefix + bookID
}

// Get returns the cached detail for bookID and whether it was found.
func (c *BookCache) Get(ctx context.Context, bookID string) (*domain.BookDetail, bool) {
	raw, err := circuitbreaker.Do(c.breaker, func() ([]byte, error) {
		return c.client.Get(ctx, key(bookID)).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheLookups.WithLabelValues("miss").Inc()
			return nil, false
		}
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "book cache read failed",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	var detail domain.BookDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "discarding undecodable book cache entry",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return &detail, true
}

// Version returns the current version of bookID's entry. ok is false when
// Redis is unavailable, in which case the caller should not call Set.
func (c *BookCache) Version(ctx context.Context, bookID string) (int64, bool) {
	version, err := circuitbreaker.Do(c.breaker, func() (int64, error) {
		v, err := c.client.Get(ctx, versionKey(bookID)).Int64()
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return v, err
	})
	if err != nil {
		c.logger.WarnContext(ctx, "book cache version read failed",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	return version, true
}

// Set stores detail under its book ID if the entry is still at version.
// A write that lost the race with Invalidate is dropped.
func (c *BookCache) Set(ctx context.Context, detail *domain.BookDetail, version int64) {
	raw, err := json.Marshal(detail)
	if err != nil {
		c.logger.WarnContext(ctx, "encode book cache entry", slog.String("error", err.Error()))
		return
	}

	vkey := versionKey(detail.ID)
	_, err = circuitbreaker.Do(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, vkey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != version {
				return errStaleEntry
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key(detail.ID), raw, c.ttl)
				return nil
			})
			return err
		}, vkey)
	})
	switch {
	case err == nil:
	case errors.Is(err, errStaleEntry), errors.Is(err, redis.TxFailedErr):
		c.logger.DebugContext(ctx, "dropped stale book cache entry", slog.String("book_id", detail.ID))
	default:
		c.logger.WarnContext(ctx, "book cache write failed",
			slog.String("book_id", detail.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate removes the entries of bookIDs and bumps their versions.
func (c *BookCache) Invalidate(ctx context.Context, bookIDs ...string) {
	if len(bookIDs) == 0 {
		return
	}
	_, err := circuitbreaker.Do(c.breaker, func() ([]redis.Cmder, error) {
		return c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range bookIDs {
				pipe.Incr(ctx, versionKey(id))
				pipe.Expire(ctx, versionKey(id), versionTTL)
				pipe.Del(ctx, key(id))
			}
			return nil
		})
	})
	if err != nil {
		c.logger.WarnContext(ctx, "book cache invalidation failed",
			slog.Any("book_ids", bookIDs),
			slog.String("error", err.Error()),
		)
	}
}

// Ping checks Redis through the breaker. It backs the readiness check.
func (c *BookCache) Ping(ctx context.Context) error {
	_, err := circuitbreaker.Do(c.breaker, func() (string, error) {
		return c.client.Ping(ctx).Result()
	})
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
