package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/internal/domain"
)

func newTestCache(t *testing.T) (*BookCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBookCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func sampleDetail() *domain.BookDetail {
	return &domain.BookDetail{
		Book: &domain.Book{ID: "b1", Title: "Kindred", Author: "Octavia E. Butler", AverageRating: 4.5, ReviewCount: 2},
		RelatedBooks: []domain.Book{
			{ID: "b2", Title: "Parable of the Sower"},
		},
	}
}

func TestBookCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "b1")
	assert.False(t, ok)

	c.Set(ctx, sampleDetail(), 0)
	assert.True(t, mr.Exists("bookreview:book:b1"))
	assert.Equal(t, time.Minute, mr.TTL("bookreview:book:b1"))

	got, ok := c.Get(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, "Kindred", got.Title)
	assert.Equal(t, 4.5, got.AverageRating)
	require.Len(t, got.RelatedBooks, 1)
	assert.Equal(t, "b2", got.RelatedBooks[0].ID)
}

func TestBookCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	c.Set(ctx, sampleDetail(), 0)

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "b1")
	assert.False(t, ok)
}

func TestBookCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	c.Set(ctx, sampleDetail(), 0)

	c.Invalidate(ctx, "b1", "b9")
	assert.False(t, mr.Exists("bookreview:book:b1"))

	version, ok := c.Version(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, versionTTL, mr.TTL("bookreview:book-version:b1"))

	c.Invalidate(ctx)
}

func TestBookCache_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("bookreview:book:b1", "{not json"))

	_, ok := c.Get(context.Background(), "b1")
	assert.False(t, ok)
}

func TestBookCache_RedisDownDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	_, ok := c.Get(ctx, "b1")
	assert.False(t, ok)
	_, ok = c.Version(ctx, "b1")
	assert.False(t, ok)
	c.Set(ctx, sampleDetail(), 0)
	c.Invalidate(ctx, "b1")
	assert.Error(t, c.Ping(ctx))
}

func TestBookCache_MissesDoNotTripBreaker(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for range 20 {
		_, ok := c.Get(ctx, "absent")
		assert.False(t, ok)
	}
	assert.NoError(t, c.Ping(ctx))
}

func TestBookCache_SetAfterInvalidateIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	version, ok := c.Version(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, int64(0), version)

	// A recompute finishes between the database read and the write back.
	c.Invalidate(ctx, "b1")
	c.Set(ctx, sampleDetail(), version)

	assert.False(t, mr.Exists("bookreview:book:b1"))
	_, ok = c.Get(ctx, "b1")
	assert.False(t, ok)
}

func TestBookCache_SetAtCurrentVersion(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	c.Invalidate(ctx, "b1")
	c.Invalidate(ctx, "b1")

	version, ok := c.Version(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, int64(2), version)

	c.Set(ctx, sampleDetail(), version)

	got, ok := c.Get(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, 2, got.ReviewCount)
}

func TestBookCache_StaleWritesDoNotTripBreaker(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	c.Invalidate(ctx, "b1")

	for range 20 {
		c.Set(ctx, sampleDetail(), 0)
	}
	assert.NoError(t, c.Ping(ctx))
}
