package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
	"github.com/Opkumar/Book-Review-System/internal/repository/memory"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewHelpfulMarked(ctx context.Context, r *domain.Review, userID string) error {
	return m.Called(ctx, r, userID).Error(0)
}

func (m *mockPublisher) PublishBookCreated(ctx context.Context, b *domain.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockPublisher) PublishBookUpdated(ctx context.Context, b *domain.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockPublisher) PublishBookDeleted(ctx context.Context, bookID string) error {
	return m.Called(ctx, bookID).Error(0)
}

func (m *mockPublisher) PublishRatingUpdated(ctx context.Context, bookID string, stats domain.RatingStats) error {
	return m.Called(ctx, bookID, stats).Error(0)
}

func (m *mockPublisher) PublishRecomputeRequested(ctx context.Context, bookID, reason string) error {
	return m.Called(ctx, bookID, reason).Error(0)
}

// allowEvents accepts every event the test does not assert on.
func allowEvents(p *mockPublisher) {
	p.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReviewDeleted", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReviewHelpfulMarked", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishBookCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishBookUpdated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishBookDeleted", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishRatingUpdated", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishRecomputeRequested", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

// --- Spy Cache ---

type spyCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.BookDetail
	versions    map[string]int64
	sets        int
	dropped     int
	invalidated []string
}

func newSpyCache() *spyCache {
	return &spyCache{
		entries:  make(map[string]*domain.BookDetail),
		versions: make(map[string]int64),
	}
}

func (c *spyCache) Get(_ context.Context, id string) (*domain.BookDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[id]
	return d, ok
}

func (c *spyCache) Version(_ context.Context, id string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id], true
}

func (c *spyCache) Set(_ context.Context, d *domain.BookDetail, version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[d.ID] != version {
		c.dropped++
		return
	}
	c.sets++
	c.entries[d.ID] = d
}

func (c *spyCache) Invalidate(_ context.Context, ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.versions[id]++
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
}

// --- Flaky Rating Store ---

type flakyRatingStore struct {
	repository.RatingStore
	mu  sync.Mutex
	err error
}

func (f *flakyRatingStore) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyRatingStore) RecomputeRatingStats(ctx context.Context, bookID string, compute func([]int) domain.RatingStats) (*domain.RatingStats, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.RatingStore.RecomputeRatingStats(ctx, bookID, compute)
}

// --- Fixture ---

type fixture struct {
	store   *memory.Store
	ratings *flakyRatingStore
	events  *mockPublisher
	cache   *spyCache
	agg     *Aggregator
	reviews *ReviewService
	books   *BookService
	lists   *ReadingListService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	events := new(mockPublisher)
	cache := newSpyCache()
	ratings := &flakyRatingStore{RatingStore: store.Books()}
	logger := newTestLogger()

	agg := NewAggregator(ratings, cache, events, logger)
	return &fixture{
		store:   store,
		ratings: ratings,
		events:  events,
		cache:   cache,
		agg:     agg,
		reviews: NewReviewService(store.Reviews(), store.Books(), store.Users(), agg, events, logger),
		books:   NewBookService(store.Books(), store.Reviews(), agg, cache, events, logger),
		lists:   NewReadingListService(store.ReadingList(), store.Books(), logger),
	}
}

var isbnSeq struct {
	sync.Mutex
	n int
}

func nextISBN() string {
	isbnSeq.Lock()
	defer isbnSeq.Unlock()
	isbnSeq.n++
	return fmt.Sprintf("978%010d", isbnSeq.n)
}

func (f *fixture) seedBook(t *testing.T, genre string) *domain.Book {
	t.Helper()
	now := time.Now().UTC()
	b := &domain.Book{
		ID:            uuid.New().String(),
		Title:         "Book " + genre,
		Author:        "Author",
		Genre:         genre,
		ISBN:          nextISBN(),
		Language:      domain.DefaultLanguage,
		PublishedDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b
}

func (f *fixture) seedUser(t *testing.T, name string) *domain.User {
	t.Helper()
	return f.seedUserWithRole(t, name, domain.RoleUser)
}

func (f *fixture) seedUserWithRole(t *testing.T, name, role string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) bookStats(t *testing.T, bookID string) (float64, int) {
	t.Helper()
	b, err := f.store.Books().GetByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.AverageRating, b.ReviewCount
}

func (f *fixture) save(t *testing.T, userID, bookID string) *domain.ReadingListEntry {
	t.Helper()
	entry, err := f.lists.Add(context.Background(), userID, bookID)
	require.NoError(t, err)
	return entry
}

func (f *fixture) review(t *testing.T, bookID, userID string, rating int) *domain.Review {
	t.Helper()
	r, err := f.reviews.CreateReview(context.Background(), &CreateReviewInput{
		BookID: bookID, UserID: userID, Rating: rating, Content: "Worth reading.",
	})
	require.NoError(t, err)
	return r
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
