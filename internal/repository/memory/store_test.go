package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

func seedBook(t *testing.T, s *Store, id, genre string, published time.Time) *domain.Book {
	t.Helper()
	b := &domain.Book{
		ID: id, Title: "Title " + id, Author: "Author", Description: "About " + id,
		Genre: genre, PublishedDate: published, ISBN: "isbn-" + id, PageCount: 100,
	}
	require.NoError(t, s.Books().Create(context.Background(), b))
	return b
}

func seedReview(t *testing.T, s *Store, id, bookID, userID string, rating int) {
	t.Helper()
	require.NoError(t, s.Reviews().Create(context.Background(), &domain.Review{
		ID: id, BookID: bookID, UserID: userID, Rating: rating, Content: "x", CreatedAt: time.Now(),
	}))
}

func TestBooks_CreateRejectsDuplicateISBN(t *testing.T) {
	s := NewStore()
	seedBook(t, s, "b1", "fiction", time.Now())

	err := s.Books().Create(context.Background(), &domain.Book{ID: "b2", ISBN: "isbn-b1"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestBooks_ListFiltersSortsAndPages(t *testing.T) {
	s := NewStore()
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBook(t, s, "b1", "fiction", base)
	seedBook(t, s, "b2", "fiction", base.AddDate(1, 0, 0))
	seedBook(t, s, "b3", "history", base.AddDate(2, 0, 0))
	ctx := context.Background()

	books, total, err := s.Books().List(ctx, domain.BookFilter{Genre: "fiction", Sort: domain.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "b1", books[0].ID)

	books, total, err = s.Books().List(ctx, domain.BookFilter{Genre: domain.GenreAll, PerPage: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, books, 1)
	assert.Equal(t, "b1", books[0].ID)

	books, _, err = s.Books().List(ctx, domain.BookFilter{Search: "ABOUT B3"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "b3", books[0].ID)
}

func TestBooks_UpdateKeepsDerivedStats(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	b := seedBook(t, s, "b1", "fiction", time.Now())
	seedReview(t, s, "r1", "b1", "u1", 4)
	_, err := s.Books().RecomputeRatingStats(ctx, "b1", domain.ComputeRatingStats)
	require.NoError(t, err)

	b.Title = "Renamed"
	b.AverageRating, b.ReviewCount = 0, 0
	require.NoError(t, s.Books().Update(ctx, b))

	got, err := s.Books().GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 4.0, got.AverageRating)
	assert.Equal(t, 1, got.ReviewCount)
}

func TestBooks_RelatedAndFeatured(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	b1 := seedBook(t, s, "b1", "fiction", time.Now())
	seedBook(t, s, "b2", "fiction", time.Now())
	seedBook(t, s, "b3", "history", time.Now())

	related, err := s.Books().ListRelated(ctx, b1, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "b2", related[0].ID)

	featured, err := s.Books().ListFeatured(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, featured)
}

func TestBooks_DeleteCascade(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())
	seedBook(t, s, "b2", "fiction", time.Now())
	seedReview(t, s, "r1", "b1", "u1", 4)
	seedReview(t, s, "r2", "b2", "u1", 2)
	_, err := s.ReadingList().Add(ctx, "u1", "b1")
	require.NoError(t, err)

	require.NoError(t, s.Books().DeleteCascade(ctx, "b1"))

	_, err = s.Reviews().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = s.Reviews().GetByID(ctx, "r2")
	assert.NoError(t, err)
	ok, err := s.ReadingList().Exists(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Books().DeleteCascade(ctx, "b1"), apperrors.ErrNotFound)
}

func TestReviews_DuplicateAndHelpful(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())
	seedReview(t, s, "r1", "b1", "u1", 4)

	err := s.Reviews().Create(ctx, &domain.Review{ID: "r2", BookID: "b1", UserID: "u1", Rating: 1, Content: "again"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReview)

	rv, err := s.Reviews().AddHelpfulUser(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, rv.HelpfulCount)
	assert.Equal(t, "Title b1", rv.Book.Title)

	_, err = s.Reviews().AddHelpfulUser(ctx, "r1", "u2")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMarked)

	_, err = s.Reviews().AddHelpfulUser(ctx, "nope", "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviews_ReturnedCopiesDoNotAlias(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())
	seedReview(t, s, "r1", "b1", "u1", 4)
	_, err := s.Reviews().AddHelpfulUser(ctx, "r1", "u2")
	require.NoError(t, err)

	got, err := s.Reviews().GetByID(ctx, "r1")
	require.NoError(t, err)
	got.HelpfulUsers[0] = "mutated"

	again, err := s.Reviews().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, again.HelpfulUsers)
}

func TestReviews_ListNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())
	now := time.Now()
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.Reviews().Create(ctx, &domain.Review{
			ID: id, BookID: "b1", UserID: fmt.Sprintf("u%d", i), Rating: 3, Content: "c",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.Reviews().List(ctx, domain.ReviewFilter{BookID: "b1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{got[0].ID, got[1].ID, got[2].ID})

	got, err = s.Reviews().List(ctx, domain.ReviewFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)
}

func TestRecomputeRatingStats_MissingBook(t *testing.T) {
	s := NewStore()
	_, err := s.Books().RecomputeRatingStats(context.Background(), "gone", domain.ComputeRatingStats)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecomputeRatingStats_ConcurrentWritersConverge(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Reviews().Create(ctx, &domain.Review{
				ID: fmt.Sprintf("r%d", i), BookID: "b1", UserID: fmt.Sprintf("u%d", i),
				Rating: i%5 + 1, Content: "c", CreatedAt: time.Now(),
			})
			_, err := s.Books().RecomputeRatingStats(ctx, "b1", domain.ComputeRatingStats)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ratings, err := s.Reviews().ListRatingsByBook(ctx, "b1")
	require.NoError(t, err)
	want := domain.ComputeRatingStats(ratings)

	got, err := s.Books().GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, writers, got.ReviewCount)
	assert.Equal(t, want.AverageRating, got.AverageRating)
	assert.Zero(t, s.bookLocks.len())
}

func TestUsers_UniqueEmailCaseInsensitive(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &domain.User{ID: "u1", Email: "ada@example.com"}))

	err := s.Users().Create(ctx, &domain.User{ID: "u2", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	u, err := s.Users().GetByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestReadingList_AddIsIdempotentAndOrdered(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBook(t, s, "b1", "fiction", time.Now())
	seedBook(t, s, "b2", "fiction", time.Now())

	first, err := s.ReadingList().Add(ctx, "u1", "b1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = s.ReadingList().Add(ctx, "u1", "b2")
	require.NoError(t, err)
	again, err := s.ReadingList().Add(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, first.AddedAt, again.AddedAt)

	books, err := s.ReadingList().ListBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "b2", books[0].ID)

	_, err = s.ReadingList().Add(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, s.ReadingList().Remove(ctx, "u1", "b1"))
	assert.ErrorIs(t, s.ReadingList().Remove(ctx, "u1", "b1"), apperrors.ErrNotFound)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("book")
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.len())
}
