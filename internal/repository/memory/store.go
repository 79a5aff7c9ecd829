// Package memory is an in-process implementation of the repository
// interfaces, used for development runs without Postgres and for tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

var (
	_ repository.BookRepository        = (*BookRepository)(nil)
	_ repository.RatingStore           = (*BookRepository)(nil)
	_ repository.ReviewRepository      = (*ReviewRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.ReadingListRepository = (*ReadingListRepository)(nil)
)

// Store holds every table in memory behind one RWMutex. Rating recomputes
// additionally take a per-book lock so that recomputes of one book never
// interleave.
type Store struct {
	mu          sync.RWMutex
	books       map[string]domain.Book
	reviews     map[string]domain.Review
	users       map[string]domain.User
	readingList map[string]map[string]time.Time
	bookLocks   *keyedMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:       make(map[string]domain.Book),
		reviews:     make(map[string]domain.Review),
		users:       make(map[string]domain.User),
		readingList: make(map[string]map[string]time.Time),
		bookLocks:   newKeyedMutex(),
	}
}

// Books returns the store's book repository. It also implements
// repository.RatingStore.
func (s *Store) Books() *BookRepository { return &BookRepository{s: s} }

// Reviews returns the store's review repository.
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// Users returns the store's user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// ReadingList returns the store's reading list repository.
func (s *Store) ReadingList() *ReadingListRepository { return &ReadingListRepository{s: s} }

// Ping always succeeds. It lets the store stand in for a database health
// check.
func (s *Store) Ping(context.Context) error { return nil }

// BookRepository implements repository.BookRepository and
// repository.RatingStore in memory.
type BookRepository struct{ s *Store }

func (r *BookRepository) Create(_ context.Context, b *domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.isbnTaken(b.ISBN, "") {
		return apperrors.AlreadyExists("book", "isbn", b.ISBN)
	}
	r.s.books[b.ID] = *b
	return nil
}

func (r *BookRepository) GetByID(_ context.Context, id string) (*domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.books[id]
	if !ok {
		return nil, apperrors.NotFound("book", id)
	}
	return &b, nil
}

func (r *BookRepository) GetByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, b := range r.s.books {
		if b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, apperrors.NotFound("book", isbn)
}

func (r *BookRepository) List(_ context.Context, filter domain.BookFilter) ([]domain.Book, int, error) {
	r.s.mu.RLock()
	matched := make([]domain.Book, 0, len(r.s.books))
	search := strings.ToLower(filter.Search)
	for _, b := range r.s.books {
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) &&
			!strings.Contains(strings.ToLower(b.Description), search) {
			continue
		}
		if filter.Genre != "" && filter.Genre != domain.GenreAll && b.Genre != filter.Genre {
			continue
		}
		matched = append(matched, b)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, bookComparator(filter.Sort))

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 12
	}
	page := max(filter.Page, 1)
	return paginate(matched, page, perPage), len(matched), nil
}

func (r *BookRepository) ListFeatured(_ context.Context, limit int) ([]domain.Book, error) {
	r.s.mu.RLock()
	var featured []domain.Book
	for _, b := range r.s.books {
		if b.Featured {
			featured = append(featured, b)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(featured, bookComparator(domain.SortNewest))
	return paginate(featured, 1, limit), nil
}

func (r *BookRepository) ListRelated(_ context.Context, book *domain.Book, limit int) ([]domain.Book, error) {
	r.s.mu.RLock()
	var related []domain.Book
	for _, b := range r.s.books {
		if b.Genre == book.Genre && b.ID != book.ID {
			related = append(related, b)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(related, bookComparator(domain.SortRating))
	return paginate(related, 1, limit), nil
}

func (r *BookRepository) Update(_ context.Context, b *domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.books[b.ID]
	if !ok {
		return apperrors.NotFound("book", b.ID)
	}
	if r.s.isbnTaken(b.ISBN, b.ID) {
		return apperrors.AlreadyExists("book", "isbn", b.ISBN)
	}

	b.UpdatedAt = time.Now().UTC()
	updated := *b
	updated.AverageRating = cur.AverageRating
	updated.ReviewCount = cur.ReviewCount
	updated.CreatedAt = cur.CreatedAt
	r.s.books[b.ID] = updated
	return nil
}

func (r *BookRepository) DeleteCascade(_ context.Context, id string) error {
	unlock := r.s.bookLocks.Lock(id)
	defer unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[id]; !ok {
		return apperrors.NotFound("book", id)
	}
	for rid, rv := range r.s.reviews {
		if rv.BookID == id {
			delete(r.s.reviews, rid)
		}
	}
	for _, entries := range r.s.readingList {
		delete(entries, id)
	}
	delete(r.s.books, id)
	return nil
}

// RecomputeRatingStats serializes recomputes per book. The ratings are read
// after the book lock is taken, so a recompute that waited always sees every
// review committed before it started waiting.
func (r *BookRepository) RecomputeRatingStats(_ context.Context, bookID string, compute func([]int) domain.RatingStats) (*domain.RatingStats, error) {
	unlock := r.s.bookLocks.Lock(bookID)
	defer unlock()

	r.s.mu.RLock()
	if _, ok := r.s.books[bookID]; !ok {
		r.s.mu.RUnlock()
		return nil, apperrors.NotFound("book", bookID)
	}
	ratings := r.s.ratingsOf(bookID)
	r.s.mu.RUnlock()

	stats := compute(ratings)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.books[bookID]
	if !ok {
		return nil, apperrors.NotFound("book", bookID)
	}
	b.AverageRating = stats.AverageRating
	b.ReviewCount = stats.ReviewCount
	r.s.books[bookID] = b
	return &stats, nil
}

// ReviewRepository implements repository.ReviewRepository in memory.
type ReviewRepository struct{ s *Store }

func (r *ReviewRepository) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[rv.BookID]; !ok {
		return apperrors.NotFound("book", rv.BookID)
	}
	for _, existing := range r.s.reviews {
		if existing.BookID == rv.BookID && existing.UserID == rv.UserID {
			return apperrors.DuplicateReview(rv.BookID)
		}
	}
	stored := *rv
	stored.HelpfulUsers = slices.Clone(rv.HelpfulUsers)
	if stored.HelpfulUsers == nil {
		stored.HelpfulUsers = []string{}
	}
	stored.HelpfulCount = len(stored.HelpfulUsers)
	stored.User, stored.Book = nil, nil
	r.s.reviews[rv.ID] = stored
	return nil
}

func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	out := r.s.hydrate(rv)
	return &out, nil
}

func (r *ReviewRepository) GetByBookAndUser(_ context.Context, bookID, userID string) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rv := range r.s.reviews {
		if rv.BookID == bookID && rv.UserID == userID {
			out := r.s.hydrate(rv)
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("review", bookID+"/"+userID)
}

func (r *ReviewRepository) List(_ context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	r.s.mu.RLock()
	out := []domain.Review{}
	for _, rv := range r.s.reviews {
		if filter.BookID != "" && rv.BookID != filter.BookID {
			continue
		}
		if filter.UserID != "" && rv.UserID != filter.UserID {
			continue
		}
		out = append(out, r.s.hydrate(rv))
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *ReviewRepository) Update(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.reviews[rv.ID]
	if !ok {
		return apperrors.NotFound("review", rv.ID)
	}
	rv.UpdatedAt = time.Now().UTC()
	cur.Rating = rv.Rating
	cur.Title = rv.Title
	cur.Content = rv.Content
	cur.UpdatedAt = rv.UpdatedAt
	r.s.reviews[rv.ID] = cur
	return nil
}

func (r *ReviewRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(r.s.reviews, id)
	return nil
}

func (r *ReviewRepository) AddHelpfulUser(_ context.Context, reviewID, userID string) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[reviewID]
	if !ok {
		return nil, apperrors.NotFound("review", reviewID)
	}
	if rv.HasMarkedHelpful(userID) {
		return nil, apperrors.AlreadyMarked(reviewID)
	}
	rv.HelpfulUsers = append(slices.Clone(rv.HelpfulUsers), userID)
	rv.HelpfulCount = len(rv.HelpfulUsers)
	rv.UpdatedAt = time.Now().UTC()
	r.s.reviews[reviewID] = rv

	out := r.s.hydrate(rv)
	return &out, nil
}

func (r *ReviewRepository) ListRatingsByBook(_ context.Context, bookID string) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.ratingsOf(bookID), nil
}

// UserRepository implements repository.UserRepository in memory.
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[u.ID]
	if !ok {
		return apperrors.NotFound("user", u.ID)
	}
	u.UpdatedAt = time.Now().UTC()
	cur.Name, cur.Bio, cur.Avatar, cur.UpdatedAt = u.Name, u.Bio, u.Avatar, u.UpdatedAt
	r.s.users[u.ID] = cur
	return nil
}

// ReadingListRepository implements repository.ReadingListRepository in memory.
type ReadingListRepository struct{ s *Store }

func (r *ReadingListRepository) Add(_ context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[bookID]; !ok {
		return nil, apperrors.NotFound("book", bookID)
	}
	entries := r.s.readingList[userID]
	if entries == nil {
		entries = make(map[string]time.Time)
		r.s.readingList[userID] = entries
	}
	addedAt, ok := entries[bookID]
	if !ok {
		addedAt = time.Now().UTC()
		entries[bookID] = addedAt
	}
	return &domain.ReadingListEntry{UserID: userID, BookID: bookID, AddedAt: addedAt}, nil
}

func (r *ReadingListRepository) Remove(_ context.Context, userID, bookID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.readingList[userID][bookID]; !ok {
		return apperrors.NotFound("reading list entry", bookID)
	}
	delete(r.s.readingList[userID], bookID)
	return nil
}

func (r *ReadingListRepository) ListBooks(_ context.Context, userID string) ([]domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type entry struct {
		book    domain.Book
		addedAt time.Time
	}
	var entries []entry
	for bookID, addedAt := range r.s.readingList[userID] {
		if b, ok := r.s.books[bookID]; ok {
			entries = append(entries, entry{book: b, addedAt: addedAt})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := b.addedAt.Compare(a.addedAt); c != 0 {
			return c
		}
		return strings.Compare(a.book.ID, b.book.ID)
	})

	books := make([]domain.Book, 0, len(entries))
	for _, e := range entries {
		books = append(books, e.book)
	}
	return books, nil
}

func (r *ReadingListRepository) Exists(_ context.Context, userID, bookID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.readingList[userID][bookID]
	return ok, nil
}

// isbnTaken reports whether another book than exceptID uses isbn. Callers
// hold s.mu.
func (s *Store) isbnTaken(isbn, exceptID string) bool {
	for id, b := range s.books {
		if id != exceptID && b.ISBN == isbn {
			return true
		}
	}
	return false
}

// ratingsOf collects the ratings of bookID. Callers hold s.mu.
func (s *Store) ratingsOf(bookID string) []int {
	ratings := []int{}
	for _, rv := range s.reviews {
		if rv.BookID == bookID {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings
}

// hydrate returns a copy of rv with author and book summaries. Callers hold
// s.mu.
func (s *Store) hydrate(rv domain.Review) domain.Review {
	rv.HelpfulUsers = slices.Clone(rv.HelpfulUsers)
	if u, ok := s.users[rv.UserID]; ok {
		rv.User = &domain.ReviewAuthor{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
	} else {
		rv.User = &domain.ReviewAuthor{ID: rv.UserID}
	}
	if b, ok := s.books[rv.BookID]; ok {
		rv.Book = b.Summary()
	} else {
		rv.Book = &domain.BookSummary{ID: rv.BookID}
	}
	return rv
}

func bookComparator(sort string) func(a, b domain.Book) int {
	return func(a, b domain.Book) int {
		var c int
		switch sort {
		case domain.SortOldest:
			c = a.PublishedDate.Compare(b.PublishedDate)
		case domain.SortRating:
			c = cmpDesc(a.AverageRating, b.AverageRating)
		case domain.SortReviews:
			c = cmpDesc(a.ReviewCount, b.ReviewCount)
		default:
			c = b.PublishedDate.Compare(a.PublishedDate)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}
}

func cmpDesc[T int | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func paginate(books []domain.Book, page, perPage int) []domain.Book {
	start := (page - 1) * perPage
	if start >= len(books) || perPage <= 0 {
		return []domain.Book{}
	}
	end := min(start+perPage, len(books))
	return slices.Clone(books[start:end])
}
