package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
)

// ReadingListService manages the books a user saved for later.
type ReadingListService struct {
	lists  repository.ReadingListRepository
	books  repository.BookRepository
	logger *slog.Logger
}

// NewReadingListService creates a new reading list service.
func NewReadingListService(lists repository.ReadingListRepository, books repository.BookRepository, logger *slog.Logger) *ReadingListService {
	return &ReadingListService{lists: lists, books: books, logger: logger}
}

// List returns the user's saved books, most recently added first.
func (s *ReadingListService) List(ctx context.Context, userID string) ([]domain.Book, error) {
	books, err := s.lists.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading list: %w", err)
	}
	return books, nil
}

// Add saves a book to the user's list. Saving a book twice is a no-op and
// returns the original entry.
func (s *ReadingListService) Add(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	entry, err := s.lists.Add(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("add to reading list: %w", err)
	}
	s.logger.InfoContext(ctx, "book added to reading list",
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
	)
	return entry, nil
}

// Remove deletes a book from the user's list.
func (s *ReadingListService) Remove(ctx context.Context, userID, bookID string) error {
	if err := s.lists.Remove(ctx, userID, bookID); err != nil {
		return fmt.Errorf("remove from reading list: %w", err)
	}
	s.logger.InfoContext(ctx, "book removed from reading list",
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
	)
	return nil
}

// Contains reports whether the book is in the user's list.
func (s *ReadingListService) Contains(ctx context.Context, userID, bookID string) (bool, error) {
	ok, err := s.lists.Exists(ctx, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("check reading list: %w", err)
	}
	return ok, nil
}
