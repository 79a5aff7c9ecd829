package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Opkumar/Book-Review-System/internal/auth"
	"github.com/Opkumar/Book-Review-System/internal/config"
	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/event"
	"github.com/Opkumar/Book-Review-System/internal/service"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

type sampleReview struct {
	rating  int
	title   string
	content string
}

var sampleReaders = []service.RegisterInput{
	{Name: "Ada Lovelace", Email: "ada@bookreview.local"},
	{Name: "Alan Turing", Email: "alan@bookreview.local"},
	{Name: "Grace Hopper", Email: "grace@bookreview.local"},
}

var sampleBooks = []service.CreateBookInput{
	{
		Title:         "Pride and Prejudice",
		Author:        "Jane Austen",
		Description:   "Elizabeth Bennet and Mr. Darcy misjudge each other across the drawing rooms of Regency England.",
		Genre:         "romance",
		PublishedDate: time.Date(1813, 1, 28, 0, 0, 0, 0, time.UTC),
		ISBN:          "9780141439518",
		Publisher:     "Penguin Classics",
		PageCount:     480,
		Featured:      true,
	},
	{
		Title:         "Nineteen Eighty-Four",
		Author:        "George Orwell",
		Description:   "Winston Smith rewrites history for the Party and begins to doubt it.",
		Genre:         "dystopian",
		PublishedDate: time.Date(1949, 6, 8, 0, 0, 0, 0, time.UTC),
		ISBN:          "9780451524935",
		Publisher:     "Signet Classic",
		PageCount:     328,
		Featured:      true,
	},
	{
		Title:         "The Left Hand of Darkness",
		Author:        "Ursula K. Le Guin",
		Description:   "An envoy to the planet Gethen struggles to understand a people without fixed gender.",
		Genre:         "science-fiction",
		PublishedDate: time.Date(1969, 3, 1, 0, 0, 0, 0, time.UTC),
		ISBN:          "9780441478125",
		Publisher:     "Ace Books",
		PageCount:     304,
	},
	{
		Title:         "The Structure of Scientific Revolutions",
		Author:        "Thomas S. Kuhn",
		Description:   "How normal science accumulates anomalies until a paradigm gives way.",
		Genre:         "non-fiction",
		PublishedDate: time.Date(1962, 1, 1, 0, 0, 0, 0, time.UTC),
		ISBN:          "9780226458120",
		Publisher:     "University of Chicago Press",
		PageCount:     264,
	},
}

// sampleReviews holds one review per reader, indexed like sampleBooks and
// sampleReaders.
var sampleReviews = [][]sampleReview{
	{
		{5, "Still sparkling", "The dialogue is as sharp as anything written since."},
		{4, "Witty", "Slow first act, wonderful once Darcy proposes."},
		{5, "A favourite", "I reread it every winter."},
	},
	{
		{5, "Chilling", "Room 101 stayed with me for weeks."},
		{4, "Important", "Heavy going in the middle chapters but worth it."},
		{3, "Bleak", "Brilliant ideas, hard to enjoy."},
	},
	{
		{4, "Quietly radical", "The ice crossing is one of the best journeys in fiction."},
		{5, "Essential", "Le Guin at her best."},
		{4, "Patient and rewarding", "Give it fifty pages."},
	},
	{
		{4, "Changed how I read papers", "Dense, but the idea of paradigms is everywhere now."},
		{3, "Dry", "Important, not much fun."},
		{5, "Classic", "Every engineer should read it."},
	},
}

// Seed bootstraps an administrator account and, when enabled, a sample
// catalog with reviews. Records that already exist are skipped, so the
// command can be run repeatedly.
func Seed(ctx context.Context, cfg *config.Config, seedCfg *config.SeedConfig, logger *slog.Logger) error {
	repos, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	return newSeeder(repos, cfg, logger).run(ctx, seedCfg)
}

type seeder struct {
	users   *service.UserService
	books   *service.BookService
	reviews *service.ReviewService
	logger  *slog.Logger
}

// newSeeder builds the services without cache or Kafka. Reviews still go
// through the aggregator so seeded ratings are consistent.
func newSeeder(repos *repositories, cfg *config.Config, logger *slog.Logger) *seeder {
	producer := event.NewProducer(nil, logger)
	aggregator := service.NewAggregator(repos.ratings, service.NoopBookCache{}, producer, logger)
	return &seeder{
		users: service.NewUserService(repos.users, repos.reviews, repos.readingList,
			auth.NewPasswordHasher(cfg.BcryptCost), auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry), logger),
		books:   service.NewBookService(repos.books, repos.reviews, aggregator, service.NoopBookCache{}, producer, logger),
		reviews: service.NewReviewService(repos.reviews, repos.books, repos.users, aggregator, producer, logger),
		logger:  logger,
	}
}

func (s *seeder) run(ctx context.Context, cfg *config.SeedConfig) error {
	_, err := s.users.RegisterAdmin(ctx, service.RegisterInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	switch {
	case errors.Is(err, apperrors.ErrAlreadyExists):
		s.logger.Info("admin already exists", slog.String("email", cfg.AdminEmail))
	case err != nil:
		return fmt.Errorf("seed admin: %w", err)
	default:
		s.logger.Info("admin created", slog.String("email", cfg.AdminEmail))
	}

	if !cfg.SampleData {
		return nil
	}

	readers := make([]*domain.User, 0, len(sampleReaders))
	for _, in := range sampleReaders {
		in.Password = cfg.ReaderPassword
		u, err := s.reader(ctx, in)
		if err != nil {
			return err
		}
		readers = append(readers, u)
	}

	var createdBooks, createdReviews int
	for i := range sampleBooks {
		book, err := s.books.CreateBook(ctx, &sampleBooks[i])
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.Info("book already exists", slog.String("isbn", sampleBooks[i].ISBN))
			continue
		}
		if err != nil {
			return fmt.Errorf("seed book %q: %w", sampleBooks[i].Title, err)
		}
		createdBooks++

		for j, reader := range readers {
			if reader == nil {
				continue
			}
			r := sampleReviews[i][j]
			_, err := s.reviews.CreateReview(ctx, &service.CreateReviewInput{
				BookID:  book.ID,
				UserID:  reader.ID,
				Rating:  r.rating,
				Title:   r.title,
				Content: r.content,
			})
			if err != nil {
				return fmt.Errorf("seed review of %q: %w", book.Title, err)
			}
			createdReviews++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("books_created", createdBooks),
		slog.Int("reviews_created", createdReviews),
	)
	return nil
}

// reader registers a sample reader, or logs in when the account already
// exists. A reader whose password was changed is skipped and returned as
// nil.
func (s *seeder) reader(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	u, _, err := s.users.Register(ctx, in)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		return nil, fmt.Errorf("seed reader %s: %w", in.Email, err)
	}

	u, _, err = s.users.Login(ctx, service.LoginInput{Email: in.Email, Password: in.Password})
	if err != nil {
		s.logger.Warn("skipping existing reader", slog.String("email", in.Email), slog.String("error", err.Error()))
		return nil, nil
	}
	return u, nil
}
