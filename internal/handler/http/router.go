package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/service"
	"github.com/Opkumar/Book-Review-System/pkg/health"
	"github.com/Opkumar/Book-Review-System/pkg/middleware"
)

// Services groups the business services behind the API.
type Services struct {
	Books       *service.BookService
	Reviews     *service.ReviewService
	ReadingList *service.ReadingListService
	Users       *service.UserService
}

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for clients in these networks. Empty
	// disables it.
	PprofCIDRs []string
	// RateLimit throttles login, registration and review writes per client.
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all book review routes registered.
func NewRouter(
	svcs Services,
	validateToken middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health, metrics and profiling endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	requireAuth := middleware.Auth(validateToken)
	requireAdmin := middleware.RequireRole(domain.RoleAdmin)
	limitWrites := middleware.RateLimit(cfg.RateLimit, logger)

	bookHandler := NewBookHandler(svcs.Books, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	listHandler := NewReadingListHandler(svcs.ReadingList, logger)
	userHandler := NewUserHandler(svcs.Users, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Get("/featured", bookHandler.FeaturedBooks)
			r.Get("/{id}", bookHandler.GetBook)
			r.Get("/{id}/rating-summary", bookHandler.RatingSummary)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", bookHandler.CreateBook)
				r.Put("/{id}", bookHandler.UpdateBook)
				r.Delete("/{id}", bookHandler.DeleteBook)
				r.Post("/{id}/recompute", bookHandler.RecomputeRating)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewHandler.ListReviews)

			r.Group(func(r chi.Router) {
				r.Use(limitWrites, requireAuth)
				r.Post("/", reviewHandler.CreateReview)
				r.Put("/{id}", reviewHandler.UpdateReview)
				r.Delete("/{id}", reviewHandler.DeleteReview)
				r.Put("/{id}/helpful", reviewHandler.MarkHelpful)
			})
		})

		r.Route("/reading-list", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", listHandler.List)
			r.Get("/{bookId}", listHandler.Status)
			r.Post("/{bookId}", listHandler.Add)
			r.Delete("/{bookId}", listHandler.Remove)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(limitWrites).Post("/", userHandler.Register)
			r.Get("/{id}", userHandler.GetProfile)
			r.With(requireAuth).Put("/{id}", userHandler.UpdateProfile)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(limitWrites).Post("/", userHandler.Login)
			r.With(requireAuth).Get("/", userHandler.Me)
		})
	})

	return r
}
