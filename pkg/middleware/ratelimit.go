package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
	"github.com/Opkumar/Book-Review-System/pkg/httputil"
)

const defaultVisitorTTL = 3 * time.Minute

var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "http_rate_limited_requests_total",
	Help: "Requests rejected with 429 by the per-client rate limiter",
})

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// RPS is the sustained request rate allowed per client IP. Zero or less
	// disables the limiter.
	RPS float64
	// Burst is the bucket size. Values below 1 are raised to 1.
	Burst int
	// IdleTTL evicts clients that have not been seen for this long.
	IdleTTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one limiter per client. Idle visitors are swept on the
// request path at most once per ttl, so no background goroutine outlives the
// router.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorStore(cfg RateLimitConfig) *visitorStore {
	return &visitorStore{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(cfg.RPS),
		burst:     cfg.Burst,
		ttl:       cfg.IdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// allow takes one token from the bucket of key.
func (s *visitorStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit returns middleware that enforces a token bucket per client IP
// and answers 429 RATE_LIMITED once it is empty. Routes sharing one returned
// middleware share the buckets.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultVisitorTTL
	}
	store := newVisitorStore(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !store.allow(ip) {
				rateLimitedTotal.Inc()
				logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteError(w, r, apperrors.RateLimited(), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first valid address in X-Forwarded-For, then
// X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
				return addr.Unmap().String()
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap().String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
