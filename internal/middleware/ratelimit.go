package middleware

import (
	"net/http"
	"strings"

	"github.com/radiusdt/vector-bandit/internal/config"
	"github.com/radiusdt/vector-bandit/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware implements token bucket rate limiting. Draw and
// count endpoints share the high-throughput limiter; management
// endpoints get the stricter one.
type RateLimitMiddleware struct {
	cfg         config.RateLimitConfig
	logger      *zap.Logger
	metrics     *metrics.Metrics
	drawLimiter *rate.Limiter
	mgmtLimiter *rate.Limiter
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:         cfg,
		logger:      logger,
		drawLimiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		mgmtLimiter: rate.NewLimiter(rate.Limit(cfg.MgmtRPS), cfg.MgmtBurst),
	}
}

// SetMetrics attaches metrics after construction.
func (rl *RateLimitMiddleware) SetMetrics(m *metrics.Metrics) {
	rl.metrics = m
}

// Handler wraps an http.Handler with rate limiting.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		var limiter *rate.Limiter
		if rl.isDrawEndpoint(r.URL.Path) {
			limiter = rl.drawLimiter
		} else {
			limiter = rl.mgmtLimiter
		}

		if !limiter.Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(r.URL.Path)
			}
			rl.tooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) isDrawEndpoint(path string) bool {
	return strings.HasPrefix(path, "/pull_levers") || strings.HasPrefix(path, "/count")
}

func (rl *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"rate limit exceeded"}`))
}
