package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robalyx/imagegate/internal/rest/middleware/ip"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/robalyx/imagegate/pkg/utils"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	errBlocked    = "temporarily blocked for repeated rate limit violations"
	errRateLimit  = "rate limit exceeded"
	headerRetryAt = "Retry-After"
)

type limiterState struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	strikes      int       // Number of times client has violated rate limit
	blockedUntil time.Time // Time until client is blocked for repeated violations
}

// Middleware implements per-IP rate limiting for API requests.
type Middleware struct {
	limiters *utils.TTLMap[string, *limiterState]
	config   *config.RateLimit
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new rate limiting middleware.
func New(cfg *config.RateLimit, logger *zap.Logger) *Middleware {
	// Use the longer of block duration or burst window * 2 for TTL
	ttl := time.Second * time.Duration(max(cfg.BurstSize, 1)*2)
	if blockTTL := time.Second * time.Duration(cfg.BlockDuration*2); blockTTL > ttl {
		ttl = blockTTL
	}

	return &Middleware{
		limiters: utils.NewTTLMap[string, *limiterState](ttl),
		config:   cfg,
		logger:   logger.Named("ratelimit"),
		now:      time.Now,
	}
}

// Close stops the limiter cleanup loop.
func (m *Middleware) Close() {
	m.limiters.Close()
}

// AsRESTMiddleware returns a bunrouter middleware handler for rate limiting.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := ip.FromContext(req.Context())
		if allowed, retryAfter, msg := m.checkRateLimit(clientIP); !allowed {
			if retryAfter > 0 {
				w.Header().Set(headerRetryAt, fmt.Sprintf("%.0f", retryAfter.Seconds()))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			return bunrouter.JSON(w, map[string]string{"error": msg, "code": "rate_limited"})
		}
		return next(w, req)
	}
}

// getLimiter returns the limiter state for the specified IP.
func (m *Middleware) getLimiter(clientIP string) *limiterState {
	return m.limiters.GetOrSet(clientIP, func() *limiterState {
		return &limiterState{
			limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize),
		}
	})
}

// checkRateLimit reports whether the request may proceed, how long the
// client should wait otherwise, and the rejection message.
func (m *Middleware) checkRateLimit(clientIP string) (bool, time.Duration, string) {
	state := m.getLimiter(clientIP)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()

	// Check if client is blocked
	if !state.blockedUntil.IsZero() && now.Before(state.blockedUntil) {
		retryAfter := state.blockedUntil.Sub(now).Round(time.Second)
		m.logger.Debug("Client is temporarily blocked",
			zap.String("ip", clientIP),
			zap.Duration("retry_after", retryAfter))
		return false, retryAfter, errBlocked
	}

	reservation := state.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return m.strike(state, clientIP, 0)
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return m.strike(state, clientIP, delay)
	}

	state.strikes = 0
	return true, 0, ""
}

// strike records a violation and blocks the client once the strike limit is reached.
func (m *Middleware) strike(state *limiterState, clientIP string, delay time.Duration) (bool, time.Duration, string) {
	state.strikes++

	if m.config.MaxStrikes > 0 && state.strikes >= m.config.MaxStrikes {
		blockDuration := time.Duration(m.config.BlockDuration) * time.Second
		state.blockedUntil = m.now().Add(blockDuration)
		state.strikes = 0

		m.logger.Debug("Client exceeded strike limit and is now blocked",
			zap.String("ip", clientIP),
			zap.Int("strikes", m.config.MaxStrikes),
			zap.Duration("block_duration", blockDuration))
		return false, blockDuration, errBlocked
	}

	m.logger.Debug("Rate limit exceeded",
		zap.String("ip", clientIP),
		zap.Duration("delay", delay),
		zap.Int("strikes", state.strikes))
	return false, delay, errRateLimit
}
