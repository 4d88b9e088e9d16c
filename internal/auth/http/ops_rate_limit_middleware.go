package http

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/auth/http/dto"
	"github.com/scrilab/artale-auth/internal/ratelimit"
)

const (
	opsLimiterCleanupInterval = 5 * time.Minute
	opsLimiterIdleTTL         = time.Hour
)

// opsLimiterStore holds one token bucket per client IP.
type opsLimiterStore struct {
	limiters sync.Map // normalized IP -> *opsLimiterEntry
	rps      float64
	burst    int
	nowFn    func() time.Time
}

type opsLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// OpsRateLimitMiddleware throttles the operational endpoints per client IP with a
// token bucket. It is a cheap first line in front of the sliding-window guard.
// Idle buckets are dropped until ctx is done.
func OpsRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &opsLimiterStore{
		rps:   rps,
		burst: burst,
		nowFn: time.Now,
	}

	go store.cleanupLoop(ctx, opsLimiterCleanupInterval)

	return store.handler(logger)
}

func (s *opsLimiterStore) handler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := ratelimit.NormalizeIP(c.ClientIP())

		limiter := s.getLimiter(clientIP)
		if limiter.Allow() {
			c.Next()
			return
		}

		reservation := limiter.Reserve()
		retryAfter := retryAfterSeconds(reservation.Delay())
		reservation.Cancel()

		logger.Debug("ops rate limit exceeded",
			slog.String("client_ip", clientIP),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(StatusFor(authDomain.CodeRateLimited), dto.AuthResponse{
			Success: false,
			Message: MessageFor(authDomain.CodeRateLimited),
			Code:    string(authDomain.CodeRateLimited),
		})
	}
}

func (s *opsLimiterStore) getLimiter(ip string) *rate.Limiter {
	now := s.nowFn()
	if val, ok := s.limiters.Load(ip); ok {
		entry := val.(*opsLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &opsLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	}
	actual, _ := s.limiters.LoadOrStore(ip, entry)
	return actual.(*opsLimiterEntry).limiter
}

// removeIdle drops buckets not used since before threshold and returns how many.
func (s *opsLimiterStore) removeIdle(threshold time.Time) int {
	removed := 0
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*opsLimiterEntry)
		entry.mu.Lock()
		idle := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if idle {
			s.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (s *opsLimiterStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeIdle(s.nowFn().Add(-opsLimiterIdleTTL))
		}
	}
}
