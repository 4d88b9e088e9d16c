package http

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/auth/http/dto"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
	"github.com/scrilab/artale-auth/internal/httputil"
	"github.com/scrilab/artale-auth/internal/ratelimit"
)

// Guard decides whether a client IP may proceed under a policy. *ratelimit.IPGuard satisfies it.
type Guard interface {
	Allow(ctx context.Context, policy ratelimit.Policy, clientIP string) ratelimit.Decision
}

// AdminKeyVerifier checks a presented admin key against the configured hash.
type AdminKeyVerifier interface {
	VerifyKey(plainKey, hashedKey string) bool
}

// GuardMiddleware admits a request only when the IP guard allows it under policy.
//
// Denials answer 429 with RATE_LIMITED or IP_BLOCKED, or 503 SERVICE_UNAVAILABLE
// while the memory guard sheds load. Every denial carries Retry-After.
func GuardMiddleware(guard Guard, policy ratelimit.Policy, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		decision := guard.Allow(c.Request.Context(), policy, clientIP)
		if decision.Allowed {
			c.Next()
			return
		}

		var code authDomain.Code
		switch decision.Reason {
		case ratelimit.ReasonBlocked:
			code = authDomain.CodeIPBlocked
		case ratelimit.ReasonMemoryPressure:
			code = authDomain.CodeServiceUnavailable
		default:
			code = authDomain.CodeRateLimited
		}

		logger.Warn("request denied by ip guard",
			slog.String("policy", policy.Name),
			slog.String("client_ip", clientIP),
			slog.String("reason", string(decision.Reason)),
			slog.Duration("retry_after", decision.RetryAfter),
		)

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		c.AbortWithStatusJSON(StatusFor(code), dto.AuthResponse{
			Success: false,
			Message: MessageFor(code),
			Code:    string(code),
		})
	}
}

// retryAfterSeconds rounds up so a client never retries before the block ends.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}

// AdminAuthMiddleware requires "Authorization: Bearer <admin key>" matching the
// configured Argon2id hash. An empty hash disables the admin API entirely.
func AdminAuthMiddleware(verifier AdminKeyVerifier, adminKeyHash string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			logger.Debug("admin api disabled: no admin key hash configured")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("admin authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainKey := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if plainKey == "" || !verifier.VerifyKey(plainKey, adminKeyHash) {
			logger.Warn("admin authentication failed", slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
