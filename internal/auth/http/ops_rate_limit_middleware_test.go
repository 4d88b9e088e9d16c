package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newOpsRouter(t *testing.T, rps float64, burst int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	router.Use(OpsRateLimitMiddleware(ctx, rps, burst, slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.GET("/session-stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func opsRequest(router *gin.Engine, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/session-stats", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestOpsRateLimitMiddleware_BurstThenThrottle(t *testing.T) {
	router := newOpsRouter(t, 1.0, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, opsRequest(router, "", "").Code, "request %d", i+1)
	}

	w := opsRequest(router, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestOpsRateLimitMiddleware_IndependentLimitsPerIP(t *testing.T) {
	router := newOpsRouter(t, 1.0, 1)

	assert.Equal(t, http.StatusOK, opsRequest(router, "192.168.1.100:12345", "").Code)
	// Same IP on another port shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, opsRequest(router, "192.168.1.100:12346", "").Code)
	assert.Equal(t, http.StatusOK, opsRequest(router, "192.168.1.101:12345", "").Code)
}

func TestOpsRateLimitMiddleware_HandlesXForwardedFor(t *testing.T) {
	router := newOpsRouter(t, 1.0, 1)

	assert.Equal(t, http.StatusOK, opsRequest(router, "", "203.0.113.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, opsRequest(router, "", "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, opsRequest(router, "", "203.0.113.2").Code)
}

func TestOpsRateLimitMiddleware_RespectsConfiguredLimits(t *testing.T) {
	tests := []struct {
		name              string
		rps               float64
		burst             int
		requestsToSend    int
		expectedSuccesses int
	}{
		{name: "conservative", rps: 2.0, burst: 5, requestsToSend: 10, expectedSuccesses: 5},
		{name: "default", rps: 2.0, burst: 10, requestsToSend: 15, expectedSuccesses: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newOpsRouter(t, tt.rps, tt.burst)

			successes := 0
			for i := 0; i < tt.requestsToSend; i++ {
				if opsRequest(router, "192.168.1.50:12345", "").Code == http.StatusOK {
					successes++
				}
			}
			assert.Equal(t, tt.expectedSuccesses, successes)
		})
	}
}

func TestOpsLimiterStore_RemoveIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &opsLimiterStore{rps: 10, burst: 20, nowFn: func() time.Time { return now }}

	store.getLimiter("192.168.1.100")
	now = now.Add(2 * time.Hour)
	store.getLimiter("192.168.1.101")

	removed := store.removeIdle(now.Add(-opsLimiterIdleTTL))
	assert.Equal(t, 1, removed)

	_, ok := store.limiters.Load("192.168.1.100")
	assert.False(t, ok)
	_, ok = store.limiters.Load("192.168.1.101")
	assert.True(t, ok)
}
