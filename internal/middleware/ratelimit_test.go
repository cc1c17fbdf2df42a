package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestLimiter(now *time.Time) *rateLimiter {
	return &rateLimiter{
		qps:           rate.Limit(1),
		burst:         2,
		entries:       make(map[string]*limiterEntry),
		sweepInterval: 10 * time.Second,
		now: func() time.Time {
			return *now
		},
	}
}

func runLimiter(l *rateLimiter, path string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", path, nil)
	l.handle(c)
	return c
}

func TestRateLimiterHandle_BurstThenBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := newTestLimiter(&now)

	require.False(t, runLimiter(limiter, "/api/v1/sessions/ask").IsAborted())
	require.False(t, runLimiter(limiter, "/api/v1/sessions/ask").IsAborted())
	require.True(t, runLimiter(limiter, "/api/v1/sessions/ask").IsAborted())

	// another route has its own bucket
	require.False(t, runLimiter(limiter, "/api/v1/sessions/message").IsAborted())

	now = now.Add(time.Second)
	require.False(t, runLimiter(limiter, "/api/v1/sessions/ask").IsAborted())
}

func TestRateLimiterHandle_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := newTestLimiter(&now)
	limiter.qps = 0
	for i := 0; i < 10; i++ {
		require.False(t, runLimiter(limiter, "/api/v1/sessions").IsAborted())
	}
	require.Empty(t, limiter.entries)
}

func TestRateLimiterCleanupExpiredLocked_RemovesIdleEntries(t *testing.T) {
	base := time.Now()
	limiter := newTestLimiter(&base)
	limiter.entries["expired"] = &limiterEntry{limiter: rate.NewLimiter(1, 1), lastSeen: base.Add(-20 * time.Minute)}
	limiter.entries["active"] = &limiterEntry{limiter: rate.NewLimiter(1, 1), lastSeen: base.Add(-2 * time.Second)}

	limiter.mu.Lock()
	limiter.cleanupExpiredLocked(base)
	limiter.mu.Unlock()

	require.NotContains(t, limiter.entries, "expired")
	require.Contains(t, limiter.entries, "active")
	require.False(t, limiter.lastSweep.IsZero())
}
