package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	r := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, r.Allow("a"))
	}
	assert.False(t, r.Allow("a"), "fourth request in the window is refused")
	assert.True(t, r.Allow("b"), "keys are limited independently")
}

func TestRateLimiter_WindowResets(t *testing.T) {
	r := NewRateLimiter(1, 20*time.Millisecond)

	assert.True(t, r.Allow("a"))
	assert.False(t, r.Allow("a"))
	time.Sleep(25 * time.Millisecond)
	assert.True(t, r.Allow("a"), "a fresh window admits the key again")
}

func TestRateLimit_KeysAuthenticatedRequestsByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, time.Minute)

	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		c.Set("user_id", uint(7))
	}, RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
	// the same user is throttled even from another address
	assert.True(t, limiter.Allow("203.0.113.9"), "other keys unaffected")
}
