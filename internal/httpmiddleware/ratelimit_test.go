package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucket(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 2, func() time.Time { return now })

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("a"), "half a minute refills one token")
	assert.False(t, l.allow("a"))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(1, 1, func() time.Time { return now })

	r := gin.New()
	r.Use(SecurityHeaders())
	r.POST("/login", l.GinMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestDisabledLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(0, 0, nil)
	r := gin.New()
	r.GET("/", l.GinMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
