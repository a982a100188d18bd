package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// fakeRateLimitStore counts all requests in one bucket so the test
// cannot flake across a wall-clock minute boundary.
type fakeRateLimitStore struct {
	count   int64
	ttl     time.Duration
	incrErr error
}

func (f *fakeRateLimitStore) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.count++
	return f.count, nil
}

func (f *fakeRateLimitStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *fakeRateLimitStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return f.ttl, nil
}

func rateLimitTestRouter(store RateLimitStore, rpm int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	r := gin.New()
	r.Use(NewRateLimitMiddleware(store, rpm, log).Limit())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}

func TestRateLimitMiddleware_UnderLimit(t *testing.T) {
	r := rateLimitTestRouter(&fakeRateLimitStore{ttl: time.Minute}, 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_OverLimit(t *testing.T) {
	store := &fakeRateLimitStore{ttl: 42 * time.Second}
	r := rateLimitTestRouter(store, 2)

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	}

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	// Retry-After reflects the remaining window lifetime, not a fixed 60
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	store := &fakeRateLimitStore{incrErr: errors.New("connection refused")}
	r := rateLimitTestRouter(store, 1)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_DisabledWithoutStore(t *testing.T) {
	r := rateLimitTestRouter(nil, 1)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
