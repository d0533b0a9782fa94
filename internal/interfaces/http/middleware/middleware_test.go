package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doGet(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	r := newTestEngine(RequestID())

	w := doGet(r, "/ping", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = doGet(r, "/ping", map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logging.NewNopLogger()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := doGet(r, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_001")
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	r := newTestEngine(CORS(DefaultCORSConfig([]string{"https://app.example.com"})))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_PreflightForbiddenOrigin(t *testing.T) {
	r := newTestEngine(CORS(DefaultCORSConfig([]string{"https://app.example.com"})))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SimpleRequestWithoutOriginPassesThrough(t *testing.T) {
	r := newTestEngine(CORS(DefaultCORSConfig([]string{"https://app.example.com"})))

	w := doGet(r, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	l := NewTokenBucketLimiter(100, 2, 0)
	defer l.Close()

	ok, _ := l.Allow("client")
	require.True(t, ok)
	ok, remaining := l.Allow("client")
	require.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _ = l.Allow("client")
	assert.False(t, ok)

	// At 100 tokens/s a short wait restores capacity.
	time.Sleep(30 * time.Millisecond)
	ok, _ = l.Allow("client")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Close()

	ok, _ := l.Allow("a")
	require.True(t, ok)
	ok, _ = l.Allow("a")
	require.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
}

func TestRateLimit_Returns429WhenExhausted(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Close()
	r := newTestEngine(RateLimit(l, RateLimitConfig{SkipPaths: []string{"/healthz"}}))

	w := doGet(r, "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doGet(r, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_005")

	// Skip paths stay reachable under pressure.
	w = doGet(r, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogging_DoesNotInterfereWithResponses(t *testing.T) {
	r := newTestEngine(Logging(logging.NewNopLogger(), nil, DefaultLoggingConfig()))

	w := doGet(r, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
