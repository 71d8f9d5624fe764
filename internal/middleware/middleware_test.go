package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-assessment-server/internal/auth"
	"github.com/clinic-assessment-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := do(newRouter(SecurityHeaders()), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS only in release mode")
}

func TestCorrelationID(t *testing.T) {
	r := newRouter(CorrelationID())

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get("X-Correlation-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-ID"))
}

func TestCorrelationID_RejectsUnsafeHeader(t *testing.T) {
	r := newRouter(CorrelationID())

	for _, header := range []string{
		`x","status":200,"forged":"1`,
		"abc\r\n{\"forged\":true}",
		strings.Repeat("a", maxCorrelationIDLen+1),
		"naïve-id",
	} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", header)
		w := do(r, req)

		got := w.Header().Get("X-Correlation-ID")
		assert.NotEqual(t, header, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, "header %q should be replaced by a uuid", header)
	}
}

func TestAuditLogger_WritesOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Simulates a value that bypassed CorrelationID.
		c.Set(CorrelationIDKey, "id\"\n{\"forged\":true}")
		c.Next()
	})
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{Formatter: auditLine, Output: &buf}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping?name=Kim", nil)
	req.Header.Set("User-Agent", "agent\"with quotes")
	do(r, req)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "id\"\n{\"forged\":true}", entry["correlation_id"])
	assert.Equal(t, "/ping", entry["path"])
	assert.Equal(t, "agent\"with quotes", entry["user_agent"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.NotContains(t, entry, "forged")
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"https://clinic.example"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://clinic.example")
	w := do(r, req)
	assert.Equal(t, "https://clinic.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = do(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID(), RequestTimeout(20*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "Request timeout")

	w = do(r, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(60, 2)
	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills per second at 60/min")

	now = now.Add(visitorExpiry + time.Second)
	assert.Equal(t, 2, l.Sweep())
}

func TestIPRateLimiter_Run(t *testing.T) {
	l := NewIPRateLimiter(5, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRateLimit(t *testing.T) {
	r := newRouter(CorrelationID(), RateLimit(NewIPRateLimiter(1, 1)))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeRateLimit)
}

func TestRequireAdmin(t *testing.T) {
	a, err := auth.New(domain.AdminConfig{Password: "secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := newRouter(CorrelationID(), RequireAdmin(a, logger))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeAuthentication)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: "not-a-token"})
	w = do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := a.IssueToken()
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: token})
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
