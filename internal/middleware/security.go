package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinic-assessment-server/internal/domain"
)

// CorrelationIDKey is the gin context key holding the request correlation id.
const CorrelationIDKey = "correlation_id"

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		c.Header("X-XSS-Protection", "1; mode=block")

		// Enforce HTTPS (only in production)
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		// The API only serves JSON and CSV
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Patient data must not leak through referrers or shared caches
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")

		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// maxCorrelationIDLen bounds client-supplied correlation ids.
const maxCorrelationIDLen = 64

// CorrelationID adds a unique correlation ID to each request for audit trails.
// A client-supplied X-Correlation-ID is kept only when it is a short token;
// anything else is replaced with a fresh UUID.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if !validCorrelationID(correlationID) {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		c.Next()
	}
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

// CORS allows the configured browser origins to call the API with
// credentials. Other origins get no CORS headers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originSet[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestTimeout bounds the request context so that store and cache calls
// give up once timeout has elapsed.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			AbortWithError(c, http.StatusGatewayTimeout, domain.ErrCodeInternalServer, "Request timeout", "")
		}
	}
}

// auditEntry is one access log line.
type auditEntry struct {
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	Latency       string `json:"latency"`
	ClientIP      string `json:"client_ip"`
	UserAgent     string `json:"user_agent"`
	ResponseSize  int    `json:"response_size"`
}

// AuditLogger logs one JSON line per request. Query strings are left out
// because they may carry patient names.
func AuditLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(auditLine)
}

func auditLine(param gin.LogFormatterParams) string {
	correlationID, _ := param.Keys[CorrelationIDKey].(string)
	entry := auditEntry{
		Timestamp:     param.TimeStamp.Format(time.RFC3339),
		CorrelationID: correlationID,
		Method:        param.Method,
		Path:          param.Request.URL.Path,
		Status:        param.StatusCode,
		Latency:       param.Latency.String(),
		ClientIP:      param.ClientIP,
		UserAgent:     param.Request.UserAgent(),
		ResponseSize:  param.BodySize,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("{\"error\":%q}\n", err.Error())
	}
	return string(line) + "\n"
}

// AbortWithError stops the chain and writes an APIError body.
func AbortWithError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(CorrelationIDKey)))
}
