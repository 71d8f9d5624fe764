package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/auth"
	"github.com/clinic-assessment-server/internal/domain"
)

// AdminCookie is the name of the admin session cookie.
const AdminCookie = "admin_token"

// RequireAdmin rejects requests without a valid admin session cookie.
func RequireAdmin(a *auth.Authenticator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AdminCookie)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "Authentication required", "")
			return
		}
		if _, err := a.Verify(token); err != nil {
			logger.WithFields(logrus.Fields{
				"correlation_id": c.GetString(CorrelationIDKey),
				"client_ip":      c.ClientIP(),
				"error":          err,
			}).Warn("Rejected admin session")
			AbortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "Authentication required", "")
			return
		}
		c.Next()
	}
}
