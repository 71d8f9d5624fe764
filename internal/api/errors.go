package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/middleware"
)

// writeError maps err to a status code and an APIError body.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeValidation, verr.Message, verr.Field)
	case errors.Is(err, domain.ErrInvalidGender):
		middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid gender", err.Error())
	case errors.Is(err, domain.ErrGenderMismatch):
		middleware.AbortWithError(c, http.StatusUnprocessableEntity, domain.ErrCodeScoring, "Selection does not match gender", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Assessment not found", "")
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.AbortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "Authentication required", "")
	case errors.Is(err, context.DeadlineExceeded):
		middleware.AbortWithError(c, http.StatusGatewayTimeout, domain.ErrCodeInternalServer, "Request timeout", "")
	default:
		s.logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
			"path":           c.FullPath(),
			"error":          err,
		}).Error("Request failed")
		middleware.AbortWithError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "Internal server error", "")
	}
}

func (s *Server) badRequest(c *gin.Context, message, details string) {
	middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, message, details)
}
