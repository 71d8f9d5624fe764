package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/middleware"
	"github.com/clinic-assessment-server/internal/scoring"
	"github.com/clinic-assessment-server/internal/service"
)

const healthTimeout = 2 * time.Second

type catalogResponse struct {
	Sections   []scoring.Section     `json:"sections"`
	Categories []scoring.Category    `json:"categories"`
	Tiers      []scoring.Tier        `json:"tiers"`
	MaxScore   map[domain.Gender]int `json:"maxScore"`
}

type submitResponse struct {
	Result *domain.AssessmentResult `json:"result"`
	Report scoring.Tier             `json:"report"`
}

type agreementRequest struct {
	Agreed *bool `json:"agreed" binding:"required"`
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

type listResponse struct {
	Results []*domain.AssessmentResult `json:"results"`
	Count   int                        `json:"count"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.cfg.MCP.ServerVersion,
	})
}

// handleCatalog returns the questionnaire. With ?gender= only the categories
// shown to that gender are returned.
func (s *Server) handleCatalog(c *gin.Context) {
	engine := s.service.Engine()
	catalog := engine.Catalog()

	resp := catalogResponse{
		Sections: catalog.Sections(),
		Tiers:    catalog.Tiers(),
		MaxScore: make(map[domain.Gender]int, 2),
	}

	genders := []domain.Gender{domain.GenderMale, domain.GenderFemale}
	if raw := c.Query("gender"); raw != "" {
		g, err := domain.ParseGender(raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		genders = []domain.Gender{g}
		resp.Categories = catalog.CategoriesFor(g)
	} else {
		resp.Categories = catalog.Categories()
	}
	for _, g := range genders {
		maxScore, err := engine.MaxPossibleScore(g)
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp.MaxScore[g] = maxScore
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := s.service.Submit(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submitResponse{
		Result: result,
		Report: s.service.Report(result),
	})
}

func (s *Server) handleAgreement(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var req agreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err.Error())
		return
	}

	if err := s.service.SetAgreement(c.Request.Context(), id, *req.Agreed); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", "password is required")
		return
	}

	if !s.auth.CheckPassword(req.Password) {
		s.metrics.ObserveLoginFailure()
		s.logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
			"client_ip":      c.ClientIP(),
		}).Warn("Admin login failed")
		middleware.AbortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "Incorrect password", "")
		return
	}

	token, _, err := s.auth.IssueToken()
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.setAdminCookie(c, token, int(s.auth.TTL().Seconds()))
	s.logger.WithField("client_ip", c.ClientIP()).Info("Admin logged in")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.setAdminCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) setAdminCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AdminCookie, value, maxAge, "/", "", s.cfg.Admin.CookieSecure, true)
}

func (s *Server) handleList(c *gin.Context) {
	results, err := s.service.List(c.Request.Context(), listQuery(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if results == nil {
		results = []*domain.AssessmentResult{}
	}
	c.JSON(http.StatusOK, listResponse{Results: results, Count: len(results)})
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	result, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse{Result: result, Report: s.service.Report(result)})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context(), time.Now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleExport(c *gin.Context) {
	q := listQuery(c)

	var buf bytes.Buffer
	n, err := s.service.ExportCSV(c.Request.Context(), &buf, q)
	if err != nil {
		s.writeError(c, err)
		return
	}

	name := "assessments-all.csv"
	if q.Date != "" {
		name = "assessments-" + q.Date + ".csv"
	}
	s.logger.WithFields(logrus.Fields{
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"rows":           n,
	}).Info("Assessments exported")

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func listQuery(c *gin.Context) service.ListQuery {
	return service.ListQuery{
		Date:   c.Query("date"),
		Search: c.Query("search"),
	}
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(c, "Invalid assessment id", c.Param("id"))
		return 0, false
	}
	return id, true
}
