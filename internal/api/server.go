package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/auth"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/metrics"
	"github.com/clinic-assessment-server/internal/middleware"
	"github.com/clinic-assessment-server/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Dependencies are the collaborators the HTTP server routes requests to.
// Metrics may be nil.
type Dependencies struct {
	Config  *domain.Config
	Service *service.AssessmentService
	Auth    *auth.Authenticator
	Store   domain.AssessmentStore
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg     *domain.Config
	service *service.AssessmentService
	auth    *auth.Authenticator
	store   domain.AssessmentStore
	metrics *metrics.Metrics
	limiter *middleware.IPRateLimiter
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(deps Dependencies) *Server {
	cfg := deps.Config

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	// The login limiter and audit log key on ClientIP, so forwarded headers
	// only count when they come from a configured proxy.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		deps.Logger.WithError(err).Warn("Invalid trusted proxies; forwarded headers will be ignored")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	router.Use(middleware.AuditLogger())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	s := &Server{
		cfg:     cfg,
		service: deps.Service,
		auth:    deps.Auth,
		store:   deps.Store,
		metrics: deps.Metrics,
		limiter: middleware.NewIPRateLimiter(cfg.Admin.LoginRateLimit, cfg.Admin.LoginBurst),
		logger:  deps.Logger,
		router:  router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go s.limiter.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", s.metrics.Handler())
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/catalog", s.handleCatalog)
		v1.POST("/assessments", s.handleSubmit)
		v1.POST("/assessments/:id/agreement", s.handleAgreement)

		v1.POST("/admin/login", middleware.RateLimit(s.limiter), s.handleLogin)
		v1.POST("/admin/logout", s.handleLogout)
	}

	admin := v1.Group("/admin", middleware.RequireAdmin(s.auth, s.logger))
	{
		admin.GET("/assessments", s.handleList)
		admin.GET("/assessments/:id", s.handleGet)
		admin.GET("/stats", s.handleStats)
		admin.GET("/export.csv", s.handleExport)
	}
}
