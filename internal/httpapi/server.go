// Package httpapi exposes the daemon's HTTP surface: account
// endpoints, the chat flow, preview, status, download, and reset.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/auth"
	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/orchestrator"
	"github.com/siteforgelabs/siteforged/internal/telemetry"
)

// Server hosts the HTTP API.
type Server struct {
	cfg      *config.Config
	echo     *echo.Echo
	auth     *auth.Service
	orch     *orchestrator.Orchestrator
	metrics  *telemetry.Metrics
	logger   *logging.Logger
	limiters *chatLimiters
}

// NewServer wires routes and middleware. metrics may be nil.
func NewServer(cfg *config.Config, authSvc *auth.Service, orch *orchestrator.Orchestrator, metrics *telemetry.Metrics, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:      cfg,
		echo:     e,
		auth:     authSvc,
		orch:     orch,
		metrics:  metrics,
		logger:   logger.Named("http"),
		limiters: newChatLimiters(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	e.Use(s.requestLogger)
	if metrics != nil {
		e.Use(s.observeRequests)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/api/health", s.handleHealth)
	if s.metrics != nil && s.cfg.Telemetry.MetricsEnabled {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	s.echo.POST("/api/auth/register", s.handleRegister)
	s.echo.POST("/api/auth/login", s.handleLogin)
	s.echo.POST("/api/auth/validate-password", s.handleValidatePassword)

	authed := s.echo.Group("/api", s.requireToken)
	authed.POST("/chat", s.handleChat, s.rateLimitChat)
	authed.GET("/preview", s.handlePreview)
	authed.GET("/status", s.handleStatus)
	authed.GET("/download", s.handleDownload)
	authed.POST("/reset", s.handleReset)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	errCh := make(chan error, 1)

	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	s.logger.Info(ctx, "http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		s.logger.Info(ctx, "http server stopped")
		return nil
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// requestContext threads the request id into the request context so
// log lines carry it.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), reqID)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Info(c.Request().Context(), "request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}

func (s *Server) observeRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		s.metrics.RequestDuration.
			WithLabelValues(c.Request().Method, c.Path(), fmt.Sprintf("%d", status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Service: s.cfg.Telemetry.ServiceName,
	})
}
