package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/auth"
	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/orchestrator"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	APIKey    string `json:"api_key"`
}

type registerResponse struct {
	Username        string `json:"username"`
	UsingDefaultKey bool   `json:"using_default_key"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.auth.Register(c.Request().Context(), req.FirstName, req.LastName, req.Password, req.APIKey)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	case errors.Is(err, auth.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error(c.Request().Context(), "registration failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusCreated, registerResponse{
		Username:        res.Username,
		UsingDefaultKey: res.UsingDefaultKey,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username        string `json:"username"`
	Token           string `json:"token"`
	ExpiresAt       string `json:"expires_at"`
	UsingDefaultKey bool   `json:"using_default_key"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		s.logger.Error(c.Request().Context(), "login failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, loginResponse{
		Username:        res.Username,
		Token:           res.Token,
		ExpiresAt:       res.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UsingDefaultKey: res.UsingDefaultKey,
	})
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

type validatePasswordResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

func (s *Server) handleValidatePassword(c echo.Context) error {
	var req validatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	problems := auth.ValidatePassword(req.Password)
	if problems == nil {
		problems = []string{}
	}
	return c.JSON(http.StatusOK, validatePasswordResponse{
		Valid:    len(problems) == 0,
		Problems: problems,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	username := currentUsername(c)
	sessionID := orchestrator.SessionID(username)
	ctx := logging.WithSessionID(c.Request().Context(), sessionID)

	credential, _, err := s.auth.CredentialFor(ctx, username)
	if err != nil {
		s.logger.Error(ctx, "credential lookup failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not resolve credentials")
	}

	reply, err := s.orch.ProcessMessage(ctx, sessionID, req.Message, credential)
	if err != nil {
		s.logger.Error(ctx, "chat processing failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "chat processing failed")
	}
	return c.JSON(http.StatusOK, reply)
}

type previewResponse struct {
	HTML string `json:"html"`
}

func (s *Server) handlePreview(c echo.Context) error {
	html := s.orch.Preview(orchestrator.SessionID(currentUsername(c)))
	return c.JSON(http.StatusOK, previewResponse{HTML: html})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Status(orchestrator.SessionID(currentUsername(c))))
}

func (s *Server) handleDownload(c echo.Context) error {
	data, err := s.orch.BuildDownloadPackage(orchestrator.SessionID(currentUsername(c)))
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoSession) || errors.Is(err, orchestrator.ErrNoSections) {
			return echo.NewHTTPError(http.StatusNotFound, "nothing to download yet")
		}
		s.logger.Error(c.Request().Context(), "packaging failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "packaging failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="website.zip"`)
	return c.Blob(http.StatusOK, "application/zip", data)
}

type resetResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleReset(c echo.Context) error {
	if err := s.orch.Reset(c.Request().Context(), orchestrator.SessionID(currentUsername(c))); err != nil {
		s.logger.Error(c.Request().Context(), "reset failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}
	return c.JSON(http.StatusOK, resetResponse{Status: "reset"})
}
