package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/siteforgelabs/siteforged/internal/logging"
)

const usernameContextKey = "siteforged.username"

// requireToken authenticates the bearer token and stashes the
// username on the echo context and the request context.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		username, err := s.auth.ValidateToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(usernameContextKey, username)
		ctx := logging.WithUsername(c.Request().Context(), username)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func currentUsername(c echo.Context) string {
	username, _ := c.Get(usernameContextKey).(string)
	return username
}

// chatLimiters throttles chat messages per user. Each message fans out
// into several upstream generation calls, so the cap is deliberately
// low.
type chatLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newChatLimiters() *chatLimiters {
	return &chatLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (l *chatLimiters) get(username string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[username]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Second), 5)
		l.limiters[username] = lim
	}
	return lim
}

func (s *Server) rateLimitChat(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiters.get(currentUsername(c)).Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, "slow down, one message at a time")
		}
		return next(c)
	}
}
