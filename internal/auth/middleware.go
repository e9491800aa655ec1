package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const sessionKey = "auth_session"

// Session is the authenticated caller, injected into each request by the middleware.
type Session struct {
	UserID string
	Email  string
	Token  string
}

// RequireUser rejects requests without a valid bearer token and stores the Session.
func (s *Service) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := s.ValidateToken(token)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(sessionKey, &Session{
				UserID: claims.Subject,
				Email:  claims.Email,
				Token:  token,
			})
			return next(c)
		}
	}
}

// SessionFrom returns the Session stored by RequireUser, or nil.
func SessionFrom(c echo.Context) *Session {
	session, _ := c.Get(sessionKey).(*Session)
	return session
}

// AdminToken guards operator endpoints with a static shared token. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted too. With no token configured every request is refused.
func AdminToken(expected string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if expected == "" {
				return echo.NewHTTPError(http.StatusForbidden, "admin access is disabled")
			}

			token := extractBearerToken(c)
			if token == "" {
				token = c.QueryParam("token")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
			}
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
