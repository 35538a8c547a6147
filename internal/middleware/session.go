package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openkiosk/container-tracker/internal/utils"
)

// SessionCookieName is the cookie carrying the dashboard session token.
const SessionCookieName = "session"

// RequireSession guards the dashboard's mutation routes. When no password
// hash is configured the dashboard is open (the original tool had no login at
// all) and the guard is a passthrough. Otherwise the request must carry a
// valid session token in the session cookie or as a bearer token.
func RequireSession(secret string, enabled bool) echo.MiddlewareFunc {
	if !enabled {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}
			if token == "" {
				auth := c.Request().Header.Get(echo.HeaderAuthorization)
				if strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required"})
			}
			if err := utils.ParseSessionToken(secret, token); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
			}
			return next(c)
		}
	}
}
