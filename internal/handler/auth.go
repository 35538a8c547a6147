package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openkiosk/container-tracker/internal/middleware"
	"github.com/openkiosk/container-tracker/internal/utils"
)

// AuthHandler implements the optional dashboard login. It exists only when a
// DASHBOARD_PASSWORD_HASH is configured; a single shared operator password
// unlocks the mutation routes by placing a signed session token in a cookie.
type AuthHandler struct {
	PasswordHash string // bcrypt hash of the operator password
	JWTSecret    string
	TTLMin       int
}

// NewAuthHandler returns an AuthHandler with the given settings.
func NewAuthHandler(passwordHash, jwtSecret string, ttlMin int) *AuthHandler {
	return &AuthHandler{PasswordHash: passwordHash, JWTSecret: jwtSecret, TTLMin: ttlMin}
}

// Login handles POST /login (form field: password). On success a session
// cookie is set and the client is sent back to the dashboard.
func (a *AuthHandler) Login(c echo.Context) error {
	password := c.FormValue("password")
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong password"})
	}
	token, exp, err := utils.NewSessionToken(a.JWTSecret, a.TTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create session"})
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout handles POST /logout by expiring the session cookie.
func (a *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	return c.Redirect(http.StatusSeeOther, "/")
}
