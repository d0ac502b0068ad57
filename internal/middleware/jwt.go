package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

// Authenticator resolves a bearer token to the stored user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

func bearerToken(c echo.Context) string {
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	// Browsers cannot set headers on websocket upgrades.
	if websocketUpgrade(c) {
		return c.QueryParam("token")
	}
	return ""
}

func websocketUpgrade(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}

// JWT authenticates the request and loads the current user on the context.
// The user is re-read from storage on every request so role grants apply
// immediately.
func JWT(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			u, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return apperr.Respond(c, err)
			}
			user.SetCurrent(c, u)
			ctx := withUserID(c.Request().Context(), u.ID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
