package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/user"
)

// Me returns the currently authenticated user. The password hash never
// leaves the server.
func (h *Handler) Me(c echo.Context) error {
	u, ok := user.Current(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, u)
}
