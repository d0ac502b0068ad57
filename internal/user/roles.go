package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// GET /user/roles
func (h *Handler) GetRoles(c echo.Context) error {
	actor, ok := Current(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": actor.Roles})
}

type addRoleRequest struct {
	Role string `json:"role"`
}

// POST /user/add-role
func (h *Handler) AddRole(c echo.Context) error {
	actor, ok := Current(c)
	if !ok {
		return unauthorized(c)
	}
	var req addRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	updated, err := h.svc.AddRole(c.Request().Context(), actor, req.Role)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role added", "user": updated})
}
