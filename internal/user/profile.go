package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// POST /provider-profile
func (h *Handler) CreateProviderProfile(c echo.Context) error {
	actor, ok := Current(c)
	if !ok {
		return unauthorized(c)
	}
	var req ProfileInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	p, err := h.svc.CreateProfile(c.Request().Context(), actor, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /provider-profile
func (h *Handler) GetProviderProfile(c echo.Context) error {
	actor, ok := Current(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.svc.GetProfile(c.Request().Context(), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// PUT /provider-profile
func (h *Handler) UpdateProviderProfile(c echo.Context) error {
	actor, ok := Current(c)
	if !ok {
		return unauthorized(c)
	}
	var req ProfileInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), actor, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
