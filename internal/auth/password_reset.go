package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

const resetRequestedMessage = "If the email exists, a reset link has been sent."

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

// POST /auth/password/request
// Always responds with the same message to avoid user enumeration.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	req := new(RequestPasswordResetRequest)
	if err := c.Bind(req); err != nil || req.Email == "" {
		return c.JSON(http.StatusOK, echo.Map{"message": resetRequestedMessage})
	}

	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("password reset request failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": resetRequestedMessage})
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// POST /auth/password/reset
func (h *Handler) ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
