package messaging

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type Handler struct {
	svc *marketplace.Service
	hub *Hub
}

func NewHandler(svc *marketplace.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

type postMessageRequest struct {
	BidID   string `json:"bid_id"`
	Message string `json:"message"`
}

// POST /bid-messages
func (h *Handler) PostMessage(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	var req postMessageRequest
	if err := c.Bind(&req); err != nil || req.BidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	m, err := h.svc.PostMessage(c.Request().Context(), req.BidID, actor, req.Message)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// GET /bid-messages/:bid_id
func (h *Handler) ListMessages(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	since, err := marketplace.ParseSince(c.QueryParam("since"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), c.Param("bid_id"), actor, since)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}
