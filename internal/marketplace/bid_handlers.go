package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// POST /bids
func (h *Handler) SubmitBid(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	var in BidInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request")
	}
	if in.ServiceRequestID == "" {
		return badRequest(c, "service_request_id is required")
	}
	b, err := h.svc.SubmitBid(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// GET /service-requests/:id/bids
func (h *Handler) ListBids(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	bids, err := h.svc.ListBids(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, bids)
}

// POST /service-requests/:id/bids/:bid_id/accept
func (h *Handler) AcceptBid(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	r, b, err := h.svc.AcceptBid(c.Request().Context(), c.Param("id"), c.Param("bid_id"), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "bid accepted", "service_request": r, "bid": b})
}

// POST /service-requests/:id/bids/:bid_id/decline
func (h *Handler) DeclineBid(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	b, err := h.svc.DeclineBid(c.Request().Context(), c.Param("id"), c.Param("bid_id"), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "bid declined", "bid": b})
}

// GET /service-requests/:id/bids/export
func (h *Handler) ExportBids(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	name, data, err := h.svc.ExportBids(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// GET /my-bids
func (h *Handler) MyBids(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	bids, err := h.svc.MyBids(c.Request().Context(), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, bids)
}
