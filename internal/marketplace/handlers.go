package marketplace

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
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

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func optionalFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
	}
	return &v, nil
}

func optionalBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be true or false")
	}
	return &v, nil
}

func bindRequestFilter(c echo.Context) (RequestFilter, error) {
	var f RequestFilter
	err := echo.QueryParamsBinder(c).
		String("category", &f.Category).
		String("status", &f.Status).
		String("location", &f.Location).
		String("search", &f.Search).
		String("urgency", &f.Urgency).
		Bool("show_best_bids_only", &f.ShowBestBidsOnly).
		String("sort_by", &f.Sort).
		String("sort_order", &f.Order).
		Int("page", &f.Page.Number).
		Int("page_size", &f.Page.Size).
		BindError()
	if err != nil {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	floats := []struct {
		name string
		dst  **float64
	}{
		{"budget_min", &f.BudgetMin},
		{"budget_max", &f.BudgetMax},
		{"latitude", &f.Latitude},
		{"longitude", &f.Longitude},
		{"radius_km", &f.RadiusKM},
	}
	for _, fl := range floats {
		if *fl.dst, err = optionalFloat(c, fl.name); err != nil {
			return f, err
		}
	}
	if f.HasImages, err = optionalBool(c, "has_images"); err != nil {
		return f, err
	}
	return f, nil
}

// POST /service-requests
func (h *Handler) CreateRequest(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	var in RequestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request")
	}
	r, err := h.svc.CreateRequest(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// GET /service-requests
func (h *Handler) ListRequests(c echo.Context) error {
	f, err := bindRequestFilter(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListRequests(c.Request().Context(), f)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /service-requests/:id
func (h *Handler) GetRequest(c echo.Context) error {
	r, err := h.svc.GetRequest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// PUT /service-requests/:id
func (h *Handler) UpdateRequest(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	var patch RequestPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid request")
	}
	r, err := h.svc.UpdateRequest(c.Request().Context(), c.Param("id"), actor, patch)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

type statusRequest struct {
	Status string `json:"status"`
}

// PUT /service-requests/:id/status
func (h *Handler) SetStatus(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	r, err := h.svc.SetStatus(c.Request().Context(), c.Param("id"), actor, req.Status)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// DELETE /service-requests/:id
func (h *Handler) DeleteRequest(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.svc.DeleteRequest(c.Request().Context(), c.Param("id"), actor); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "service request deleted"})
}

// GET /my-requests
func (h *Handler) MyRequests(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	rs, err := h.svc.MyRequests(c.Request().Context(), actor)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// GET /categories
func (h *Handler) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"categories": Categories})
}

// GET /subcategories/:category
func (h *Handler) ListSubcategories(c echo.Context) error {
	subs, err := SubcategoriesOf(c.Param("category"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subcategories": subs})
}

// GET /all-subcategories
func (h *Handler) AllSubcategories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"subcategories": Subcategories})
}
