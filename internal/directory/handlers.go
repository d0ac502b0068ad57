package directory

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func queryFloat(c echo.Context, name string) (*float64, error) {
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

func bindFilter(c echo.Context) (Filter, error) {
	var f Filter
	err := echo.QueryParamsBinder(c).
		String("category", &f.Category).
		String("location", &f.Location).
		String("search", &f.Search).
		Bool("verified_only", &f.VerifiedOnly).
		Int("page", &f.Page.Number).
		Int("page_size", &f.Page.Size).
		BindError()
	if err != nil {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	for name, dst := range map[string]**float64{
		"min_rating": &f.MinRating,
		"latitude":   &f.Latitude,
		"longitude":  &f.Longitude,
		"radius_km":  &f.RadiusKM,
	} {
		if *dst, err = queryFloat(c, name); err != nil {
			return f, err
		}
	}
	return f, nil
}

// GET /service-providers
func (h *Handler) List(c echo.Context) error {
	f, err := bindFilter(c)
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /service-providers/:id
func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// POST /recommendations
func (h *Handler) Recommend(c echo.Context) error {
	var in RecommendationInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	out, err := h.svc.Recommend(c.Request().Context(), in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
