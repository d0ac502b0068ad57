package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Respond writes err as a JSON error body. Business errors carry their own
// message; internal errors are logged once here and answered generically.
func Respond(c echo.Context, err error) error {
	status := Status(err)
	if status == http.StatusInternalServerError {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		zerolog.Ctx(c.Request().Context()).Error().Err(err).
			Str("route", c.Path()).
			Msg("request failed")
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
