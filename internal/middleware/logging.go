package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger attaches a per-request child logger to the request context
// and writes one access line when the handler returns. It expects echo's
// RequestID middleware to run first.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)

			l := base.With().
				Str("request_id", reqID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			// Pick up fields added downstream, such as the user id.
			ctx := c.Request().Context()
			ev := zerolog.Ctx(ctx).Info()
			status := c.Response().Status
			if status >= 500 {
				ev = zerolog.Ctx(ctx).Error()
			}
			if id, ok := userIDFrom(ctx); ok {
				ev = ev.Str("user_id", id)
			}
			ev.Int("status", status).
				Str("route", c.Path()).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}

type userIDKey struct{}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func userIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok
}
