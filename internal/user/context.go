package user

import "github.com/labstack/echo/v4"

// Context keys set by the authentication middleware.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// SetCurrent stores the authenticated user on the echo context.
func SetCurrent(c echo.Context, u User) {
	c.Set(ContextUserID, u.ID)
	c.Set(ContextUser, u)
}

// Current returns the authenticated user, if any.
func Current(c echo.Context) (User, bool) {
	u, ok := c.Get(ContextUser).(User)
	return u, ok && u.ID != ""
}
