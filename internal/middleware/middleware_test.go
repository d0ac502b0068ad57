package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type fakeAuth map[string]user.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (user.User, error) {
	u, ok := f[token]
	if !ok {
		return user.User{}, fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthorized)
	}
	return u, nil
}

func newRouter(buf *bytes.Buffer) *echo.Echo {
	auth := fakeAuth{
		"cust": {ID: "u1", Roles: user.Roles{user.RoleCustomer}},
		"both": {ID: "u2", Roles: user.Roles{user.RoleCustomer, user.RoleProvider}},
	}
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(RequestLogger(zerolog.New(buf)))
	whoami := func(c echo.Context) error {
		u, _ := user.Current(c)
		return c.String(http.StatusOK, u.ID)
	}
	e.GET("/me", whoami, JWT(auth))
	e.GET("/provider", whoami, JWT(auth), RequireRoles(user.RoleProvider))
	e.GET("/ws", whoami, JWT(auth))
	return e
}

func get(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTLoadsUser(t *testing.T) {
	var buf bytes.Buffer
	e := newRouter(&buf)

	rec := get(e, "/me", "cust")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	assert.Contains(t, buf.String(), `"route":"/me"`)

	assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "bogus").Code)
}

func TestRequireRoles(t *testing.T) {
	e := newRouter(&bytes.Buffer{})
	assert.Equal(t, http.StatusForbidden, get(e, "/provider", "cust").Code)
	assert.Equal(t, http.StatusOK, get(e, "/provider", "both").Code)
}

func TestWebsocketTokenFromQuery(t *testing.T) {
	e := newRouter(&bytes.Buffer{})

	req := httptest.NewRequest(http.MethodGet, "/ws?token=both", nil)
	req.Header.Set(echo.HeaderUpgrade, "websocket")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// query tokens are ignored on plain requests
	rec = get(e, "/me?token=both", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
