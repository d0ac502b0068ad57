package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/auth"
	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/directory"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/media"
	"github.com/sudo-init-do/servicehub/internal/messaging"
	"github.com/sudo-init-do/servicehub/internal/metrics"
	appmw "github.com/sudo-init-do/servicehub/internal/middleware"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type deps struct {
	cfg      *config.Config
	log      zerolog.Logger
	stores   stores
	hub      *messaging.Hub
	notifier marketplace.Notifier
	mailer   auth.Mailer
}

func newServer(d deps) (*echo.Echo, error) {
	cfg := d.cfg
	limits := marketplace.Limits{
		DefaultPageSize: cfg.Listing.DefaultPageSize,
		MaxPageSize:     cfg.Listing.MaxPageSize,
	}

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.PasswordResetTTL)
	authSvc := auth.NewService(d.stores.users, tokens, d.mailer, cfg.AppURL)
	userSvc := user.NewService(d.stores.users)
	marketSvc := marketplace.NewService(d.stores.market, d.notifier, limits)
	dirSvc, err := directory.NewService(d.stores.directory, cfg.DirectoryCacheSize, limits)
	if err != nil {
		return nil, err
	}

	authH := auth.NewHandler(authSvc)
	userH := user.NewHandler(userSvc)
	marketH := marketplace.NewHandler(marketSvc)
	msgH := messaging.NewHandler(marketSvc, d.hub)
	dirH := directory.NewHandler(dirSvc)
	mediaH := media.NewHandler(cfg.UploadMaxBytes)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger(d.log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.stores.market.Ping(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	api := e.Group("/api")

	// Per-IP rate limiting on credential endpoints.
	authG := api.Group("/auth", middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authG.POST("/register", authH.Register)
	authG.POST("/login", authH.Login)
	authG.POST("/password/request", authH.RequestPasswordReset)
	authG.POST("/password/reset", authH.ResetPassword)

	api.GET("/categories", marketH.ListCategories)
	api.GET("/subcategories/:category", marketH.ListSubcategories)
	api.GET("/all-subcategories", marketH.AllSubcategories)
	api.GET("/service-requests", marketH.ListRequests)
	api.GET("/service-requests/:id", marketH.GetRequest)
	api.GET("/users/:id/profile", userH.GetPublicProfile)
	api.GET("/service-providers", dirH.List)
	api.GET("/service-providers/:id", dirH.Get)
	api.POST("/recommendations", dirH.Recommend)

	authed := api.Group("", appmw.JWT(authSvc))
	authed.GET("/auth/me", authH.Me)

	authed.GET("/user/roles", userH.GetRoles)
	authed.POST("/user/add-role", userH.AddRole)
	authed.POST("/provider-profile", userH.CreateProviderProfile)
	authed.GET("/provider-profile", userH.GetProviderProfile)
	authed.PUT("/provider-profile", userH.UpdateProviderProfile)

	authed.POST("/service-requests", marketH.CreateRequest)
	authed.PUT("/service-requests/:id", marketH.UpdateRequest)
	authed.DELETE("/service-requests/:id", marketH.DeleteRequest)
	authed.PUT("/service-requests/:id/status", marketH.SetStatus)
	authed.GET("/service-requests/:id/bids", marketH.ListBids)
	authed.GET("/service-requests/:id/bids/export", marketH.ExportBids)
	authed.POST("/service-requests/:id/bids/:bid_id/accept", marketH.AcceptBid)
	authed.POST("/service-requests/:id/bids/:bid_id/decline", marketH.DeclineBid)
	authed.GET("/my-requests", marketH.MyRequests)

	authed.POST("/bids", marketH.SubmitBid, appmw.RequireRoles(user.RoleProvider))
	authed.GET("/my-bids", marketH.MyBids, appmw.RequireRoles(user.RoleProvider))

	authed.POST("/bid-messages", msgH.PostMessage)
	authed.GET("/bid-messages/:bid_id", msgH.ListMessages)
	authed.GET("/bids/:id/ws", msgH.ThreadSocket)

	authed.POST("/upload-image", mediaH.UploadImage)

	return e, nil
}
