package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/easyref/easyref-api/docs"
	"github.com/easyref/easyref-api/internal/api/handler"
	"github.com/easyref/easyref-api/internal/api/middleware"
	"github.com/easyref/easyref-api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is wired to.
type Deps struct {
	Profiles   ports.ProfileService
	Billing    ports.BillingService
	Webhooks   ports.WebhookQueue
	Workspaces middleware.WorkspaceOpener
	Upgrades   handler.UpgradeWaiter
	Verifier   *middleware.TokenVerifier
	Limiter    middleware.Limiter
	Checks     map[string]handler.CheckFunc
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			id, err := gonanoid.New()
			if err != nil {
				return ""
			}
			return id
		},
	}))
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("easyref"))

	// --- Health probes, metrics and docs (no auth required) ---
	health := handler.NewHealthHandler(d.Checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	profiles := handler.NewProfileHandler(d.Profiles)
	themes := handler.NewThemeHandler()
	referrals := handler.NewReferralHandler()
	tags := handler.NewTagHandler()
	billing := handler.NewBillingHandler(d.Billing, d.Webhooks, d.Upgrades, d.Log)
	admin := handler.NewAdminHandler(d.Profiles, d.Billing)

	v1 := e.Group("/v1")

	// --- Visitors ---
	public := v1.Group("", middleware.RateLimit(d.Limiter, d.Log))
	public.GET("/usernames/:username/availability", profiles.Availability)
	public.GET("/profiles/:username", profiles.Public)

	// --- Payment provider ---
	v1.POST("/webhooks/stripe", billing.Webhook)

	// --- Authenticated, before a username is claimed ---
	auth := middleware.Auth(d.Verifier)
	v1.POST("/profiles", profiles.Claim, auth)

	// --- Owner workspace ---
	me := v1.Group("/me", auth, middleware.LoadProfile(d.Profiles, d.Workspaces))
	me.GET("", profiles.Me)
	me.PATCH("", profiles.UpdateSettings)
	me.GET("/preview", profiles.Preview)

	me.GET("/theme", themes.Get)
	me.PATCH("/theme", themes.SetField)
	me.POST("/theme/save", themes.Save)
	me.POST("/theme/reset", themes.Reset)
	me.POST("/theme/cancel", themes.Cancel)

	me.GET("/referrals", referrals.List)
	me.POST("/referrals", referrals.Create)
	me.PUT("/referrals/:id", referrals.Update)
	me.DELETE("/referrals/:id", referrals.Delete)
	me.POST("/referrals/:id/confirmation", referrals.RequestDelete)
	me.DELETE("/referrals/:id/confirmation", referrals.DismissDelete)

	me.GET("/tags", tags.List)
	me.POST("/tags", tags.Add)
	me.DELETE("/tags/:id", tags.Delete)
	me.POST("/tags/:id/confirmation", tags.RequestDelete)
	me.DELETE("/tags/:id/confirmation", tags.DismissDelete)

	me.POST("/checkout", billing.Checkout)
	me.GET("/upgrade", billing.Upgrade)

	// --- Admin ---
	adm := v1.Group("/admin", auth, middleware.LoadProfile(d.Profiles, d.Workspaces), middleware.RequireAdmin())
	adm.GET("/profiles", admin.List)
	adm.PUT("/profiles/:id/tier", admin.SetTier)

	return e
}
