package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/config"
	"github.com/iliyamo/stall-rental/internal/handler"
	"github.com/iliyamo/stall-rental/internal/metrics"
	"github.com/iliyamo/stall-rental/internal/middleware"
	"github.com/iliyamo/stall-rental/internal/model"
)

// Deps is everything the route table needs. Redis and Metrics may be nil.
type Deps struct {
	Config  config.Config
	Log     *zap.Logger
	Redis   *redis.Client
	Metrics *metrics.Metrics
	DB      handler.Pinger

	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Catalog *handler.CatalogHandler
	Ledger  *handler.LedgerHandler
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log))

	RegisterPublic(e, d)
	RegisterAuth(e, d.Auth)
	RegisterLedger(e, d)
	return e
}

// RegisterPublic registers routes that do not require authentication.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
}

// RegisterAuth registers the token endpoints. None of them needs an
// existing access token; logout accepts one to revoke every session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)
}

// RegisterLedger registers the staff API under /v1. Every route requires a
// valid access token; user management additionally requires Admin. The
// response cache is attached to each route so it runs after every role
// check: a cached body is never served to a caller the route would refuse.
func RegisterLedger(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.Config.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEmployee),
	)
	// availability and the caller's own account change without a write
	// through this API, so they are never served from cache
	cache := middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Log, "/v1/stalls", "/v1/me")

	u := d.Users
	g.GET("/me", u.Me, cache)
	g.PATCH("/me", u.UpdateMe, cache)

	// ---- Vendors ----
	c := d.Catalog
	g.GET("/vendors", c.ListVendors, cache)
	g.POST("/vendors", c.CreateVendor, cache)
	g.PUT("/vendors/:id", c.UpdateVendor, cache)
	g.PATCH("/vendors/:id", c.UpdateVendor, cache)
	g.DELETE("/vendors/:id", c.DeleteVendor, cache)

	// ---- Sections ----
	g.GET("/sections", c.ListSections, cache)
	g.POST("/sections", c.CreateSection, cache)
	g.PUT("/sections/:id", c.UpdateSection, cache)
	g.PATCH("/sections/:id", c.UpdateSection, cache)
	g.DELETE("/sections/:id", c.DeleteSection, cache)

	// ---- Stalls ----
	g.GET("/stalls", c.ListStalls, cache) // ?section_id=
	g.POST("/stalls", c.CreateStall, cache)
	g.PUT("/stalls/:id", c.UpdateStall, cache)
	g.PATCH("/stalls/:id", c.UpdateStall, cache)
	g.DELETE("/stalls/:id", c.DeleteStall, cache)

	// ---- Rentals ----
	l := d.Ledger
	g.GET("/rentals", l.ListRentals, cache)
	g.POST("/rentals", l.CreateRental, cache)
	g.PUT("/rentals/:id", l.UpdateRental, cache)
	g.PATCH("/rentals/:id", l.UpdateRental, cache)
	g.DELETE("/rentals/:id", l.DeleteRental, cache)
	g.POST("/rentals/:id/vacate", l.Vacate, cache)
	g.POST("/rentals/:id/ban-deposit", l.PayBanDeposit, cache)
	g.POST("/rentals/:id/ban-deposit/compensate", l.CompensateBanDeposit, cache)

	// ---- Payments and receipts ----
	g.GET("/payments", l.ListPayments, cache) // ?rental_id=
	g.POST("/payments", l.CreatePayment, cache)
	g.PUT("/payments/:id", l.UpdatePayment, cache)
	g.PATCH("/payments/:id", l.UpdatePayment, cache)
	g.DELETE("/payments/:id", l.DeletePayment, cache)
	g.GET("/receipts/:or_number", l.Receipt, cache)
	g.GET("/receipts/:or_number/pdf", l.ReceiptPDF, cache)

	// ---- Users (Admin) ----
	admin := g.Group("/users", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", u.List, cache)
	admin.POST("", u.Create, cache)
	admin.PUT("/:id", u.Update, cache)
	admin.PATCH("/:id", u.Update, cache)
	admin.DELETE("/:id", u.Delete, cache)
}
