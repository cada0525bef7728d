package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intercity-reservation/internal/handler"
	"github.com/iliyamo/intercity-reservation/internal/middleware"
	"github.com/iliyamo/intercity-reservation/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the catalog under /v1.  Responses go through
// the redis response cache; a nil cache serves them uncached.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache *middleware.ResponseCache) {
	g := e.Group("/v1", cache.Middleware())
	g.GET("/routes", h.ListRoutes)
	g.GET("/routes/:id/schedules", h.ListSchedules)
	g.GET("/schedules/:id/seats", h.ListSeats)
}

// RegisterBooking registers the customer's reservation session and
// booking history.  Every route requires a CUSTOMER access token and is
// rate limited by limiter.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, r *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleCustomer))
	if limiter != nil {
		g.Use(limiter)
	}
	g.GET("/booking", b.Get)
	g.POST("/booking/events", b.Dispatch)
	g.POST("/booking/submit", b.Submit)
	g.DELETE("/booking", b.Reset)
	g.GET("/reservations", r.List)
	g.GET("/reservations/:confirmation", r.Get)
}
