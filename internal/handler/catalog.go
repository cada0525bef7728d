package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/repository"
)

// Catalog is the read side of routes, departures and seat maps.
// *repository.CatalogRepo implements it.
type Catalog interface {
	ListRoutes(ctx context.Context) ([]model.Route, error)
	GetRoute(ctx context.Context, id uint64) (*model.Route, error)
	ListSchedules(ctx context.Context, routeID uint64) ([]model.Schedule, error)
	GetSchedule(ctx context.Context, id uint64) (*model.Schedule, error)
	ListSeats(ctx context.Context, scheduleID uint64) ([]model.Seat, error)
}

// CatalogHandler serves the public, unauthenticated catalog.
type CatalogHandler struct {
	Catalog Catalog
}

// ScheduleView is a departure as listed to customers.
type ScheduleView struct {
	model.Schedule
	AvailableSeats uint32 `json:"available_seats"`
}

// ListRoutes handles GET /v1/routes.
func (h *CatalogHandler) ListRoutes(c echo.Context) error {
	routes, err := h.Catalog.ListRoutes(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": routes})
}

// ListSchedules handles GET /v1/routes/:id/schedules.
func (h *CatalogHandler) ListSchedules(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	schedules, err := h.Catalog.ListSchedules(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, err)
	}
	out := make([]ScheduleView, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, ScheduleView{Schedule: s, AvailableSeats: s.AvailableSeats()})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListSeats handles GET /v1/schedules/:id/seats.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	sched, err := h.Catalog.GetSchedule(ctx, id)
	if err != nil {
		return catalogError(c, err)
	}
	seats, err := h.Catalog.ListSeats(ctx, id)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"schedule": ScheduleView{Schedule: *sched, AvailableSeats: sched.AvailableSeats()},
		"seats":    seats,
	})
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// catalogError maps repository sentinels onto HTTP statuses.
func catalogError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRouteNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
	case errors.Is(err, repository.ErrScheduleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
