package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intercity-reservation/internal/middleware"
	"github.com/iliyamo/intercity-reservation/internal/repository"
)

// Reservations reads confirmed bookings.  *repository.ReservationRepo
// implements it.
type Reservations interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error)
	GetByConfirmation(ctx context.Context, confirmationID string, userID uint64) (*repository.ReservationDetail, error)
}

// ReservationHandler lists the authenticated customer's bookings.  A
// customer only ever sees their own reservations; someone else's
// confirmation id answers 404.
type ReservationHandler struct {
	Reservations Reservations
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Reservations.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/reservations/:confirmation.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.ToUpper(strings.TrimSpace(c.Param("confirmation")))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation id"})
	}
	res, err := h.Reservations.GetByConfirmation(c.Request().Context(), id, uid)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}
