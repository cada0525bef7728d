// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers and the submission gateway to distinguish between failure
// scenarios with errors.Is.
package repository

import "errors"

// ErrRouteNotFound is returned when a route does not exist or is not
// open for booking.  Handlers translate it into an HTTP 404.
var ErrRouteNotFound = errors.New("route not found")

// ErrScheduleNotFound is returned when a departure does not exist or has
// been cancelled.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrReservationNotFound is returned when a confirmed reservation cannot
// be found for the calling customer.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as booking a seat somebody else bought in the
// meantime.  Handlers translate it into an HTTP 409.
var ErrConflict = errors.New("conflict")
