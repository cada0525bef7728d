package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// CatalogRepo reads routes, departures and seat maps.  The reservation
// flow never writes to these tables; only the submission gateway flips
// seats to booked.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo with the given DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions
// spanning several repositories.
func (r *CatalogRepo) DB() *sql.DB { return r.db }

// ListRoutes returns every active route ordered by origin then destination.
func (r *CatalogRepo) ListRoutes(ctx context.Context) ([]model.Route, error) {
	const q = `SELECT id, origin, destination, base_price FROM routes WHERE active = 1 ORDER BY origin, destination`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	routes := make([]model.Route, 0)
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.Origin, &rt.Destination, &rt.BasePrice); err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

// GetRoute returns the active route with the given id or ErrRouteNotFound.
func (r *CatalogRepo) GetRoute(ctx context.Context, id uint64) (*model.Route, error) {
	const q = `SELECT id, origin, destination, base_price FROM routes WHERE id = ? AND active = 1`
	var rt model.Route
	err := r.db.QueryRowContext(ctx, q, id).Scan(&rt.ID, &rt.Origin, &rt.Destination, &rt.BasePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// scheduleColumns selects a schedule together with its booked seat count.
const scheduleColumns = `s.id, s.route_id, s.departs_at, s.arrives_at, s.total_seats,
	(SELECT COUNT(*) FROM schedule_seats ss WHERE ss.schedule_id = s.id AND ss.status = 'BOOKED')`

func scanSchedule(sc interface{ Scan(...any) error }) (model.Schedule, error) {
	var s model.Schedule
	err := sc.Scan(&s.ID, &s.RouteID, &s.DepartsAt, &s.ArrivesAt, &s.TotalSeats, &s.BookedSeats)
	s.DepartsAt = s.DepartsAt.UTC()
	s.ArrivesAt = s.ArrivesAt.UTC()
	return s, err
}

// ListSchedules returns the upcoming scheduled departures of a route in
// departure order.  It returns ErrRouteNotFound for unknown routes so
// callers can tell "no departures" from "no such route".
func (r *CatalogRepo) ListSchedules(ctx context.Context, routeID uint64) ([]model.Schedule, error) {
	if _, err := r.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}
	q := `SELECT ` + scheduleColumns + `
	      FROM schedules s
	      WHERE s.route_id = ? AND s.status = 'SCHEDULED' AND s.departs_at > UTC_TIMESTAMP()
	      ORDER BY s.departs_at`
	rows, err := r.db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSchedule returns a scheduled departure or ErrScheduleNotFound.
func (r *CatalogRepo) GetSchedule(ctx context.Context, id uint64) (*model.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.id = ? AND s.status = 'SCHEDULED'`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSeats returns the seat map of a departure in layout order.
func (r *CatalogRepo) ListSeats(ctx context.Context, scheduleID uint64) ([]model.Seat, error) {
	const q = `SELECT seat_code, label, status FROM schedule_seats WHERE schedule_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var seat model.Seat
		var status string
		if err := rows.Scan(&seat.ID, &seat.Label, &status); err != nil {
			return nil, err
		}
		st, err := seatStatus(status)
		if err != nil {
			return nil, err
		}
		seat.Status = st
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func seatStatus(db string) (model.SeatStatus, error) {
	switch strings.ToUpper(db) {
	case "AVAILABLE":
		return model.SeatAvailable, nil
	case "BOOKED":
		return model.SeatBooked, nil
	case "DISABLED":
		return model.SeatDisabled, nil
	}
	return "", fmt.Errorf("unknown seat status %q", db)
}
