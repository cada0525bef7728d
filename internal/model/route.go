package model

import "time"

// Route is an origin/destination pair offered by the operator.  The
// base price is the fare for a single seat (or a single rental day) in
// the smallest currency unit and is the only price the reservation flow
// trusts.
//
// Fields:
//
//	ID          – primary key identifier.
//	Origin      – departure city.
//	Destination – arrival city.
//	BasePrice   – fare per unit in the smallest currency unit.
type Route struct {
	ID          uint64 `json:"id"`          // routes.id
	Origin      string `json:"origin"`      // routes.origin
	Destination string `json:"destination"` // routes.destination
	BasePrice   int64  `json:"base_price"`  // routes.base_price
}

// Schedule is a single departure of a route.  TotalSeats and
// BookedSeats are informational counters supplied by the catalog; the
// reservation flow never writes them.
//
// Fields:
//
//	ID          – primary key identifier.
//	RouteID     – route this departure belongs to.
//	DepartsAt   – departure timestamp (UTC).
//	ArrivesAt   – expected arrival timestamp (UTC).
//	TotalSeats  – capacity of the vehicle.
//	BookedSeats – seats already sold to other customers.
type Schedule struct {
	ID          uint64    `json:"id"`           // schedules.id
	RouteID     uint64    `json:"route_id"`     // schedules.route_id
	DepartsAt   time.Time `json:"departs_at"`   // schedules.departs_at
	ArrivesAt   time.Time `json:"arrives_at"`   // schedules.arrives_at
	TotalSeats  uint32    `json:"total_seats"`  // schedules.total_seats
	BookedSeats uint32    `json:"booked_seats"` // schedules.booked_seats
}

// AvailableSeats returns how many seats remain unsold, never negative.
func (s Schedule) AvailableSeats() uint32 {
	if s.BookedSeats >= s.TotalSeats {
		return 0
	}
	return s.TotalSeats - s.BookedSeats
}

// DateRange is the rental-style alternative to discrete seats.  Both
// dates are calendar days; End is inclusive of the last day used.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of whole days between Start and End.  A range
// whose end is not after its start has zero days.
func (r DateRange) Days() int64 {
	start := truncateDay(r.Start)
	end := truncateDay(r.End)
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
