package model

import "time"

// SeatStatus is the availability of a seat as seen by the current
// session.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available" // free to select
	SeatSelected  SeatStatus = "selected"  // held by this session
	SeatBooked    SeatStatus = "booked"    // sold to someone else
	SeatDisabled  SeatStatus = "disabled"  // out of service
)

// Seat describes one seat of a departure.  Only the available and
// selected statuses are ever changed locally; booked and disabled come
// from the catalog.
type Seat struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status SeatStatus `json:"status"`
}

// Hold represents the current session's temporary claim on a selected
// seat.  Holds expire at ExpiresAt unless the reservation is confirmed
// first.
//
// Fields:
//
//	SeatID    – seat being held.
//	Token     – opaque token for correlation in logs and responses.
//	HeldAt    – when the seat was selected.
//	ExpiresAt – when the hold lapses.
type Hold struct {
	SeatID    string    `json:"seat_id"`
	Token     string    `json:"token"`
	HeldAt    time.Time `json:"held_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
