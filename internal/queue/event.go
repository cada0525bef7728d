// Package queue defines the messages exchanged over RabbitMQ together
// with the publisher and the background consumer for them.
package queue

import (
	"fmt"
	"strings"
)

// BookingQueue is the durable queue carrying confirmed reservations.
const BookingQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a reservation is confirmed.
// It carries enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	ReservationID  uint64   `json:"reservation_id"`
	ConfirmationID string   `json:"confirmation_id"`
	UserID         uint64   `json:"user_id"`
	RouteID        uint64   `json:"route_id"`
	Origin         string   `json:"origin"`
	Destination    string   `json:"destination"`
	ScheduleID     uint64   `json:"schedule_id"`
	DepartsAt      string   `json:"departs_at"`
	ArrivesAt      string   `json:"arrives_at"`
	SeatLabels     []string `json:"seats"`
	RangeStart     string   `json:"range_start,omitempty"`
	RangeEnd       string   `json:"range_end,omitempty"`
	PaymentMethod  string   `json:"payment_method"`
	TotalAmount    int64    `json:"total_amount"`
	ConfirmedAt    string   `json:"confirmed_at"`
}

// LogLine renders the event as the single line written to booking.log.
func (ev BookingConfirmedEvent) LogLine() string {
	units := fmt.Sprintf("seats=[%s]", strings.Join(ev.SeatLabels, ","))
	if ev.RangeStart != "" {
		units = fmt.Sprintf("range=%s..%s", ev.RangeStart, ev.RangeEnd)
	}
	return fmt.Sprintf("[%s] Reservation confirmed | confirmation=%s | reservation_id=%d | user_id=%d | route=\"%s -> %s\" | schedule_id=%d | departs=%s | %s | method=%s | total=%d\n",
		ev.ConfirmedAt, ev.ConfirmationID, ev.ReservationID, ev.UserID, ev.Origin, ev.Destination,
		ev.ScheduleID, ev.DepartsAt, units, ev.PaymentMethod, ev.TotalAmount)
}
