// Package gateway turns a finished reservation draft into a confirmed
// booking: seats are marked booked and the reservation row written in
// one transaction, after which a booking-confirmed event is published.
package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/queue"
	"github.com/iliyamo/intercity-reservation/internal/repository"
)

var (
	// ErrIncompleteDraft is returned for drafts missing a route,
	// departure, seats or date range, passenger or payment.
	ErrIncompleteDraft = errors.New("the reservation is incomplete")
	// ErrSeatsUnavailable is returned when a selected seat was sold in
	// the meantime.
	ErrSeatsUnavailable = errors.New("one or more selected seats are no longer available")
	// ErrUnavailable hides infrastructure failures from customers.
	ErrUnavailable = errors.New("booking service is temporarily unavailable, please retry")
)

const publishTimeout = 5 * time.Second

// SQLGateway confirms reservations in MySQL.
type SQLGateway struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	publisher    queue.Publisher
	newID        func(time.Time) string
	now          func() time.Time
}

// New returns a gateway writing through reservations.  publisher may be
// nil, in which case no event is published.
func New(db *sql.DB, reservations *repository.ReservationRepo, publisher queue.Publisher, newID func(time.Time) string) *SQLGateway {
	return &SQLGateway{
		db:           db,
		reservations: reservations,
		publisher:    publisher,
		newID:        newID,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the gateway clock.
func (g *SQLGateway) WithClock(now func() time.Time) *SQLGateway {
	g.now = now
	return g
}

// ForUser binds the gateway to the customer whose draft it will submit.
func (g *SQLGateway) ForUser(userID uint64) *UserGateway {
	return &UserGateway{g: g, userID: userID}
}

// UserGateway is an SQLGateway bound to one customer.
type UserGateway struct {
	g      *SQLGateway
	userID uint64
}

// Submit confirms d for the bound customer and returns its confirmation id.
func (u *UserGateway) Submit(ctx context.Context, d model.Draft) (string, error) {
	return u.g.Submit(ctx, u.userID, d)
}

// Submit confirms d for userID.
func (g *SQLGateway) Submit(ctx context.Context, userID uint64, d model.Draft) (string, error) {
	if err := complete(d); err != nil {
		return "", err
	}
	now := g.now()
	id := g.newID(now)
	rec := &repository.ReservationRecord{
		ConfirmationID: id,
		UserID:         userID,
		RouteID:        d.Route.ID,
		ScheduleID:     d.Schedule.ID,
		PaymentMethod:  string(d.Payment.Method),
		TotalAmount:    d.TotalAmount,
		PassengerName:  strings.TrimSpace(d.Passenger.FirstName + " " + d.Passenger.LastName),
		PassengerEmail: strings.TrimSpace(d.Passenger.Email),
		PassengerPhone: strings.TrimSpace(d.Passenger.Phone),
	}
	if d.DateRange != nil {
		start, end := d.DateRange.Start, d.DateRange.End
		rec.RangeStart, rec.RangeEnd = &start, &end
	}

	if err := g.write(ctx, rec, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", ErrSeatsUnavailable
		}
		log.Printf("gateway: submit for user %d failed: %v", userID, err)
		return "", ErrUnavailable
	}
	g.publish(ctx, rec, d, now)
	return id, nil
}

func (g *SQLGateway) write(ctx context.Context, rec *repository.ReservationRecord, d model.Draft) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	codes := make([]string, 0, len(d.Seats))
	for _, s := range d.Seats {
		codes = append(codes, s.ID)
	}
	if d.DateRange == nil {
		if err := g.reservations.BookSeatsTx(ctx, tx, d.Schedule.ID, codes); err != nil {
			return fmt.Errorf("book seats: %w", err)
		}
	}
	if err := g.reservations.CreateTx(ctx, tx, rec); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	seats := make([]repository.ReservationSeatRecord, 0, len(d.Seats))
	if d.DateRange == nil {
		for _, s := range d.Seats {
			seats = append(seats, repository.ReservationSeatRecord{
				ReservationID: rec.ID,
				ScheduleID:    d.Schedule.ID,
				SeatCode:      s.ID,
				Label:         s.Label,
				Price:         d.Route.BasePrice,
			})
		}
	}
	if err := g.reservations.CreateSeatsBulkTx(ctx, tx, seats); err != nil {
		return fmt.Errorf("create reservation seats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// publish announces the booking.  Failures are logged only: the
// reservation is already committed.
func (g *SQLGateway) publish(ctx context.Context, rec *repository.ReservationRecord, d model.Draft, now time.Time) {
	if g.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		ReservationID:  rec.ID,
		ConfirmationID: rec.ConfirmationID,
		UserID:         rec.UserID,
		RouteID:        d.Route.ID,
		Origin:         d.Route.Origin,
		Destination:    d.Route.Destination,
		ScheduleID:     d.Schedule.ID,
		DepartsAt:      d.Schedule.DepartsAt.UTC().Format(time.RFC3339),
		ArrivesAt:      d.Schedule.ArrivesAt.UTC().Format(time.RFC3339),
		PaymentMethod:  rec.PaymentMethod,
		TotalAmount:    rec.TotalAmount,
		ConfirmedAt:    now.UTC().Format(time.RFC3339),
	}
	for _, s := range d.Seats {
		label := s.Label
		if label == "" {
			label = s.ID
		}
		ev.SeatLabels = append(ev.SeatLabels, label)
	}
	if d.DateRange != nil {
		ev.RangeStart = d.DateRange.Start.UTC().Format(time.DateOnly)
		ev.RangeEnd = d.DateRange.End.UTC().Format(time.DateOnly)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := g.publisher.PublishBookingConfirmed(pctx, ev); err != nil {
		log.Printf("gateway: publish %s failed: %v", rec.ConfirmationID, err)
	}
}

func complete(d model.Draft) error {
	switch {
	case d.Route == nil, d.Schedule == nil, d.Passenger == nil, d.Payment == nil:
		return ErrIncompleteDraft
	case d.DateRange == nil && len(d.Seats) == 0:
		return ErrIncompleteDraft
	}
	return nil
}
