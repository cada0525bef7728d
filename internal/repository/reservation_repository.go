package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ReservationRepo stores confirmed reservations and their seats.  All
// timestamps are UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for transaction control.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// ReservationRecord mirrors the reservations table.
type ReservationRecord struct {
	ID             uint64     `json:"id"`
	ConfirmationID string     `json:"confirmation_id"`
	UserID         uint64     `json:"-"`
	RouteID        uint64     `json:"route_id"`
	ScheduleID     uint64     `json:"schedule_id"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method"`
	TotalAmount    int64      `json:"total_amount"`
	RangeStart     *time.Time `json:"range_start,omitempty"`
	RangeEnd       *time.Time `json:"range_end,omitempty"`
	PassengerName  string     `json:"passenger_name"`
	PassengerEmail string     `json:"passenger_email"`
	PassengerPhone string     `json:"passenger_phone"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ReservationSeatRecord mirrors the reservation_seats table.
type ReservationSeatRecord struct {
	ReservationID uint64 `json:"-"`
	ScheduleID    uint64 `json:"-"`
	SeatCode      string `json:"seat_id"`
	Label         string `json:"label"`
	Price         int64  `json:"price"`
}

// ReservationDetail is a reservation with its route and seats, as shown
// to the customer who made it.
type ReservationDetail struct {
	ReservationRecord
	Origin      string                  `json:"origin"`
	Destination string                  `json:"destination"`
	DepartsAt   time.Time               `json:"departs_at"`
	Seats       []ReservationSeatRecord `json:"seats"`
}

// CreateTx inserts a confirmed reservation inside tx and sets res.ID.
// A duplicate confirmation id is reported as ErrConflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *ReservationRecord) error {
	const q = `INSERT INTO reservations
	    (confirmation_id, user_id, route_id, schedule_id, status, payment_method, total_amount,
	     range_start, range_end, passenger_name, passenger_email, passenger_phone)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if res.Status == "" {
		res.Status = "CONFIRMED"
	}
	result, err := tx.ExecContext(ctx, q,
		res.ConfirmationID, res.UserID, res.RouteID, res.ScheduleID, res.Status, res.PaymentMethod, res.TotalAmount,
		nullDate(res.RangeStart), nullDate(res.RangeEnd), res.PassengerName, res.PassengerEmail, res.PassengerPhone,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// CreateSeatsBulkTx inserts multiple reservation_seats rows in a single
// statement.  Passing an empty slice has no effect.
func (r *ReservationRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, seats []ReservationSeatRecord) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, schedule_id, seat_code, label, price) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.ReservationID, s.ScheduleID, s.SeatCode, s.Label, s.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// BookSeatsTx flips the given seats of a departure from AVAILABLE to
// BOOKED.  When any of them is no longer available nothing is booked and
// ErrConflict is returned; the caller must roll back.
func (r *ReservationRepo) BookSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")
	q := `UPDATE schedule_seats SET status = 'BOOKED'
	      WHERE schedule_id = ? AND status = 'AVAILABLE' AND seat_code IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(codes)+1)
	args = append(args, scheduleID)
	for _, c := range codes {
		args = append(args, c)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(codes)) {
		return ErrConflict
	}
	return nil
}

const detailColumns = `r.id, r.confirmation_id, r.user_id, r.route_id, r.schedule_id, r.status, r.payment_method,
	r.total_amount, r.range_start, r.range_end, r.passenger_name, r.passenger_email, r.passenger_phone, r.created_at,
	rt.origin, rt.destination, s.departs_at`

const detailJoins = `FROM reservations r
	JOIN routes rt ON rt.id = r.route_id
	JOIN schedules s ON s.id = r.schedule_id`

func scanDetail(sc interface{ Scan(...any) error }) (ReservationDetail, error) {
	var d ReservationDetail
	var start, end sql.NullTime
	err := sc.Scan(
		&d.ID, &d.ConfirmationID, &d.UserID, &d.RouteID, &d.ScheduleID, &d.Status, &d.PaymentMethod,
		&d.TotalAmount, &start, &end, &d.PassengerName, &d.PassengerEmail, &d.PassengerPhone, &d.CreatedAt,
		&d.Origin, &d.Destination, &d.DepartsAt,
	)
	if start.Valid {
		t := start.Time.UTC()
		d.RangeStart = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		d.RangeEnd = &t
	}
	d.Seats = []ReservationSeatRecord{}
	return d, err
}

// GetByConfirmation returns a reservation of userID by its confirmation
// id, or ErrReservationNotFound.
func (r *ReservationRepo) GetByConfirmation(ctx context.Context, confirmationID string, userID uint64) (*ReservationDetail, error) {
	q := `SELECT ` + detailColumns + ` ` + detailJoins + ` WHERE r.confirmation_id = ? AND r.user_id = ?`
	d, err := scanDetail(r.db.QueryRowContext(ctx, q, confirmationID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	seats, err := r.seatsFor(ctx, []uint64{d.ID})
	if err != nil {
		return nil, err
	}
	d.Seats = append(d.Seats, seats[d.ID]...)
	return &d, nil
}

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	q := `SELECT ` + detailColumns + ` ` + detailJoins + ` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	seats, err := r.seatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = append(out[i].Seats, seats[out[i].ID]...)
	}
	return out, nil
}

func (r *ReservationRepo) seatsFor(ctx context.Context, ids []uint64) (map[uint64][]ReservationSeatRecord, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := `SELECT reservation_id, schedule_id, seat_code, label, price FROM reservation_seats
	      WHERE reservation_id IN (` + placeholders + `) ORDER BY reservation_id, seat_code`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]ReservationSeatRecord, len(ids))
	for rows.Next() {
		var s ReservationSeatRecord
		if err := rows.Scan(&s.ReservationID, &s.ScheduleID, &s.SeatCode, &s.Label, &s.Price); err != nil {
			return nil, err
		}
		out[s.ReservationID] = append(out[s.ReservationID], s)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}
