package model

import "time"

// Draft is the in-progress reservation record.  It is created empty,
// mutated only through state machine events and discarded on reset or
// confirmation.  TotalAmount is derived and must never be set by hand.
type Draft struct {
	Route          *Route     `json:"route"`
	Schedule       *Schedule  `json:"schedule"`
	Seats          []Seat     `json:"seats"`
	DateRange      *DateRange `json:"date_range,omitempty"`
	Passenger      *Passenger `json:"passenger"`
	Payment        *Payment   `json:"payment"`
	TotalAmount    int64      `json:"total_amount"`
	ConfirmationID string     `json:"confirmation_id,omitempty"`
}

// BasePrice returns the route fare, or zero when no route is chosen.
func (d Draft) BasePrice() int64 {
	if d.Route == nil {
		return 0
	}
	return d.Route.BasePrice
}

// Units is the pricing multiplier input: the day count of the date
// range when one is used, otherwise the number of selected seats.
func (d Draft) Units() int64 {
	if d.DateRange != nil {
		return d.DateRange.Days()
	}
	return int64(len(d.Seats))
}

// Method returns the payment method, or "" when no payment is set.
func (d Draft) Method() PaymentMethod {
	if d.Payment == nil {
		return ""
	}
	return d.Payment.Method
}

// HasSeat reports whether a seat with the given id is selected.
func (d Draft) HasSeat(id string) bool {
	for _, s := range d.Seats {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := d
	if d.Route != nil {
		r := *d.Route
		out.Route = &r
	}
	if d.Schedule != nil {
		s := *d.Schedule
		out.Schedule = &s
	}
	if d.Seats != nil {
		out.Seats = make([]Seat, len(d.Seats))
		copy(out.Seats, d.Seats)
	}
	if d.DateRange != nil {
		dr := *d.DateRange
		out.DateRange = &dr
	}
	if d.Passenger != nil {
		p := *d.Passenger
		out.Passenger = &p
	}
	out.Payment = d.Payment.Clone()
	return out
}

// Record is the persisted form of a reservation session.  Transient
// state such as validation errors and the submitting flag is never
// stored.
type Record struct {
	Step    Step      `json:"step"`
	Draft   Draft     `json:"draft"`
	SeatMap []Seat    `json:"seat_map"`
	Holds   []Hold    `json:"holds"`
	SavedAt time.Time `json:"saved_at"`
}
