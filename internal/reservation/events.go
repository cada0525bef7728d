package reservation

import (
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// Event is an input to Machine.Dispatch.  The set of events is closed;
// only types declared in this package implement it.
type Event interface {
	Kind() string
	event()
}

// SelectRoute chooses the route and starts seat/schedule selection over.
type SelectRoute struct{ Route model.Route }

// SelectSchedule chooses a departure of the selected route.  Seats is
// the departure's seat map as reported by the catalog.
type SelectSchedule struct {
	Schedule model.Schedule
	Seats    []model.Seat
}

// SelectSeat adds a seat to the selection and arms its hold.
type SelectSeat struct{ Seat model.Seat }

// DeselectSeat removes a seat from the selection and releases its hold.
type DeselectSeat struct{ SeatID string }

// SetDateRange switches the draft to rental-style pricing.  A nil range
// clears it.
type SetDateRange struct{ Range *model.DateRange }

// SetPassenger records passenger details and advances when they are
// complete.
type SetPassenger struct{ Passenger model.Passenger }

// SetPayment records payment details and reports validation errors.
type SetPayment struct{ Payment model.Payment }

// Next advances one step when the current step is complete.
type Next struct{}

// Prev retreats one step.
type Prev struct{}

// Goto jumps to Step.  Backward jumps always succeed; forward jumps must
// satisfy every guard on the way.
type Goto struct{ Step model.Step }

// Confirm completes the reservation locally and assigns a confirmation
// id.
type Confirm struct{}

// Cancel abandons the reservation but keeps the draft.
type Cancel struct{}

// Reset discards the draft and clears persisted storage.
type Reset struct{}

// ExpireHolds releases every seat hold that lapsed at or before Now.
type ExpireHolds struct{ Now time.Time }

// submission lifecycle, driven by Machine.Submit only
type (
	submitStarted   struct{}
	submitSucceeded struct{ ConfirmationID string }
	submitFailed    struct{ Message string }
)

func (SelectRoute) Kind() string     { return "SELECT_ROUTE" }
func (SelectSchedule) Kind() string  { return "SELECT_SCHEDULE" }
func (SelectSeat) Kind() string      { return "SELECT_SEAT" }
func (DeselectSeat) Kind() string    { return "DESELECT_SEAT" }
func (SetDateRange) Kind() string    { return "SET_DATE_RANGE" }
func (SetPassenger) Kind() string    { return "SET_PASSENGER" }
func (SetPayment) Kind() string      { return "SET_PAYMENT" }
func (Next) Kind() string            { return "NEXT" }
func (Prev) Kind() string            { return "PREV" }
func (Goto) Kind() string            { return "GOTO" }
func (Confirm) Kind() string         { return "CONFIRM" }
func (Cancel) Kind() string          { return "CANCEL" }
func (Reset) Kind() string           { return "RESET" }
func (ExpireHolds) Kind() string     { return "EXPIRE_HOLDS" }
func (submitStarted) Kind() string   { return "SUBMIT_STARTED" }
func (submitSucceeded) Kind() string { return "SUBMIT_SUCCEEDED" }
func (submitFailed) Kind() string    { return "SUBMIT_FAILED" }

func (SelectRoute) event()     {}
func (SelectSchedule) event()  {}
func (SelectSeat) event()      {}
func (DeselectSeat) event()    {}
func (SetDateRange) event()    {}
func (SetPassenger) event()    {}
func (SetPayment) event()      {}
func (Next) event()            {}
func (Prev) event()            {}
func (Goto) event()            {}
func (Confirm) event()         {}
func (Cancel) event()          {}
func (Reset) event()           {}
func (ExpireHolds) event()     {}
func (submitStarted) event()   {}
func (submitSucceeded) event() {}
func (submitFailed) event()    {}
